package routes

import (
	"net/http"
	"time"

	"github.com/zatekoja/medscan/backend/internal/api/handlers"
	"github.com/zatekoja/medscan/backend/internal/api/middleware"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux               *http.ServeMux
	medicationHandler *handlers.MedicationHandler
	metrics           *observability.Metrics
	allowedOrigins    []string
	requestTimeout    time.Duration
}

// NewRouter creates a new router. metrics may be nil.
func NewRouter(
	medicationHandler *handlers.MedicationHandler,
	metrics *observability.Metrics,
	allowedOrigins []string,
	requestTimeout time.Duration,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		medicationHandler: medicationHandler,
		metrics:           metrics,
		allowedOrigins:    allowedOrigins,
		requestTimeout:    requestTimeout,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", handlers.Health)

	// Medication endpoints
	r.mux.HandleFunc("POST /api/medications/resolve", r.medicationHandler.Resolve)
	r.mux.HandleFunc("POST /api/medications/interactions", r.medicationHandler.CheckInteractions)
	r.mux.HandleFunc("GET /api/medications/scans/{id}", r.medicationHandler.GetScan)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	if r.requestTimeout > 0 {
		handler = http.TimeoutHandler(handler, r.requestTimeout, `{"error":"request timed out"}`)
	}
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)

	// CORS wraps everything so headers are set on every response
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
