package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

const maxRequestBytes = 1 << 20

// MedicationService defines the scan operations used by the handler.
type MedicationService interface {
	Resolve(ctx context.Context, req services.ResolveRequest) (*entities.ScanResult, error)
	GetScan(ctx context.Context, id string) (*entities.ScanResult, error)
	CheckInteractions(ctx context.Context, in services.InteractionInput) *entities.InteractionGuardResult
}

// MedicationHandler handles medication scan requests.
type MedicationHandler struct {
	service MedicationService
}

// NewMedicationHandler creates a new medication handler.
func NewMedicationHandler(service MedicationService) *MedicationHandler {
	return &MedicationHandler{service: service}
}

type resolveRequest struct {
	OCRText          string                   `json:"ocrText"`
	Language         string                   `json:"language"`
	PatientContext   *entities.PatientContext `json:"patientContext,omitempty"`
	OtherMedications []string                 `json:"otherMedications,omitempty"`
	DisableRegistry  bool                     `json:"disableRegistry,omitempty"`
}

// ResolveResponse is the body returned by a successful resolve.
type ResolveResponse struct {
	ScanID       string                               `json:"scanId"`
	Record       *entities.StructuredMedicationRecord `json:"record"`
	Interactions *entities.InteractionGuardResult     `json:"interactions,omitempty"`
	Preflight    *entities.MedicationPreflight        `json:"preflight,omitempty"`
}

type interactionRequest struct {
	Target           entities.InteractionTarget `json:"target"`
	Language         string                     `json:"language"`
	PatientContext   *entities.PatientContext   `json:"patientContext,omitempty"`
	OtherMedications []string                   `json:"otherMedications"`
}

// ErrorResponse is the error body. Code is set when the client can act on it.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RetakePhotoCode tells the client the scanned text was unusable.
const RetakePhotoCode = "RETAKE_PHOTO"

// Resolve handles POST /api/medications/resolve
func (h *MedicationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var payload resolveRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	lang, err := entities.ParseLanguage(payload.Language)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Resolve(r.Context(), services.ResolveRequest{
		OCRText:          payload.OCRText,
		Language:         lang,
		Patient:          payload.PatientContext,
		OtherMedications: payload.OtherMedications,
		DisableRegistry:  payload.DisableRegistry,
	})
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ResolveResponse{
		ScanID:       result.ID,
		Record:       result.Record,
		Interactions: result.Interactions,
		Preflight:    result.Preflight,
	})
}

// CheckInteractions handles POST /api/medications/interactions
func (h *MedicationHandler) CheckInteractions(w http.ResponseWriter, r *http.Request) {
	var payload interactionRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(payload.Target.DrugName) == "" && strings.TrimSpace(payload.Target.GenericName) == "" {
		respondWithError(w, http.StatusBadRequest, "target drugName or genericName is required")
		return
	}

	lang, err := entities.ParseLanguage(payload.Language)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report := h.service.CheckInteractions(r.Context(), services.InteractionInput{
		Target:           payload.Target,
		Patient:          payload.PatientContext,
		OtherMedications: payload.OtherMedications,
		Language:         lang,
	})
	respondWithJSON(w, http.StatusOK, report)
}

// GetScan handles GET /api/medications/scans/{id}
func (h *MedicationHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("id")
	if scanID == "" {
		respondWithError(w, http.StatusBadRequest, "scan ID is required")
		return
	}

	scan, err := h.service.GetScan(r.Context(), scanID)
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, scan)
}

func (h *MedicationHandler) respondWithServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("unexpected scan failure")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeInput:
		respondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: appErr.Message, Code: RetakePhotoCode})
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeAnalysis, apperrors.ErrorTypeExternal:
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("medication analysis failed")
		respondWithError(w, http.StatusBadGateway, appErr.Message)
	case apperrors.ErrorTypeConfiguration:
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("medication analysis is not configured")
		respondWithError(w, http.StatusServiceUnavailable, "medication analysis is unavailable")
	default:
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("scan failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// Health handles GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}
