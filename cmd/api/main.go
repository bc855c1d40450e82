package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/medscan/backend/internal/adapters/cache"
	"github.com/zatekoja/medscan/backend/internal/adapters/database"
	"github.com/zatekoja/medscan/backend/internal/adapters/events"
	"github.com/zatekoja/medscan/backend/internal/adapters/providers/registry"
	"github.com/zatekoja/medscan/backend/internal/adapters/providers/websearch"
	"github.com/zatekoja/medscan/backend/internal/api/handlers"
	"github.com/zatekoja/medscan/backend/internal/api/routes"
	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/domain/repositories"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/config"
	"github.com/zatekoja/medscan/backend/pkg/secrets"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Secrets must be in the environment before configuration is read
	vaultResult, vaultErr := secrets.NewVaultLoader(secrets.LoadVaultConfigFromEnv()).Apply(ctx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
	log.Info().
		Str("version", cfg.OTEL.ServiceVersion).
		Str("env", cfg.Env).
		Msg("Starting medscan API")

	if vaultErr != nil {
		log.Warn().Err(vaultErr).Msg("Vault secrets not loaded; using environment only")
	} else if vaultResult.Enabled {
		log.Info().Int("loaded", vaultResult.Loaded).Int("skipped", vaultResult.Skipped).Msg("Vault secrets applied")
	}

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Redis backs both the scan cache and scan events
	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.Events.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable; scan cache and events disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}

	// Scan storage is optional; resolution works without it
	var scanRepo repositories.ScanResultRepository
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		scanAdapter := database.NewScanResultAdapter(pgClient, metrics)
		if err := scanAdapter.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare scan_results table")
		}
		scanRepo = scanAdapter

		if cfg.Cache.Enabled && redisClient != nil {
			scanRepo = database.NewCachedScanResultAdapter(
				scanAdapter,
				cache.NewRedisAdapter(redisClient, "medscan:"),
				cfg.Cache.TTLSeconds,
				metrics,
			)
			log.Info().Int("ttl_seconds", cfg.Cache.TTLSeconds).Msg("Scan repository wrapped with Redis cache")
		}
	} else {
		log.Warn().Msg("DB_ENABLED=false; scans will not be stored")
	}

	searchClient := websearch.NewSerperClient(cfg.Search)
	if cfg.Search.APIKey == "" {
		log.Warn().Msg("SEARCH_API_KEY is not set; web evidence disabled")
	}

	var registryProvider providers.DrugRegistryProvider
	if cfg.OpenFDA.Enabled {
		registryProvider = registry.NewOpenFDAClient(cfg.OpenFDA)
	} else {
		log.Warn().Msg("OPENFDA_ENABLED=false; registry evidence disabled")
	}

	generator := openai.NewClient(cfg.OpenAI)
	if cfg.OpenAI.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set; resolve requests will return 503")
	}

	resolutionService := services.NewMedicationResolutionService(
		services.NewMedicationPreflightService(searchClient, registryProvider),
		services.NewMedicationAnalysisService(generator),
		services.NewInteractionGuardService(generator),
		scanRepo,
		providers.SearchOptions{Num: cfg.Search.ResultCount, Region: cfg.Search.Region, Lang: cfg.Search.Language},
	)

	var eventBus providers.EventBus
	if cfg.Events.Enabled && redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		resolutionService.SetEventBus(eventBus, cfg.Events.Channel)
		log.Info().Str("channel", cfg.Events.Channel).Msg("Scan events enabled")
	}

	router := routes.NewRouter(
		handlers.NewMedicationHandler(resolutionService),
		metrics,
		cfg.Server.AllowedOrigins,
		cfg.Server.RequestTimeout,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	log.Info().Msg("Server stopped")
}
