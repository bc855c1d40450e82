package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/domain/repositories"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

// ResolveRequest is one scan submitted by a caller.
type ResolveRequest struct {
	OCRText          string
	Language         entities.Language
	Patient          *entities.PatientContext
	OtherMedications []string
	DisableRegistry  bool
}

// MedicationResolutionService runs the full scan pipeline: evidence gathering,
// generative resolution, the optional interaction check and persistence.
type MedicationResolutionService struct {
	preflight    *MedicationPreflightService
	analysis     *MedicationAnalysisService
	interactions *InteractionGuardService
	scans        repositories.ScanResultRepository
	search       providers.SearchOptions
	eventBus     providers.EventBus
	eventChannel string
}

// NewMedicationResolutionService creates the service. scans may be nil, in
// which case results are returned but not stored.
func NewMedicationResolutionService(
	preflight *MedicationPreflightService,
	analysis *MedicationAnalysisService,
	interactions *InteractionGuardService,
	scans repositories.ScanResultRepository,
	search providers.SearchOptions,
) *MedicationResolutionService {
	return &MedicationResolutionService{
		preflight:    preflight,
		analysis:     analysis,
		interactions: interactions,
		scans:        scans,
		search:       search,
	}
}

// SetEventBus publishes a ScanEvent for every resolved scan. An empty channel
// uses providers.EventChannelScans.
func (s *MedicationResolutionService) SetEventBus(bus providers.EventBus, channel string) {
	if channel == "" {
		channel = providers.EventChannelScans
	}
	s.eventBus = bus
	s.eventChannel = channel
}

// Resolve identifies the scanned product. Input is validated before any
// external call is made.
func (s *MedicationResolutionService) Resolve(ctx context.Context, req ResolveRequest) (*entities.ScanResult, error) {
	if err := ValidateOCRText(req.OCRText); err != nil {
		return nil, err
	}
	if req.Language == "" {
		req.Language = entities.LanguageEnglish
	}

	ctx, span := observability.StartSpan(ctx, "medication.scan")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	pre := s.preflight.BuildPreflight(ctx, req.OCRText, PreflightOptions{
		DisableRegistry: req.DisableRegistry,
		Search:          s.searchOptions(req.Language),
	})

	record, err := s.analysis.ResolveMedication(ctx, ResolveInput{
		OCRText:  req.OCRText,
		Language: req.Language,
		Patient:  req.Patient,
		Evidence: &pre.EvidenceForAI,
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	result := &entities.ScanResult{
		ID:        uuid.New().String(),
		Language:  req.Language,
		OCRText:   req.OCRText,
		Record:    record,
		Preflight: pre,
		CreatedAt: time.Now().UTC(),
	}

	if len(req.OtherMedications) > 0 && s.interactions != nil {
		result.Interactions = s.interactions.CheckInteractions(ctx, InteractionInput{
			Target:           entities.TargetFromRecord(record),
			Patient:          req.Patient,
			OtherMedications: req.OtherMedications,
			Language:         req.Language,
		})
	}

	if s.scans != nil {
		if err := s.scans.Save(ctx, result); err != nil {
			logger.Warn().Err(err).Str("scan_id", result.ID).Msg("failed to store scan result")
		}
	}

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, s.eventChannel, entities.NewScanEvent(result)); err != nil {
			logger.Warn().Err(err).Str("scan_id", result.ID).Msg("failed to publish scan event")
		}
	}

	observability.SetSpanAttributes(span,
		attribute.String("scan.id", result.ID),
		attribute.String("scan.product_type", string(record.ProductType)),
		attribute.Int("scan.confidence", record.Confidence),
	)
	logger.Info().
		Str("scan_id", result.ID).
		Str("drug_name", record.DrugName).
		Int("confidence", record.Confidence).
		Msg("scan resolved")

	return result, nil
}

// GetScan returns a stored scan.
func (s *MedicationResolutionService) GetScan(ctx context.Context, id string) (*entities.ScanResult, error) {
	if s.scans == nil {
		return nil, apperrors.NewNotFoundError("scan storage is disabled")
	}
	return s.scans.GetByID(ctx, id)
}

// CheckInteractions runs a standalone interaction check.
func (s *MedicationResolutionService) CheckInteractions(ctx context.Context, in InteractionInput) *entities.InteractionGuardResult {
	if in.Language == "" {
		in.Language = entities.LanguageEnglish
	}
	if s.interactions == nil {
		return NewInteractionGuardService(nil).CheckInteractions(ctx, in)
	}
	return s.interactions.CheckInteractions(ctx, in)
}

func (s *MedicationResolutionService) searchOptions(lang entities.Language) providers.SearchOptions {
	opts := s.search
	if opts.Lang == "" {
		opts.Lang = string(lang)
	}
	return opts
}
