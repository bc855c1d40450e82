package services

import (
	"context"
	"strings"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/jsonrepair"
	"github.com/zatekoja/medscan/backend/pkg/utils"
)

const maxGuidanceItems = 8

// Disclaimers attached to interaction reports.
const (
	DisclaimerDefault     = "This check is informational and does not replace advice from a pharmacist or doctor."
	DisclaimerUnavailable = "Interaction data is not available right now. Ask a pharmacist before combining these medications."
	DisclaimerNoOthers    = "No other medications were supplied, so no interactions were checked."
)

// InteractionInput describes one interaction check.
type InteractionInput struct {
	Target           entities.InteractionTarget
	Patient          *entities.PatientContext
	OtherMedications []string
	Language         entities.Language
}

// InteractionGuardService checks a medication against the patient's other medications.
type InteractionGuardService struct {
	generator providers.TextGenerationProvider
}

// NewInteractionGuardService creates the service.
func NewInteractionGuardService(generator providers.TextGenerationProvider) *InteractionGuardService {
	return &InteractionGuardService{generator: generator}
}

// CheckInteractions never fails. When the model cannot be used or its answer
// cannot be parsed the result has no items and explains why in the disclaimer.
func (s *InteractionGuardService) CheckInteractions(ctx context.Context, in InteractionInput) *entities.InteractionGuardResult {
	others := cleanMedicationList(in.OtherMedications)
	if len(others) == 0 {
		return &entities.InteractionGuardResult{Items: []entities.InteractionGuardItem{}, Disclaimer: DisclaimerNoOthers}
	}
	if s.generator == nil {
		return degradedInteractionResult()
	}

	ctx, span := observability.StartSpan(ctx, "medication.interactions")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	raw, err := s.generator.Complete(ctx, providers.CompletionRequest{
		SystemPrompt: interactionSystemPrompt,
		UserPrompt:   buildInteractionUserPrompt(in.Target, others, in.Language, in.Patient),
		JSONObject:   true,
		Temperature:  0.1,
	})
	if err != nil {
		observability.RecordError(span, err)
		logger.Warn().Err(err).Msg("interaction check unavailable")
		return degradedInteractionResult()
	}

	var payload rawInteractionResult
	if err := jsonrepair.Unmarshal(raw, &payload); err != nil {
		observability.RecordError(span, err)
		logger.Warn().
			Err(err).
			Str("candidate", utils.Truncate(jsonrepair.Candidate(raw), maxLoggedModelOutput)).
			Msg("model returned unparseable interaction report")
		return degradedInteractionResult()
	}

	result := payload.validate(others)
	logger.Debug().Int("items", len(result.Items)).Str("overall_risk", string(result.OverallRisk)).Msg("interaction check complete")
	return result
}

func degradedInteractionResult() *entities.InteractionGuardResult {
	return &entities.InteractionGuardResult{Items: []entities.InteractionGuardItem{}, Disclaimer: DisclaimerUnavailable}
}

func cleanMedicationList(values []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := utils.NormalizeForMatch(v)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

type rawInteractionItem struct {
	OtherMedication string      `json:"otherMedication"`
	Severity        string      `json:"severity"`
	Confidence      flexNumber  `json:"confidence"`
	Headline        string      `json:"headline"`
	Summary         string      `json:"summary"`
	Mechanism       string      `json:"mechanism"`
	WhatToDo        flexStrings `json:"whatToDo"`
	Monitoring      flexStrings `json:"monitoring"`
	RedFlags        flexStrings `json:"redFlags"`
}

type rawInteractionResult struct {
	OverallRisk string               `json:"overallRisk"`
	Items       []rawInteractionItem `json:"items"`
	Disclaimer  string               `json:"disclaimer"`
}

// validate folds the model answer into the closed result shape. Items that
// do not name one of the supplied medications are dropped, and only the
// first item per medication is kept.
func (p rawInteractionResult) validate(others []string) *entities.InteractionGuardResult {
	result := &entities.InteractionGuardResult{Items: []entities.InteractionGuardItem{}}
	used := make(map[string]struct{})

	for _, item := range p.Items {
		med, ok := matchMedication(item.OtherMedication, others)
		if !ok {
			continue
		}
		if _, dup := used[med]; dup {
			continue
		}
		used[med] = struct{}{}

		severity := entities.NormalizeSeverity(item.Severity)
		result.Items = append(result.Items, entities.InteractionGuardItem{
			OtherMedication: med,
			Severity:        severity,
			Confidence:      item.Confidence.clamp(severity.DefaultConfidence()),
			Headline:        strings.TrimSpace(item.Headline),
			Summary:         strings.TrimSpace(item.Summary),
			Mechanism:       strings.TrimSpace(item.Mechanism),
			WhatToDo:        cleanList(item.WhatToDo, maxGuidanceItems),
			Monitoring:      cleanList(item.Monitoring, maxGuidanceItems),
			RedFlags:        cleanList(item.RedFlags, maxGuidanceItems),
		})
	}

	// The overall risk is never lower than the worst item.
	var overall entities.Severity
	if strings.TrimSpace(p.OverallRisk) != "" {
		overall = entities.NormalizeSeverity(p.OverallRisk)
	}
	for _, item := range result.Items {
		if overall == "" || item.Severity.Rank() > overall.Rank() {
			overall = item.Severity
		}
	}
	result.OverallRisk = overall

	result.Disclaimer = strings.TrimSpace(p.Disclaimer)
	if result.Disclaimer == "" {
		result.Disclaimer = DisclaimerDefault
	}
	return result
}

// matchMedication maps a model-reported name back to the caller's entry.
func matchMedication(name string, others []string) (string, bool) {
	key := utils.NormalizeForMatch(name)
	if key == "" {
		return "", false
	}
	for _, other := range others {
		if utils.NormalizeForMatch(other) == key {
			return other, true
		}
	}
	if utils.RuneLen(key) < 3 {
		return "", false
	}
	for _, other := range others {
		otherKey := utils.NormalizeForMatch(other)
		if strings.Contains(otherKey, key) || strings.Contains(key, otherKey) {
			return other, true
		}
	}
	return "", false
}
