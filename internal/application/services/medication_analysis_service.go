package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
	"github.com/zatekoja/medscan/backend/pkg/jsonrepair"
	"github.com/zatekoja/medscan/backend/pkg/utils"
)

const (
	minMeaningfulChars   = 2
	maxLoggedModelOutput = 2000
	maxRecordListItems   = 12
)

// ResolveInput is everything the generative step sees for one scan.
type ResolveInput struct {
	OCRText  string
	Language entities.Language
	Patient  *entities.PatientContext
	Evidence *entities.EvidenceForAI
}

// MedicationAnalysisService turns OCR text plus evidence into a validated medication record.
type MedicationAnalysisService struct {
	generator providers.TextGenerationProvider
}

// NewMedicationAnalysisService creates the service. A nil generator is reported
// as a configuration error on every call.
func NewMedicationAnalysisService(generator providers.TextGenerationProvider) *MedicationAnalysisService {
	return &MedicationAnalysisService{generator: generator}
}

// ResolveMedication validates the input, calls the model and strictly validates its answer.
func (s *MedicationAnalysisService) ResolveMedication(ctx context.Context, in ResolveInput) (*entities.StructuredMedicationRecord, error) {
	if err := ValidateOCRText(in.OCRText); err != nil {
		return nil, err
	}
	text := utils.NormalizeText(in.OCRText)
	if s.generator == nil {
		return nil, apperrors.NewConfigurationError("text generation is not configured", providers.ErrTextGenerationNotConfigured)
	}

	ctx, span := observability.StartSpan(ctx, "medication.resolve")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	raw, err := s.generator.Complete(ctx, providers.CompletionRequest{
		SystemPrompt: medicationSystemPrompt,
		UserPrompt:   buildMedicationUserPrompt(text, in.Language, in.Patient, in.Evidence),
		JSONObject:   true,
		Temperature:  0.2,
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, classifyGenerationError(err)
	}

	var payload rawMedicationRecord
	if err := jsonrepair.Unmarshal(raw, &payload); err != nil {
		observability.RecordError(span, err)
		logger.Error().
			Err(err).
			Str("candidate", utils.Truncate(jsonrepair.Candidate(raw), maxLoggedModelOutput)).
			Msg("model returned unparseable medication record")
		return nil, apperrors.NewAnalysisError("model returned an unreadable answer", err)
	}

	record := payload.toRecord(in.Evidence)
	if record.HasUntrustedPersonalization(!in.Patient.IsEmpty()) {
		logger.Warn().Msg("discarding personalization emitted without patient context")
		record.Personalized = nil
		record.PersonalizationDiscarded = true
	}
	return record, nil
}

func classifyGenerationError(err error) error {
	switch {
	case errors.Is(err, providers.ErrTextGenerationNotConfigured):
		return apperrors.NewConfigurationError("text generation is not configured", err)
	case errors.Is(err, providers.ErrTextGenerationUnauthorized):
		return apperrors.NewConfigurationError("text generation credential was rejected", err)
	case errors.Is(err, providers.ErrEmptyCompletion):
		return apperrors.NewAnalysisError("model returned no content", err)
	default:
		return apperrors.NewAnalysisError("model request failed", err)
	}
}

// ValidateOCRText rejects text with fewer than two non-space characters.
// Punctuation counts: noisy text still goes to the model.
func ValidateOCRText(ocrText string) error {
	if countMeaningful(utils.NormalizeText(ocrText)) < minMeaningfulChars {
		return apperrors.NewInputError("ocr text is empty or too short, retake the photo")
	}
	return nil
}

func countMeaningful(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) && unicode.IsPrint(r) {
			n++
		}
	}
	return n
}

// flexStrings accepts a string, an array of strings or null.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var many []interface{}
	if err := json.Unmarshal(data, &many); err == nil {
		out := make([]string, 0, len(many))
		for _, v := range many {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		*f = out
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*f = flexStrings{one}
		return nil
	}
	*f = nil
	return nil
}

// flexNumber accepts a JSON number or a numeric string.
type flexNumber struct {
	value float64
	ok    bool
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.value, f.ok = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.value, f.ok = parsed, true
		}
	}
	return nil
}

// clamp returns the value rounded into [0,100], or def when missing.
func (f flexNumber) clamp(def int) int {
	if !f.ok || math.IsNaN(f.value) {
		return def
	}
	v := int(math.Round(f.value))
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

type rawIngredient struct {
	Name     string `json:"name"`
	Strength string `json:"strength"`
}

type rawIngredients []rawIngredient

// UnmarshalJSON accepts objects or bare names.
func (r *rawIngredients) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		*r = nil
		return nil
	}
	out := make([]rawIngredient, 0, len(items))
	for _, item := range items {
		var obj rawIngredient
		if err := json.Unmarshal(item, &obj); err == nil {
			out = append(out, obj)
			continue
		}
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			out = append(out, rawIngredient{Name: name})
		}
	}
	*r = out
	return nil
}

type rawPersonalization struct {
	RiskLevel string      `json:"riskLevel"`
	Summary   string      `json:"summary"`
	Alerts    flexStrings `json:"alerts"`
}

type rawMedicationRecord struct {
	DrugName          string              `json:"drugName"`
	GenericName       string              `json:"genericName"`
	BrandNames        flexStrings         `json:"brandNames"`
	ActiveIngredients rawIngredients      `json:"activeIngredients"`
	Strength          string              `json:"strength"`
	DosageForm        string              `json:"dosageForm"`
	Route             string              `json:"route"`
	Manufacturer      string              `json:"manufacturer"`
	ProductType       string              `json:"productType"`
	Indications       flexStrings         `json:"indications"`
	Dosage            flexStrings         `json:"dosage"`
	Contraindications flexStrings         `json:"contraindications"`
	Warnings          flexStrings         `json:"warnings"`
	SideEffects       flexStrings         `json:"sideEffects"`
	Interactions      flexStrings         `json:"interactions"`
	Storage           flexStrings         `json:"storage"`
	Overdose          string              `json:"overdose"`
	Personalized      *rawPersonalization `json:"personalized"`
	Confidence        flexNumber          `json:"confidence"`
}

func (p rawMedicationRecord) toRecord(evidence *entities.EvidenceForAI) *entities.StructuredMedicationRecord {
	record := &entities.StructuredMedicationRecord{
		DrugName:          strings.TrimSpace(p.DrugName),
		GenericName:       strings.TrimSpace(p.GenericName),
		BrandNames:        cleanList(p.BrandNames, maxRecordListItems),
		Strength:          strings.TrimSpace(p.Strength),
		DosageForm:        strings.TrimSpace(p.DosageForm),
		Route:             strings.TrimSpace(p.Route),
		Manufacturer:      strings.TrimSpace(p.Manufacturer),
		ProductType:       normalizeProductKind(p.ProductType),
		Indications:       cleanList(p.Indications, maxRecordListItems),
		Dosage:            cleanList(p.Dosage, maxRecordListItems),
		Contraindications: cleanList(p.Contraindications, maxRecordListItems),
		Warnings:          cleanList(p.Warnings, maxRecordListItems),
		SideEffects:       cleanList(p.SideEffects, maxRecordListItems),
		Interactions:      cleanList(p.Interactions, maxRecordListItems),
		Storage:           cleanList(p.Storage, maxRecordListItems),
		Overdose:          strings.TrimSpace(p.Overdose),
		Confidence:        p.Confidence.clamp(0),
	}
	if record.DrugName == "" {
		record.DrugName = "Unknown"
	}
	for _, ing := range p.ActiveIngredients {
		if name := strings.TrimSpace(ing.Name); name != "" {
			record.ActiveIngredients = append(record.ActiveIngredients, entities.RecordIngredient{
				Name:     name,
				Strength: strings.TrimSpace(ing.Strength),
			})
		}
	}
	if record.ProductType == entities.ProductKindUnknown && evidence != nil {
		record.ProductType = evidence.Classification.Kind
		if record.ProductType == "" {
			record.ProductType = entities.ProductKindUnknown
		}
	}
	if p.Personalized != nil {
		record.Personalized = &entities.PersonalizationBlock{
			RiskLevel: strings.ToLower(strings.TrimSpace(p.Personalized.RiskLevel)),
			Summary:   strings.TrimSpace(p.Personalized.Summary),
			Alerts:    cleanList(p.Personalized.Alerts, maxRecordListItems),
		}
	}
	return record
}

func normalizeProductKind(raw string) entities.ProductKind {
	switch entities.ProductKind(strings.ToLower(strings.TrimSpace(raw))) {
	case entities.ProductKindHumanDrug:
		return entities.ProductKindHumanDrug
	case entities.ProductKindHumanSupplement:
		return entities.ProductKindHumanSupplement
	case entities.ProductKindVeterinaryDrug:
		return entities.ProductKindVeterinaryDrug
	case entities.ProductKindVeterinarySupplement:
		return entities.ProductKindVeterinarySupplement
	default:
		return entities.ProductKindUnknown
	}
}

func cleanList(values []string, max int) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == max {
			break
		}
	}
	return out
}
