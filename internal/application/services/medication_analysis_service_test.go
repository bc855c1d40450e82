package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

func TestResolveMedication_InputErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t", "a", " ? "} {
		gen := new(MockTextGenerator)
		svc := services.NewMedicationAnalysisService(gen)

		record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{OCRText: input})

		require.Error(t, err, "input %q", input)
		assert.Nil(t, record)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInput))
		gen.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	}
}

func TestResolveMedication_MissingGenerator(t *testing.T) {
	svc := services.NewMedicationAnalysisService(nil)

	_, err := svc.ResolveMedication(context.Background(), services.ResolveInput{OCRText: "Tylenol 500"})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestResolveMedication_GenerationErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected apperrors.ErrorType
	}{
		{"not configured", providers.ErrTextGenerationNotConfigured, apperrors.ErrorTypeConfiguration},
		{"unauthorized", fmt.Errorf("status 401: %w", providers.ErrTextGenerationUnauthorized), apperrors.ErrorTypeConfiguration},
		{"empty completion", providers.ErrEmptyCompletion, apperrors.ErrorTypeAnalysis},
		{"transport", errors.New("connection reset"), apperrors.ErrorTypeAnalysis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockTextGenerator)
			gen.On("Complete", mock.Anything, mock.Anything).Return("", tt.err)
			svc := services.NewMedicationAnalysisService(gen)

			record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{OCRText: "Tylenol 500"})

			require.Error(t, err)
			assert.Nil(t, record)
			assert.True(t, apperrors.IsType(err, tt.expected))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestResolveMedication_UnparseableOutput(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("I am sorry, I cannot identify this product.", nil)
	svc := services.NewMedicationAnalysisService(gen)

	record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{OCRText: "Tylenol 500"})

	require.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAnalysis))
	assert.NotContains(t, err.Error(), "I am sorry")
}

func TestResolveMedication_FencedJSON(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Complete", mock.Anything, mock.MatchedBy(func(req providers.CompletionRequest) bool {
		return req.JSONObject &&
			strings.Contains(req.UserPrompt, "Tylenol 500mg tablet") &&
			strings.Contains(req.UserPrompt, "Write every value in English") &&
			strings.Contains(req.UserPrompt, `"personalized" MUST be null`) &&
			strings.Contains(req.UserPrompt, `"matchReason"`)
	})).Return("Here you go:\n```json\n"+tylenolRecordJSON+"\n```", nil)
	svc := services.NewMedicationAnalysisService(gen)

	evidence := &entities.EvidenceForAI{
		Classification: entities.ProductClassification{Kind: entities.ProductKindHumanDrug, Confidence: 92, Reasons: []string{"Registry product type: HUMAN OTC DRUG"}},
		Registry:       &entities.RegistryEvidence{Tier: entities.MatchTierConfirmed, MatchScore: 180, MatchReason: "brand_name exact match"},
	}
	record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{
		OCRText:  "Tylenol 500mg tablet take 1 every 6 hours",
		Language: entities.LanguageEnglish,
		Evidence: evidence,
	})

	require.NoError(t, err)
	assert.Equal(t, "Tylenol", record.DrugName)
	assert.Equal(t, "Acetaminophen", record.GenericName)
	assert.Equal(t, []entities.RecordIngredient{{Name: "Acetaminophen", Strength: "500 mg"}}, record.ActiveIngredients)
	assert.Equal(t, entities.ProductKindHumanDrug, record.ProductType)
	assert.Equal(t, 88, record.Confidence)
	assert.Nil(t, record.Personalized)
	assert.False(t, record.PersonalizationDiscarded)
	assert.Empty(t, record.Contraindications)
	gen.AssertExpectations(t)
}

func TestResolveMedication_ArabicDirective(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Complete", mock.Anything, mock.MatchedBy(func(req providers.CompletionRequest) bool {
		return strings.Contains(req.UserPrompt, "Write every value in Arabic")
	})).Return(`{"drugName": "بانادول", "confidence": 70}`, nil)
	svc := services.NewMedicationAnalysisService(gen)

	record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{
		OCRText:  "بانادول أقراص",
		Language: entities.LanguageArabic,
	})

	require.NoError(t, err)
	assert.Equal(t, "بانادول", record.DrugName)
	gen.AssertExpectations(t)
}

func TestResolveMedication_PersonalizationWithoutContextIsDiscarded(t *testing.T) {
	raw := `{"drugName": "Advil", "personalized": {"riskLevel": "HIGH", "summary": "You have asthma", "alerts": ["asthma"]}, "confidence": 80}`

	t.Run("no patient context", func(t *testing.T) {
		gen := new(MockTextGenerator)
		gen.On("Complete", mock.Anything, mock.Anything).Return(raw, nil)
		svc := services.NewMedicationAnalysisService(gen)

		record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{
			OCRText: "Advil 200",
			Patient: &entities.PatientContext{Allergies: []string{"  "}},
		})

		require.NoError(t, err)
		assert.Nil(t, record.Personalized)
		assert.True(t, record.PersonalizationDiscarded)
		assert.False(t, record.HasUntrustedPersonalization(false))
	})

	t.Run("with patient context", func(t *testing.T) {
		gen := new(MockTextGenerator)
		gen.On("Complete", mock.Anything, mock.MatchedBy(func(req providers.CompletionRequest) bool {
			return strings.Contains(req.UserPrompt, "PATIENT CONTEXT") && strings.Contains(req.UserPrompt, "asthma")
		})).Return(raw, nil)
		svc := services.NewMedicationAnalysisService(gen)

		record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{
			OCRText: "Advil 200",
			Patient: &entities.PatientContext{Conditions: []string{"asthma"}},
		})

		require.NoError(t, err)
		require.NotNil(t, record.Personalized)
		assert.Equal(t, "high", record.Personalized.RiskLevel)
		assert.Equal(t, []string{"asthma"}, record.Personalized.Alerts)
		assert.False(t, record.PersonalizationDiscarded)
	})
}

func TestResolveMedication_NoiseStillCallsModel(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Complete", mock.Anything, mock.MatchedBy(func(req providers.CompletionRequest) bool {
		return strings.Contains(req.UserPrompt, "%$&^# ___ ???")
	})).Return(`{"drugName": "Unknown", "confidence": 3}`, nil)
	svc := services.NewMedicationAnalysisService(gen)

	record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{OCRText: "%$&^# ___ ???"})

	require.NoError(t, err)
	assert.True(t, record.IsUnknown())
	assert.Equal(t, 3, record.Confidence)
	gen.AssertNumberOfCalls(t, "Complete", 1)
}

func TestResolveMedication_LenientShapes(t *testing.T) {
	raw := `{
	  "drugName": "",
	  "brandNames": "Advil",
	  "activeIngredients": ["Ibuprofen", {"name": " ", "strength": "1 mg"}, {"name": "Caffeine", "strength": "65 mg"}],
	  "productType": "pill",
	  "warnings": ["  ", "stomach bleeding"],
	  "confidence": "85%"
	}`
	gen := new(MockTextGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return(raw, nil)
	svc := services.NewMedicationAnalysisService(gen)

	record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{
		OCRText:  "Advil ibuprofen",
		Evidence: &entities.EvidenceForAI{Classification: entities.ProductClassification{Kind: entities.ProductKindVeterinaryDrug}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Unknown", record.DrugName)
	assert.Equal(t, []string{"Advil"}, record.BrandNames)
	assert.Equal(t, []entities.RecordIngredient{{Name: "Ibuprofen"}, {Name: "Caffeine", Strength: "65 mg"}}, record.ActiveIngredients)
	assert.Equal(t, entities.ProductKindVeterinaryDrug, record.ProductType)
	assert.Equal(t, []string{"stomach bleeding"}, record.Warnings)
	assert.Equal(t, 85, record.Confidence)
}

func TestResolveMedication_ConfidenceIsClamped(t *testing.T) {
	for raw, expected := range map[string]int{
		`{"drugName": "X1", "confidence": 140}`:  100,
		`{"drugName": "X1", "confidence": -3}`:   0,
		`{"drugName": "X1", "confidence": null}`: 0,
		`{"drugName": "X1"}`:                     0,
		`{"drugName": "X1", "confidence": 72.6}`: 73,
	} {
		gen := new(MockTextGenerator)
		gen.On("Complete", mock.Anything, mock.Anything).Return(raw, nil)
		svc := services.NewMedicationAnalysisService(gen)

		record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{OCRText: "X1 tablets"})

		require.NoError(t, err)
		assert.Equal(t, expected, record.Confidence, raw)
	}
}

func TestResolveMedication_RepairsInvalidEscapes(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).
		Return(`{"drugName": "Fucidin", "storage": ["Store at 25°C \ protect from light"], "confidence": 60}`, nil)
	svc := services.NewMedicationAnalysisService(gen)

	record, err := svc.ResolveMedication(context.Background(), services.ResolveInput{OCRText: "Fucidin cream"})

	require.NoError(t, err)
	assert.Equal(t, "Fucidin", record.DrugName)
	assert.Equal(t, []string{`Store at 25°C \ protect from light`}, record.Storage)
}
