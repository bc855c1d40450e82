package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

func labelWithTypes(types ...string) *entities.LabelSnapshot {
	return &entities.LabelSnapshot{
		Found:  true,
		Record: &entities.LabelRecord{ProductTypes: types},
	}
}

func TestClassifyProduct_RegistryTypes(t *testing.T) {
	tests := []struct {
		name       string
		types      []string
		kind       entities.ProductKind
		confidence int
	}{
		{"otc drug", []string{"HUMAN OTC DRUG"}, entities.ProductKindHumanDrug, 92},
		{"prescription drug", []string{"HUMAN PRESCRIPTION DRUG"}, entities.ProductKindHumanDrug, 92},
		{"dietary supplement", []string{"DIETARY SUPPLEMENT"}, entities.ProductKindHumanSupplement, 92},
		{"animal drug", []string{"ANIMAL DRUG"}, entities.ProductKindVeterinaryDrug, 95},
		{"animal supplement", []string{"ANIMAL DIETARY SUPPLEMENT"}, entities.ProductKindVeterinarySupplement, 95},
		{"unrecognised", []string{"VACCINE"}, entities.ProductKindUnknown, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The corpus would say veterinary; registry data wins.
			got := services.ClassifyProduct(labelWithTypes(tt.types...), "for dogs and cats")
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, []string{"Registry product type: " + tt.types[0]}, got.Reasons)
		})
	}
}

func TestClassifyProduct_FallsBackToKeywords(t *testing.T) {
	corpus := "Vitamin D3 1000 IU softgels"
	want := services.ClassifyFromKeywords(corpus)

	assert.Equal(t, want, services.ClassifyProduct(nil, corpus))
	assert.Equal(t, want, services.ClassifyProduct(&entities.LabelSnapshot{Found: false}, corpus))
	assert.Equal(t, want, services.ClassifyProduct(labelWithTypes(" ", ""), corpus))
	assert.Equal(t, entities.ProductKindHumanSupplement, want.Kind)
	assert.Equal(t, 65, want.Confidence)
}

func TestClassifyFromKeywords(t *testing.T) {
	t.Run("veterinary supplement", func(t *testing.T) {
		got := services.ClassifyFromKeywords("Omega 3 chews for dogs")
		assert.Equal(t, entities.ProductKindVeterinarySupplement, got.Kind)
		assert.Equal(t, 70, got.Confidence)
		assert.Contains(t, got.Reasons, "Veterinary keyword: dogs")
		assert.Contains(t, got.Reasons, "Supplement keyword: omega 3")
		assert.NotContains(t, got.Reasons, "Veterinary keyword: dog")
	})

	t.Run("veterinary drug", func(t *testing.T) {
		got := services.ClassifyFromKeywords("Frontline Plus spot on for cats")
		assert.Equal(t, entities.ProductKindVeterinaryDrug, got.Kind)
		assert.Equal(t, 65, got.Confidence)
	})

	t.Run("whole words only for latin cues", func(t *testing.T) {
		got := services.ClassifyFromKeywords("Catapres clonidine")
		assert.Equal(t, entities.ProductKindUnknown, got.Kind)
	})

	t.Run("arabic cues", func(t *testing.T) {
		got := services.ClassifyFromKeywords("فيتامينات للحيوانات")
		assert.Equal(t, entities.ProductKindVeterinarySupplement, got.Kind)
	})

	t.Run("insufficient signals", func(t *testing.T) {
		got := services.ClassifyFromKeywords("Tylenol 500")
		assert.Equal(t, entities.ProductKindUnknown, got.Kind)
		assert.Equal(t, 50, got.Confidence)
		assert.Equal(t, []string{"Insufficient signals"}, got.Reasons)
	})
}
