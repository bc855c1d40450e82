package services_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/medscan/backend/internal/application/services"
)

func TestBuildSearchSeed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: "  \n\t ", expected: ""},
		{name: "brand with dosage noise", input: "Tylenol 500mg tablet take 1 every 6 hours", expected: "Tylenol 500mg"},
		{name: "frequency ranks first", input: "Panadol Extra\npanadol PANADOL extra caffeine", expected: "Panadol Extra caffeine"},
		{name: "arabic stopwords dropped", input: "بانادول أقراص 500 ملجم", expected: "بانادول 500"},
		{name: "nfkc folds fullwidth", input: "ＡＤＶＩＬ tablets", expected: "ADVIL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, services.BuildSearchSeed(tt.input))
		})
	}
}

func TestBuildSearchSeed_IdentifierShortCircuit(t *testing.T) {
	noise := []string{
		"NDC 50580-488-01 Tylenol Extra Strength",
		"lot 42 ### 50580-488-01 ??? exp 2027",
		"50580-488-01",
		"باراسيتامول 50580-488-01 أقراص",
		"NDC50580-488-01",
		"Tylenol ndc:50580-488-01caplets",
	}
	for _, input := range noise {
		assert.Equal(t, `"50580-488-01"`, services.BuildSearchSeed(input), input)
	}

	assert.Equal(t, `"50580-488"`, services.BuildSearchSeed("Tylenol ndc 50580-488 caplets"))
}

func TestBuildSearchSeed_StopwordInvariance(t *testing.T) {
	base := "Amoxil amoxicillin Amoxil GlaxoSmithKline amoxicillin Amoxil"
	padded := base + " tablets capsules mg ml oral suspension each contains أقراص ملجم"

	assert.Equal(t, services.BuildSearchSeed(base), services.BuildSearchSeed(padded))
	assert.Equal(t, "Amoxil amoxicillin GlaxoSmithKline", services.BuildSearchSeed(base))
}

func TestBuildSearchSeed_CapsAtTenTokens(t *testing.T) {
	input := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"
	seed := services.BuildSearchSeed(input)

	assert.Len(t, strings.Fields(seed), 10)
	assert.True(t, strings.HasPrefix(seed, "alpha bravo"))
	assert.NotContains(t, seed, "kilo")
}

func TestBuildSearchSeed_FallsBackToRawLines(t *testing.T) {
	t.Run("pure noise", func(t *testing.T) {
		assert.Equal(t, "%$&^# ___ ???", services.BuildSearchSeed("%$&^# ___ ???"))
	})

	t.Run("first three lines", func(t *testing.T) {
		input := "tablets\n\n5 mg\nrx only\nstore below 25"
		assert.Equal(t, "tablets 5 mg rx only", services.BuildSearchSeed(input))
	})

	t.Run("truncated to 120 characters", func(t *testing.T) {
		input := strings.Repeat("mg ", 80)
		seed := services.BuildSearchSeed(input)
		assert.LessOrEqual(t, len([]rune(seed)), 120)
		assert.NotEmpty(t, seed)
	})
}
