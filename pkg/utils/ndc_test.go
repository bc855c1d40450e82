package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractNDC(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{"package code", "NDC 50580-488-01 Tylenol", "50580-488-01", true},
		{"product code", "ndc: 0573-0164 advil", "0573-0164", true},
		{"first match wins", "12345-6789 and 54321-9876-1", "12345-6789", true},
		{"glued prefix", "NDC12345-6789-01", "12345-6789-01", true},
		{"glued suffix", "NDC 12345-6789-01x", "12345-6789-01", true},
		{"glued both sides", "lot#0573-0164caps", "0573-0164", true},
		{"too many leading digits", "123456-789", "", false},
		{"too many product digits", "12345-67890", "", false},
		{"no code", "Tylenol 500mg", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractNDC(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeToProductNDC(t *testing.T) {
	assert.Equal(t, "12345-6789", NormalizeToProductNDC("12345-6789-01"))
	assert.Equal(t, "12345-6789", NormalizeToProductNDC("12345-6789"))
	assert.Equal(t, "12345", NormalizeToProductNDC("12345"))
}

func TestIsPackageNDC(t *testing.T) {
	assert.True(t, IsPackageNDC("12345-6789-01"))
	assert.False(t, IsPackageNDC("12345-6789"))
}
