package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewAnalysisError("model returned no content", errors.New("empty"))
	assert.Equal(t, "ANALYSIS: model returned no content: empty", err.Error())

	input := NewInputError("text too short")
	assert.Equal(t, "INPUT: text too short", input.Error())
}

func TestIsType_Wrapped(t *testing.T) {
	base := NewConfigurationError("openai api key is required", nil)
	wrapped := fmt.Errorf("resolve: %w", base)

	assert.True(t, IsType(wrapped, ErrorTypeConfiguration))
	assert.False(t, IsType(wrapped, ErrorTypeAnalysis))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeInternal))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewExternalError("registry unavailable", cause)
	assert.ErrorIs(t, err, cause)
}
