package providers

import (
	"context"
	"errors"
)

var (
	// ErrTextGenerationUnauthorized is returned when the model provider rejects the credential.
	ErrTextGenerationUnauthorized = errors.New("text generation unauthorized")
	// ErrTextGenerationNotConfigured is returned when no credential was configured.
	ErrTextGenerationNotConfigured = errors.New("text generation not configured")
	// ErrEmptyCompletion is returned when the model answered without any text.
	ErrEmptyCompletion = errors.New("text generation returned no content")
)

// CompletionRequest is a single system + user exchange with a generative model.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	// JSONObject asks the model for object-shaped output.
	JSONObject      bool
	Temperature     float64
	MaxOutputTokens int
}

// TextGenerationProvider sends one prompt to a generative model and returns its raw text.
// The returned text is untrusted and may not be valid JSON.
type TextGenerationProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
