// Package genai wraps the external text-generation provider behind a narrow
// interface so the pitch service can be tested without network calls.
package genai

import (
	"context"
	"errors"
	"fmt"
)

// Request carries everything one completion call needs.
type Request struct {
	SystemPrompt     string
	Prompt           string
	MaxTokens        int
	Temperature      float32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

// Usage is the provider-reported token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Generation is a successful completion.
type Generation struct {
	Text  string
	Usage Usage
}

// Provider generates text from a prompt pair.
type Provider interface {
	Generate(ctx context.Context, req Request) (Generation, error)
}

// ErrEmptyCompletion signals the provider answered with no text at all.
// Callers treat it like an availability failure.
var ErrEmptyCompletion = errors.New("genai: provider returned empty completion")

// UpstreamError wraps a provider failure with the HTTP status class that
// drives retry decisions.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("genai: upstream status %d: %v", e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is transient: rate limiting
// (429) or any server error (5xx).
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
