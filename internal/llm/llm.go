package llm

import (
	"context"
	"errors"
	"fmt"
)

// Engine abstracts the external reasoning engine that turns a prompt into
// free-form text. Implementations must honor ctx cancellation.
type Engine interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by the placeholder engine.
var ErrNotConfigured = errors.New("llm provider not configured")

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm response empty")

// APIError reports a non-success answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s api error: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s api error: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the call may succeed if repeated later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// PlaceholderEngine is used when no provider is configured.
type PlaceholderEngine struct{}

// Generate returns ErrNotConfigured.
func (PlaceholderEngine) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}

// Func adapts a plain function to the Engine interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
