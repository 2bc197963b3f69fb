package analyses

import (
	"errors"

	"legaldoc-backend/internal/llm"
)

// Retryable reports whether repeating the failed call later may succeed.
// Analyses are never retried automatically; the HTTP layer surfaces this to callers.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConcurrencyConflict) {
		return true
	}
	if !errors.Is(err, ErrExternalService) {
		return false
	}
	return shouldRetryLLM(err)
}

func shouldRetryLLM(err error) bool {
	if errors.Is(err, llm.ErrNotConfigured) {
		return false
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	// Anything else, timeouts included, is treated as transient.
	return true
}
