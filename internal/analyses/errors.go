package analyses

import (
	"errors"
	"fmt"
)

var (
	// ErrExternalService wraps any engine failure, including timeouts. Retryable.
	ErrExternalService = errors.New("external service error")
	// ErrMalformedResponse is returned when engine output cannot be validated.
	ErrMalformedResponse = errors.New("malformed engine response")
	// ErrConcurrencyConflict is returned when the per-document lock cannot be acquired.
	ErrConcurrencyConflict = errors.New("analysis already in progress")
	// ErrNotAnalyzed is returned when reading the analysis of an unanalyzed document.
	ErrNotAnalyzed = errors.New("document has not been analyzed")
)

// Stage identifies which validation step rejected an engine response.
type Stage string

const (
	StageParse     Stage = "parse"
	StageRiskScore Stage = "riskScore"
)

// MalformedResponseError carries the rejected raw output for logging.
type MalformedResponseError struct {
	Stage Stage
	Raw   string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrMalformedResponse, e.Stage)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformedResponse, e.Stage, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Is makes every MalformedResponseError match ErrMalformedResponse.
func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}
