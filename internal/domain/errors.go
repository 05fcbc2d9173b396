package domain

import (
	"errors"
	"fmt"
)

// ErrJobNotFound is returned when a job ID does not exist in the registry.
var ErrJobNotFound = errors.New("job not found")

// ErrorKind classifies an extraction failure for callers.
type ErrorKind string

const (
	ErrKindInvalidInput        ErrorKind = "invalid_input"
	ErrKindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	ErrKindRateLimited         ErrorKind = "upstream_rate_limited"
	ErrKindMalformedOutput     ErrorKind = "malformed_model_output"
	ErrKindValidationFailed    ErrorKind = "validation_failed"
	ErrKindCancelled           ErrorKind = "cancelled"
)

// ExtractionError is the typed failure returned by the extraction pipeline.
// Every error carries a machine-readable kind, a human-readable detail, and
// whether the caller may usefully retry.
type ExtractionError struct {
	Kind      ErrorKind
	Detail    string
	Retryable bool
	Err       error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewInvalidInput creates a client-caused, non-retryable error.
func NewInvalidInput(detail string) *ExtractionError {
	return &ExtractionError{Kind: ErrKindInvalidInput, Detail: detail}
}

// NewUpstreamUnavailable creates a provider outage or auth failure error.
func NewUpstreamUnavailable(detail string, err error) *ExtractionError {
	return &ExtractionError{Kind: ErrKindUpstreamUnavailable, Detail: detail, Err: err}
}

// NewRateLimited creates a rate-limit error surfaced after internal retries
// were exhausted. The caller may try again later.
func NewRateLimited(detail string, err error) *ExtractionError {
	return &ExtractionError{Kind: ErrKindRateLimited, Detail: detail, Retryable: true, Err: err}
}

// NewMalformedOutput creates an error for model output that could not be
// parsed into the expected schema.
func NewMalformedOutput(detail string, err error) *ExtractionError {
	return &ExtractionError{Kind: ErrKindMalformedOutput, Detail: detail, Err: err}
}

// NewValidationFailed creates an error for structurally valid but semantically
// unacceptable invoice data.
func NewValidationFailed(detail string) *ExtractionError {
	return &ExtractionError{Kind: ErrKindValidationFailed, Detail: detail}
}

// NewCancelled creates an error for a request abandoned by the caller.
func NewCancelled(err error) *ExtractionError {
	return &ExtractionError{Kind: ErrKindCancelled, Detail: "request cancelled by caller", Err: err}
}

// AsExtractionError unwraps err into an *ExtractionError if possible.
func AsExtractionError(err error) (*ExtractionError, bool) {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
