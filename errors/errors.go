package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Classification identifies the retryable failure modes of the generation
// backend. These three are the only classifications the pipeline reasons
// about; anything else coming out of the transport is wrapped as
// ClassProvider.
type Classification string

const (
	ClassRateLimited Classification = "RateLimited"
	ClassTimeout     Classification = "Timeout"
	ClassProvider    Classification = "ProviderError"
)

// ProviderError is a classified failure from the generation backend.
// All three classifications are retryable by the dispatcher.
type ProviderError struct {
	Class Classification
	Raw   error
}

func (e *ProviderError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %v", e.Class, e.Raw)
	}
	return string(e.Class)
}

func (e *ProviderError) Unwrap() error { return e.Raw }

// RateLimited wraps an upstream quota-exhaustion failure.
func RateLimited(err error) *ProviderError {
	return &ProviderError{Class: ClassRateLimited, Raw: err}
}

// Timeout wraps an upstream deadline failure.
func Timeout(err error) *ProviderError {
	return &ProviderError{Class: ClassTimeout, Raw: err}
}

// Provider wraps any other upstream failure.
func Provider(err error) *ProviderError {
	return &ProviderError{Class: ClassProvider, Raw: err}
}

// IsRetryable reports whether err carries one of the retryable
// classifications. Only *ProviderError qualifies; everything else (malformed
// prompt inputs, programming errors) must propagate without retry.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return stderrors.As(err, &pe)
}

// SchemaViolation is raised when a generated payload fails structural or
// semantic validation. Violations lists every constraint found broken.
type SchemaViolation struct {
	SchemaKind string
	Violations []string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("schema violation (%s): %s", e.SchemaKind, strings.Join(e.Violations, "; "))
}

// NewSchemaViolation builds a SchemaViolation for the given schema kind.
func NewSchemaViolation(kind string, violations ...string) *SchemaViolation {
	return &SchemaViolation{SchemaKind: kind, Violations: violations}
}

// RepairTimeout is raised when the single repair call exceeds its deadline.
// Terminal for the request; no further repair is attempted.
type RepairTimeout struct {
	Timeout time.Duration
}

func (e *RepairTimeout) Error() string {
	return fmt.Sprintf("repair timed out after %s", e.Timeout)
}

// UpstreamError surfaces when the dispatcher exhausts its retry budget.
// Last preserves the final classified failure unchanged.
type UpstreamError struct {
	Last     *ProviderError
	Attempts int
	Elapsed  time.Duration
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts (%s): %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.Last)
}

func (e *UpstreamError) Unwrap() error { return e.Last }

// ValidationError surfaces when the repaired payload still fails validation.
// Terminal for the request.
type ValidationError struct {
	Violation error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("generated payload invalid after repair: %v", e.Violation)
}

func (e *ValidationError) Unwrap() error { return e.Violation }
