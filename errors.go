package processmap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/processmap/retry"
)

// Error type constants for classification of step failures
const (
	// ErrorTypeStepFailed is the default classification for a failed step
	ErrorTypeStepFailed = "step_failed"

	// ErrorTypeTimeout indicates the step exceeded its configured timeout
	ErrorTypeTimeout = "timeout"

	// ErrorTypeCanceled indicates the run was canceled while the step ran
	ErrorTypeCanceled = "canceled"

	// ErrorTypeValidation indicates input validation blocked the step
	ErrorTypeValidation = "validation_failed"

	// ErrorTypePanic indicates the executor panicked
	ErrorTypePanic = "panic"

	// Injected mock faults
	ErrorTypeMockError   = "mock_error"
	ErrorTypeMockTimeout = "mock_timeout"
	ErrorTypeRateLimit   = "rate_limit"
	ErrorTypeAuthFailure = "auth_failure"
)

// StepError represents a structured step failure with classification.
// It supports Go's error wrapping patterns with Unwrap() method
type StepError struct {
	Type    string         `json:"type"`
	Cause   string         `json:"cause"`
	Details map[string]any `json:"details,omitempty"`
	Wrapped error          `json:"-"`
}

// Error implements the error interface
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Cause)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *StepError) Unwrap() error {
	return e.Wrapped
}

// IsRecoverable reports whether retrying the step could plausibly succeed.
// Timeouts and rate limiting are transient; everything else is not.
func (e *StepError) IsRecoverable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeMockTimeout, ErrorTypeRateLimit:
		return true
	case ErrorTypeStepFailed:
		return e.Wrapped != nil && retry.IsRecoverable(e.Wrapped)
	}
	return false
}

// NewStepError creates a new StepError with the specified type and cause.
func NewStepError(errorType, cause string) *StepError {
	return &StepError{
		Type:  errorType,
		Cause: cause,
	}
}

// ClassifyError converts an arbitrary error into a StepError
func ClassifyError(err error) *StepError {
	var stepError *StepError
	if errors.As(err, &stepError) {
		return stepError
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(strings.ToLower(err.Error()), "timeout"),
		strings.Contains(strings.ToLower(err.Error()), "timed out"):
		return &StepError{
			Type:    ErrorTypeTimeout,
			Cause:   err.Error(),
			Wrapped: err,
		}
	case errors.Is(err, context.Canceled):
		return &StepError{
			Type:    ErrorTypeCanceled,
			Cause:   err.Error(),
			Wrapped: err,
		}
	}
	return &StepError{
		Type:    ErrorTypeStepFailed,
		Cause:   err.Error(),
		Wrapped: err,
	}
}

// errorDetails builds the details map recorded on a failed step result.
func errorDetails(err error) map[string]any {
	stepErr := ClassifyError(err)
	details := map[string]any{
		"type":        stepErr.Type,
		"recoverable": retry.IsRecoverable(stepErr),
	}
	for k, v := range stepErr.Details {
		details[k] = v
	}
	return details
}

// CyclicDependencyError is returned when the step dependencies of a workflow
// form a cycle. Steps lists the cycle, starting and ending with the same id.
type CyclicDependencyError struct {
	Steps []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic step dependency: %s", strings.Join(e.Steps, " -> "))
}
