package processmap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/deepnoodle-ai/processmap/retry"
	"github.com/stretchr/testify/require"
)

func TestStepErrorWrapping(t *testing.T) {
	// Test basic error creation
	err := NewStepError(ErrorTypeTimeout, "operation timed out")
	require.Equal(t, "timeout: operation timed out", err.Error())
	require.Nil(t, err.Unwrap())

	// Test error wrapping
	originalErr := errors.New("network connection failed")
	wrappedErr := &StepError{
		Type:    ErrorTypeStepFailed,
		Cause:   originalErr.Error(),
		Wrapped: originalErr,
	}
	require.Equal(t, "step_failed: network connection failed", wrappedErr.Error())
	require.Equal(t, originalErr, wrappedErr.Unwrap())
	require.True(t, errors.Is(wrappedErr, originalErr))

	var stepErr *StepError
	require.True(t, errors.As(fmt.Errorf("outer: %w", wrappedErr), &stepErr))
	require.Equal(t, ErrorTypeStepFailed, stepErr.Type)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"timeout text", errors.New("upstream timeout"), ErrorTypeTimeout},
		{"canceled", context.Canceled, ErrorTypeCanceled},
		{"generic", errors.New("something went wrong"), ErrorTypeStepFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			require.Equal(t, tt.want, classified.Type)
			require.True(t, errors.Is(classified, tt.err))
		})
	}

	// StepErrors pass through unchanged
	original := NewStepError(ErrorTypeAuthFailure, "bad token")
	require.Same(t, original, ClassifyError(original))
}

func TestStepErrorRecoverable(t *testing.T) {
	require.True(t, NewStepError(ErrorTypeTimeout, "").IsRecoverable())
	require.True(t, NewStepError(ErrorTypeMockTimeout, "").IsRecoverable())
	require.True(t, NewStepError(ErrorTypeRateLimit, "").IsRecoverable())
	require.False(t, NewStepError(ErrorTypeAuthFailure, "").IsRecoverable())
	require.False(t, NewStepError(ErrorTypeValidation, "").IsRecoverable())
	require.False(t, NewStepError(ErrorTypePanic, "").IsRecoverable())
	require.False(t, NewStepError(ErrorTypeStepFailed, "").IsRecoverable())

	transient := &StepError{
		Type:    ErrorTypeStepFailed,
		Wrapped: retry.NewRecoverableError(errors.New("flaky")),
	}
	require.True(t, transient.IsRecoverable())
	require.True(t, retry.IsRecoverable(transient))
}

func TestErrorDetails(t *testing.T) {
	details := errorDetails(&StepError{
		Type:    ErrorTypeMockError,
		Cause:   "mocked",
		Details: map[string]any{"mock_id": "m1"},
	})
	require.Equal(t, map[string]any{
		"type":        ErrorTypeMockError,
		"recoverable": false,
		"mock_id":     "m1",
	}, details)
}
