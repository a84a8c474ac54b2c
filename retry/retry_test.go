package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("integration responded with %d", e.code)
}

func (e *statusError) StatusCode() int {
	return e.code
}

func TestRecoverableError(t *testing.T) {
	err := NewRecoverableError(errors.New("test error"))
	assert.True(t, IsRecoverable(err))
	assert.False(t, IsRecoverable(errors.New("test error")))
	assert.False(t, IsRecoverable(nil))
}

func TestNonRecoverableErrorWins(t *testing.T) {
	err := NewNonRecoverableError(errors.New("request timeout"))
	assert.False(t, IsRecoverable(err))
	assert.Equal(t, "request timeout", err.Error())
}

func TestContextErrors(t *testing.T) {
	assert.True(t, IsRecoverable(context.DeadlineExceeded))
	assert.True(t, IsRecoverable(fmt.Errorf("step: %w", context.DeadlineExceeded)))
	assert.False(t, IsRecoverable(context.Canceled))
}

func TestStatusCodes(t *testing.T) {
	assert.True(t, IsRecoverable(&statusError{code: 429}))
	assert.True(t, IsRecoverable(&statusError{code: 503}))
	assert.False(t, IsRecoverable(&statusError{code: 401}))
	assert.False(t, IsRecoverable(&statusError{code: 400}))
}

func TestMessagePatterns(t *testing.T) {
	assert.True(t, IsRecoverable(errors.New("Rate limit exceeded for integration")))
	assert.True(t, IsRecoverable(errors.New("upstream timed out")))
	assert.False(t, IsRecoverable(errors.New("invalid credentials")))
}
