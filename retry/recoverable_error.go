// Package retry classifies step failures as recoverable (worth retrying on a
// later run) or permanent.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
)

// RecoverableError is implemented by errors that know whether a retry could
// succeed.
type RecoverableError interface {
	error
	IsRecoverable() bool
}

// StatusCoder is implemented by errors that carry an HTTP-like status code.
// Mocked faults are StepErrors and classify themselves, so this only applies
// to errors returned by custom step executors.
type StatusCoder interface {
	StatusCode() int
}

// IsRecoverable checks if an error can be retried
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}

	var recoverable RecoverableError
	if errors.As(err, &recoverable) {
		return recoverable.IsRecoverable()
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		return IsRecoverableStatus(coder.StatusCode())
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, context.Canceled):
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return matchesRecoverablePattern(err.Error())
}

// IsRecoverableStatus reports whether a status code describes a transient
// condition: throttling or an unavailable upstream.
func IsRecoverableStatus(code int) bool {
	switch code {
	case 408, 429, 502, 503, 504:
		return true
	}
	return false
}

var recoverablePatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"timed out",
	"temporary failure",
	"rate limit",
	"too many requests",
	"service unavailable",
	"bad gateway",
}

func matchesRecoverablePattern(message string) bool {
	message = strings.ToLower(message)
	for _, pattern := range recoverablePatterns {
		if strings.Contains(message, pattern) {
			return true
		}
	}
	return false
}

type recoverableError struct {
	err error
}

func (e *recoverableError) Error() string {
	return e.err.Error()
}

func (e *recoverableError) IsRecoverable() bool {
	return true
}

func (e *recoverableError) Unwrap() error {
	return e.err
}

// NewRecoverableError marks err as recoverable
func NewRecoverableError(err error) error {
	return &recoverableError{err: err}
}

// NonRecoverableError represents an error that should not be retried
type NonRecoverableError struct {
	err error
}

func (e *NonRecoverableError) Error() string {
	return e.err.Error()
}

func (e *NonRecoverableError) IsRecoverable() bool {
	return false
}

func (e *NonRecoverableError) Unwrap() error {
	return e.err
}

// NewNonRecoverableError marks err as permanent
func NewNonRecoverableError(err error) *NonRecoverableError {
	return &NonRecoverableError{err: err}
}
