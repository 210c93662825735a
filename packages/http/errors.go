package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
)

// ErrCancelled is returned when the run context is cancelled while a request
// is waiting for its next attempt.
var ErrCancelled = errors.New("request cancelled")

// TransientError reports a failure that was retried until the attempt budget
// ran out: a connection error, a timeout, or a retryable status code.
type TransientError struct {
	Attempts   int
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("giving up after %d attempt(s): status %d", e.Attempts, e.StatusCode)
	}
	return fmt.Sprintf("giving up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NonTransientError reports a failure that is not retried: an invalid
// request, a rejected certificate, or a status code that signals a client or
// server fault.
type NonTransientError struct {
	StatusCode int
	Err        error
}

func (e *NonTransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return e.Err.Error()
}

func (e *NonTransientError) Unwrap() error {
	return e.Err
}

func nonTransient(format string, args ...any) error {
	return &NonTransientError{Err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var nte *NonTransientError
	if errors.As(err, &nte) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var certErr *tls.CertificateVerificationError
	return !errors.As(err, &certErr)
}
