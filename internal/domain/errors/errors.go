// Package errors defines domain error categories shared across layers.
package errors

import (
	"errors"
)

var (
	// ErrBotNotFound is returned when a routing key has no credentials.
	ErrBotNotFound = errors.New("bot not found")

	// ErrStaleRequest is returned when the request timestamp is outside the replay window.
	ErrStaleRequest = errors.New("request too old")

	// ErrBadSignature is returned when the request signature does not verify.
	ErrBadSignature = errors.New("invalid request signature")

	// ErrAnswerUnavailable is returned when the answer service fails or returns non-200.
	ErrAnswerUnavailable = errors.New("answer service unavailable")
)

// TransientError marks a failure that may succeed on retry
// (network errors, rate limits, platform 5xx).
type TransientError struct {
	msg string
	err error
}

// NewTransientError wraps err as transient.
func NewTransientError(msg string, err error) *TransientError {
	return &TransientError{msg: msg, err: err}
}

func (e *TransientError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// PermanentError marks a failure that will not succeed on retry.
type PermanentError struct {
	msg string
	err error
}

// NewPermanentError wraps err as permanent.
func NewPermanentError(msg string, err error) *PermanentError {
	return &PermanentError{msg: msg, err: err}
}

func (e *PermanentError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.err
}

// IsTransientError reports whether err (or anything it wraps) is transient.
func IsTransientError(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanentError reports whether err (or anything it wraps) is permanent.
func IsPermanentError(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
