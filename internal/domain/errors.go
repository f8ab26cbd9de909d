package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("content not found")
	ErrNoContent            = errors.New("no extractable content")
	ErrInferenceUnavailable = errors.New("inference unavailable")
	ErrRequiredStage        = errors.New("required stage failed")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrUnsupportedType      = errors.New("unsupported content type")
)

// TransientError marks fetch timeouts and non-2xx upstream responses.
// These are retried only through an explicit re-trigger.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err carries a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
