package shared

import "errors"

// Error classes shared by both services. Concrete domain errors match one of
// these through errors.Is so that every boundary (HTTP, consumer) can classify
// a failure without knowing its concrete type.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidReference   = errors.New("invalid reference")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrTransientIO        = errors.New("transient io failure")
	ErrDuplicate          = errors.New("duplicate")
)

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Transient marks err as retryable store or broker unavailability.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err: err}
}

type transientError struct {
	err error
}

func (e transientError) Error() string { return e.err.Error() }

func (e transientError) Unwrap() error { return e.err }

func (e transientError) Is(target error) bool {
	return target == ErrTransientIO
}
