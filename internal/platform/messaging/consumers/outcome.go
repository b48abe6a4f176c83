package consumers

import (
	"errors"

	"github.com/transfer-antifraud-saga/internal/domain/shared"
)

// Outcome tells the consumer loop what to do with a handled message
type Outcome int

const (
	// Applied means the message changed state; commit the offset.
	Applied Outcome = iota
	// Duplicate means the message was already applied; commit without side effects.
	Duplicate
	// Retryable means a transient failure; deliver the message again.
	Retryable
	// Fatal means the message can never succeed; hand it to the dead-letter topic.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is what a MessageHandler returns instead of a bare error
type Result struct {
	Outcome Outcome
	Err     error
}

func AppliedResult() Result {
	return Result{Outcome: Applied}
}

func DuplicateResult() Result {
	return Result{Outcome: Duplicate}
}

func RetryableResult(err error) Result {
	return Result{Outcome: Retryable, Err: err}
}

func FatalResult(err error) Result {
	return Result{Outcome: Fatal, Err: err}
}

// Classify maps an error from the domain taxonomy onto a consumer outcome.
// Anything unrecognised is treated as transient.
func Classify(err error) Result {
	switch {
	case err == nil:
		return AppliedResult()
	case errors.Is(err, shared.ErrDuplicate):
		return Result{Outcome: Duplicate, Err: err}
	case errors.Is(err, shared.ErrTransientIO):
		return RetryableResult(err)
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrNotFound),
		errors.Is(err, shared.ErrInvalidReference),
		errors.Is(err, shared.ErrInvalidTransition),
		errors.Is(err, shared.ErrInvariantViolation):
		return FatalResult(err)
	default:
		return RetryableResult(err)
	}
}
