package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is matched by every TransitionError.
	ErrInvalidTransition = errors.New("invalid phase transition")
	// ErrNoLessons is returned by Start when the scan found nothing eligible.
	ErrNoLessons = errors.New("no eligible lessons to generate for")
	// ErrNothingAccepted is returned by Create when no task is accepted.
	ErrNothingAccepted = errors.New("no accepted tasks to create")
	// ErrNotCancellable is returned when cancelling while loading or creating.
	ErrNotCancellable = errors.New("session cannot be cancelled in this phase")
	// ErrNotReviewing is returned by review operations outside the preview phase.
	ErrNotReviewing = errors.New("session is not in preview")
)

// TransitionError reports an action that is not allowed in the current phase.
type TransitionError struct {
	From   Phase
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
