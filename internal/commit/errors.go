package commit

import "fmt"

// CommitError records a write that failed for one lesson.
type CommitError struct {
	LessonID string
	Count    int
	Cause    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("failed to create %d tasks for lesson %s: %v", e.Count, e.LessonID, e.Cause)
}

func (e *CommitError) Unwrap() error {
	return e.Cause
}
