package review

import "errors"

var (
	// ErrUnknownLesson is returned for a lesson the ledger has no tasks for.
	ErrUnknownLesson = errors.New("lesson not found in review ledger")
	// ErrUnknownTask is returned for a task id not among the lesson's generated tasks.
	ErrUnknownTask = errors.New("task not found in review ledger")
)
