package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/shortbird/pathweaver/internal/pipeline"
	"github.com/shortbird/pathweaver/internal/review"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrSessionNotFound indicates the session id is unknown or already closed
type ErrSessionNotFound struct {
	SessionID string
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// ErrRunNotFound indicates no generation run has the id
type ErrRunNotFound struct {
	RunID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// ErrLessonNotFound indicates no lesson has the id
type ErrLessonNotFound struct {
	LessonID string
}

func (e *ErrLessonNotFound) Error() string {
	return fmt.Sprintf("lesson not found: %s", e.LessonID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation  *ErrValidation
		fieldErrors validator.ValidationErrors
		session     *ErrSessionNotFound
		run         *ErrRunNotFound
		lesson      *ErrLessonNotFound
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &fieldErrors):
		return http.StatusBadRequest
	case errors.As(err, &session), errors.As(err, &run), errors.As(err, &lesson),
		errors.Is(err, review.ErrUnknownLesson), errors.Is(err, review.ErrUnknownTask):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidTransition),
		errors.Is(err, pipeline.ErrNotReviewing),
		errors.Is(err, pipeline.ErrNotCancellable),
		errors.Is(err, pipeline.ErrNothingAccepted),
		errors.Is(err, pipeline.ErrNoLessons):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
