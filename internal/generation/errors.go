package generation

import "fmt"

// DefaultFailureMessage is recorded when a generator failure carries no message.
const DefaultFailureMessage = "Generation failed"

// NoContentError reports a lesson whose content yields no text to generate from.
type NoContentError struct {
	LessonID string
}

func (e *NoContentError) Error() string {
	return fmt.Sprintf("lesson %s has no content to generate from", e.LessonID)
}

// GenerationError reports that the generator failed for one lesson.
type GenerationError struct {
	LessonID string
	Message  string
	Cause    error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// APICallError represents an error from the LLM API
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError represents an error parsing the LLM response
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// failureMessage picks the message recorded for a failed lesson.
func failureMessage(msg string, err error) string {
	if msg != "" {
		return msg
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return DefaultFailureMessage
}
