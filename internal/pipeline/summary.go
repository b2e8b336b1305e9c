package pipeline

import (
	"errors"
	"fmt"

	"github.com/shortbird/pathweaver/internal/generation"
	"github.com/shortbird/pathweaver/internal/types"
)

const maxWarnings = 5

// LessonError is a per-lesson generation failure, kept for display.
type LessonError struct {
	LessonID    string `json:"lesson_id"`
	LessonTitle string `json:"lesson_title"`
	Message     string `json:"message"`
	NoContent   bool   `json:"no_content,omitempty"`
}

// GenerationSummary aggregates a generation run.
type GenerationSummary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Cancelled bool          `json:"cancelled"`
	Errors    []LessonError `json:"errors,omitempty"`
}

// Summarize builds a summary from driver results, in lesson order.
func Summarize(lessons []types.Lesson, results map[string]generation.Result, cancelled bool) *GenerationSummary {
	s := &GenerationSummary{Total: len(lessons), Cancelled: cancelled}
	for _, l := range lessons {
		r, ok := results[l.ID]
		if !ok {
			continue
		}
		if r.OK() {
			s.Succeeded++
			continue
		}
		s.Failed++
		var noContentErr *generation.NoContentError
		noContent := errors.As(r.Err, &noContentErr)
		s.Errors = append(s.Errors, LessonError{
			LessonID:    l.ID,
			LessonTitle: l.Title,
			Message:     r.Err.Error(),
			NoContent:   noContent,
		})
	}
	return s
}

// Message is the one-line result shown to the user.
func (s *GenerationSummary) Message() string {
	if s.Cancelled {
		return fmt.Sprintf("Generation cancelled after %d of %d lessons", s.Succeeded+s.Failed, s.Total)
	}
	if s.Failed == 0 {
		return fmt.Sprintf("Generated tasks for %d of %d lessons", s.Succeeded, s.Total)
	}
	return fmt.Sprintf("Generated tasks for %d of %d lessons; %d failed", s.Succeeded, s.Total, s.Failed)
}

// Warnings lists the first few failures plus a "+N more" line for the rest.
func (s *GenerationSummary) Warnings() []string {
	var lines []string
	for i, e := range s.Errors {
		if i == maxWarnings {
			lines = append(lines, fmt.Sprintf("+%d more", len(s.Errors)-maxWarnings))
			break
		}
		name := e.LessonTitle
		if name == "" {
			name = e.LessonID
		}
		msg := e.Message
		if e.NoContent {
			msg = "no content"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, msg))
	}
	return lines
}
