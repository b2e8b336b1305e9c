package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortbird/pathweaver/internal/generation"
	"github.com/shortbird/pathweaver/internal/types"
)

func TestSummarize(t *testing.T) {
	lessons := []types.Lesson{
		{ID: "A", Title: "Alpha"},
		{ID: "B", Title: "Beta"},
		{ID: "C", Title: "Gamma"},
		{ID: "D", Title: "Delta"},
	}
	results := map[string]generation.Result{
		"A": {Tasks: []types.GeneratedTask{{ID: "A-1"}}},
		"B": {Err: &generation.GenerationError{LessonID: "B", Message: "quota exceeded"}},
		"C": {Err: &generation.NoContentError{LessonID: "C"}},
	}

	s := Summarize(lessons, results, false)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 2, s.Failed)
	require.Len(t, s.Errors, 2)
	assert.Equal(t, "B", s.Errors[0].LessonID)
	assert.False(t, s.Errors[0].NoContent)
	assert.True(t, s.Errors[1].NoContent)
	assert.Equal(t, []string{"Beta: quota exceeded", "Gamma: no content"}, s.Warnings())
}

func TestSummary_Message(t *testing.T) {
	assert.Equal(t, "Generated tasks for 8 of 10 lessons; 2 failed",
		(&GenerationSummary{Total: 10, Succeeded: 8, Failed: 2}).Message())
	assert.Equal(t, "Generated tasks for 3 of 3 lessons",
		(&GenerationSummary{Total: 3, Succeeded: 3}).Message())
	assert.Equal(t, "Generation cancelled after 2 of 5 lessons",
		(&GenerationSummary{Total: 5, Succeeded: 2, Cancelled: true}).Message())
}

func TestSummary_WarningsCapped(t *testing.T) {
	s := &GenerationSummary{}
	for i := range 8 {
		s.Errors = append(s.Errors, LessonError{LessonID: fmt.Sprint(i), Message: "failed"})
	}

	warnings := s.Warnings()

	require.Len(t, warnings, 6)
	assert.Equal(t, "0: failed", warnings[0])
	assert.Equal(t, "+3 more", warnings[5])
}

func TestSummary_NoWarnings(t *testing.T) {
	assert.Empty(t, (&GenerationSummary{Total: 2, Succeeded: 2}).Warnings())
}
