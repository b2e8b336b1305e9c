package types

import (
	"time"

	"github.com/google/uuid"
)

// Generation run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCancelled = "cancelled"
	RunStatusDiscarded = "discarded"
	RunStatusCommitted = "committed"
)

// RunResult is the final state of a generation run.
type RunResult struct {
	Status           string `json:"status"`
	LessonsSucceeded int    `json:"lessons_succeeded"`
	LessonsFailed    int    `json:"lessons_failed"`
	TasksGenerated   int    `json:"tasks_generated"`
	TasksCreated     int    `json:"tasks_created"`
	TasksFailed      int    `json:"tasks_failed"`
}

// GenerationRun is the audit record of one generation run.
type GenerationRun struct {
	ID          uuid.UUID `json:"id"`
	SessionID   string    `json:"session_id"`
	LessonCount int       `json:"lesson_count"`
	RunResult
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
