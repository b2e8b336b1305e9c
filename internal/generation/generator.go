// Package generation turns eligible lessons into candidate tasks by calling a
// generator once per lesson, in order.
package generation

import "context"

// Request asks the generator for Count tasks for one lesson.
type Request struct {
	LessonID string
	Text     string
	Title    string
	Count    int
}

// RawTask is a task exactly as the generator returned it.
type RawTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Pillar      string `json:"pillar"`
	XPValue     *int   `json:"xp_value,omitempty"`
}

// Response is the generator's answer. Error is only meaningful when Success is false.
type Response struct {
	Success bool      `json:"success"`
	Tasks   []RawTask `json:"tasks,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Generator produces candidate tasks for a single lesson.
// Implementations are called sequentially and never concurrently by the Driver.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
