package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// DefaultXPValue is used when the generator does not suggest an XP value.
const DefaultXPValue = 100

// Pillar constants name the learning areas a task can belong to.
const (
	PillarSTEM          = "stem"
	PillarWellness      = "wellness"
	PillarCommunication = "communication"
	PillarCivics        = "civics"
	PillarArt           = "art"
)

// Pillars lists every valid pillar.
var Pillars = []string{PillarSTEM, PillarWellness, PillarCommunication, PillarCivics, PillarArt}

// NormalizePillar lowercases a pillar name and maps unknown values to stem.
func NormalizePillar(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	for _, known := range Pillars {
		if p == known {
			return p
		}
	}
	return PillarSTEM
}

// GeneratedTask is a generated candidate task awaiting review.
// ID is minted client-side and is unique within one generation run.
type GeneratedTask struct {
	ID          string `json:"id"`
	LessonID    string `json:"lesson_id"`
	QuestID     string `json:"quest_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Pillar      string `json:"pillar"`
	XPValue     int    `json:"xp_value"`
}

// Draft strips the review-only fields from the task.
func (t GeneratedTask) Draft() TaskDraft {
	return TaskDraft{
		Title:       t.Title,
		Description: t.Description,
		Pillar:      t.Pillar,
		XPValue:     t.XPValue,
	}
}

// TaskDraft is a task as sent to the store.
type TaskDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Pillar      string `json:"pillar"`
	XPValue     int    `json:"xp_value"`
}

// TaskPatch holds the fields a reviewer may change on a generated task.
// Nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4000"`
	Pillar      *string `json:"pillar,omitempty" validate:"omitempty,oneof=stem wellness communication civics art"`
	XPValue     *int    `json:"xp_value,omitempty" validate:"omitempty,min=0,max=10000"`
}

// NewValidator returns a validator that also knows the "notblank" tag, which
// rejects strings made only of whitespace.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

var patchValidator = NewValidator()

// Validate validates the TaskPatch using the validator.
func (p *TaskPatch) Validate() error {
	return patchValidator.Struct(p)
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Pillar == nil && p.XPValue == nil
}

// Apply returns a copy of t with the patch merged in.
func (p TaskPatch) Apply(t GeneratedTask) GeneratedTask {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Pillar != nil {
		t.Pillar = *p.Pillar
	}
	if p.XPValue != nil {
		t.XPValue = *p.XPValue
	}
	return t
}

// CommitRequest is one write to the store: every accepted task of a lesson.
type CommitRequest struct {
	LessonID string      `json:"lesson_id"`
	QuestID  string      `json:"quest_id"`
	Tasks    []TaskDraft `json:"tasks"`
}
