package db

import (
	"time"

	"github.com/shortbird/pathweaver/internal/types"
)

// Quest represents a quest record
type Quest struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Ref returns the quest as a scan reference.
func (q Quest) Ref() types.QuestRef {
	return types.QuestRef{ID: q.ID, Title: q.Title}
}

// QuestRefs converts quests to scan references, keeping order.
func QuestRefs(quests []Quest) []types.QuestRef {
	refs := make([]types.QuestRef, len(quests))
	for i, q := range quests {
		refs[i] = q.Ref()
	}
	return refs
}

// Task represents a stored quest task
type Task struct {
	ID          string    `json:"id"`
	QuestID     string    `json:"quest_id"`
	LessonID    *string   `json:"lesson_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Pillar      string    `json:"pillar"`
	XPValue     int       `json:"xp_value"`
	CreatedAt   time.Time `json:"created_at"`
}
