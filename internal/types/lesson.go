// Package types provides type definitions for the structured data shared by the
// bulk task generation pipeline, its store and its HTTP API.
package types

import "encoding/json"

// QuestRef identifies a quest whose lessons should be scanned.
type QuestRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Lesson is a unit of quest content that tasks can be generated for.
// Lessons are read-only once scanned.
type Lesson struct {
	ID            string          `json:"id"`
	QuestID       string          `json:"quest_id"`
	QuestTitle    string          `json:"quest_title"`
	Title         string          `json:"title"`
	Content       json.RawMessage `json:"content,omitempty"`
	LinkedTaskIDs []string        `json:"linked_task_ids,omitempty"`
	Published     bool            `json:"published"`
	SequenceOrder int             `json:"sequence_order"`
}

// HasLinkedTasks reports whether the lesson already has tasks attached.
func (l Lesson) HasLinkedTasks() bool {
	return len(l.LinkedTaskIDs) > 0
}

// QuestLessons groups lessons under their quest, for display.
type QuestLessons struct {
	QuestID    string   `json:"quest_id"`
	QuestTitle string   `json:"quest_title"`
	Lessons    []Lesson `json:"lessons"`
}

// GroupByQuest groups lessons by quest, keeping first-seen quest order and the
// original lesson order inside each quest.
func GroupByQuest(lessons []Lesson) []QuestLessons {
	var groups []QuestLessons
	index := make(map[string]int)
	for _, l := range lessons {
		i, ok := index[l.QuestID]
		if !ok {
			i = len(groups)
			index[l.QuestID] = i
			groups = append(groups, QuestLessons{QuestID: l.QuestID, QuestTitle: l.QuestTitle})
		}
		groups[i].Lessons = append(groups[i].Lessons, l)
	}
	return groups
}
