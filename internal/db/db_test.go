package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"quests", "lessons", "quest_tasks", "generation_runs"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table, "schema should create %s", table)
	}
	assert.Contains(t, schemaSQL, "linked_task_ids")
}

func TestQuestRefs(t *testing.T) {
	quests := []Quest{
		{ID: "q1", Title: "Gardening"},
		{ID: "q2", Title: "Robotics", IsActive: true},
	}

	refs := QuestRefs(quests)

	assert.Len(t, refs, 2)
	assert.Equal(t, "q1", refs[0].ID)
	assert.Equal(t, "Robotics", refs[1].Title)
	assert.Empty(t, QuestRefs(nil))
}
