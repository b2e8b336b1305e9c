//go:build integration
// +build integration

package db

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// lessonRow holds the fields needed to insert a lesson fixture.
type lessonRow struct {
	QuestID       string
	Title         string
	Content       json.RawMessage
	SequenceOrder int
	Published     bool
}

func insertQuest(t *testing.T, db *DB, title string, active bool) string {
	t.Helper()
	var id string
	err := db.pool.QueryRow(context.Background(),
		`INSERT INTO quests (title, is_active) VALUES ($1, $2) RETURNING id::text`,
		title, active,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertLesson(t *testing.T, db *DB, row lessonRow) string {
	t.Helper()
	var content []byte
	if len(row.Content) > 0 {
		content = row.Content
	}

	var id string
	err := db.pool.QueryRow(context.Background(),
		`INSERT INTO lessons (quest_id, title, content, sequence_order, is_published)
		 VALUES ($1::uuid, $2, $3, $4, $5)
		 RETURNING id::text`,
		row.QuestID, row.Title, content, row.SequenceOrder, row.Published,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
