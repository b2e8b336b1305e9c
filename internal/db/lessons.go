package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shortbird/pathweaver/internal/types"
)

const lessonColumns = `l.id::text, l.quest_id::text, q.title, l.title, l.content,
	l.linked_task_ids, l.is_published, l.sequence_order`

// ListLessons retrieves the lessons of a quest in sequence order. Unpublished
// lessons are included only when includeUnpublished is set.
func (db *DB) ListLessons(ctx context.Context, questID string, includeUnpublished bool) ([]types.Lesson, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+lessonColumns+`
		 FROM lessons l
		 JOIN quests q ON q.id = l.quest_id
		 WHERE l.quest_id::text = $1 AND (l.is_published OR $2)
		 ORDER BY l.sequence_order, l.created_at`,
		questID, includeUnpublished,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []types.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

// GetLesson retrieves a lesson by id. A missing lesson is (nil, nil).
func (db *DB) GetLesson(ctx context.Context, lessonID string) (*types.Lesson, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+lessonColumns+`
		 FROM lessons l
		 JOIN quests q ON q.id = l.quest_id
		 WHERE l.id::text = $1`,
		lessonID,
	)
	l, err := scanLesson(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func scanLesson(row pgx.Row) (*types.Lesson, error) {
	var l types.Lesson
	var content []byte
	err := row.Scan(&l.ID, &l.QuestID, &l.QuestTitle, &l.Title, &content,
		&l.LinkedTaskIDs, &l.Published, &l.SequenceOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lesson: %w", err)
	}
	if len(content) > 0 {
		l.Content = json.RawMessage(content)
	}
	return &l, nil
}
