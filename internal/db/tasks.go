package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shortbird/pathweaver/internal/types"
)

// ErrLessonNotFound is returned when creating tasks for a missing lesson.
var ErrLessonNotFound = errors.New("lesson not found")

// CreateTasks inserts tasks under the lesson's quest in one transaction. With
// linkToLesson set, the new task ids are appended to the lesson's
// linked_task_ids so the lesson is no longer eligible for generation.
func (db *DB) CreateTasks(ctx context.Context, lessonID string, tasks []types.TaskDraft, linkToLesson bool) error {
	if len(tasks) == 0 {
		return nil
	}

	return db.inTx(ctx, func(tx pgx.Tx) error {
		var questID string
		err := tx.QueryRow(ctx,
			`SELECT quest_id::text FROM lessons WHERE id::text = $1 FOR UPDATE`,
			lessonID,
		).Scan(&questID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrLessonNotFound, lessonID)
		}
		if err != nil {
			return fmt.Errorf("failed to load lesson: %w", err)
		}

		ids := make([]string, 0, len(tasks))
		for _, t := range tasks {
			var id string
			err = tx.QueryRow(ctx,
				`INSERT INTO quest_tasks (quest_id, lesson_id, title, description, pillar, xp_value)
				 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)
				 RETURNING id::text`,
				questID, lessonID, t.Title, t.Description, types.NormalizePillar(t.Pillar), t.XPValue,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("failed to insert task: %w", err)
			}
			ids = append(ids, id)
		}

		if !linkToLesson {
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE lessons SET linked_task_ids = linked_task_ids || $1::text[] WHERE id::text = $2`,
			ids, lessonID,
		)
		if err != nil {
			return fmt.Errorf("failed to link tasks to lesson: %w", err)
		}
		return nil
	})
}

// ListTasksByLesson retrieves the tasks created for a lesson, oldest first.
func (db *DB) ListTasksByLesson(ctx context.Context, lessonID string) ([]Task, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id::text, quest_id::text, lesson_id::text, title, description, pillar, xp_value, created_at
		 FROM quest_tasks
		 WHERE lesson_id::text = $1
		 ORDER BY created_at, id`,
		lessonID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.QuestID, &t.LessonID, &t.Title, &t.Description, &t.Pillar, &t.XPValue, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}
