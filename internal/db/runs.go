package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shortbird/pathweaver/internal/types"
)

const runColumns = `id, session_id, status, lesson_count, lessons_succeeded, lessons_failed,
	tasks_generated, tasks_created, tasks_failed, started_at, completed_at`

// CreateRun creates a generation run record and returns its ID
func (db *DB) CreateRun(ctx context.Context, sessionID string, lessonCount int) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO generation_runs (session_id, lesson_count, status)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		sessionID, lessonCount, types.RunStatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun stores the final counts and status of a generation run
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, result types.RunResult) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE generation_runs
		 SET status = $1, lessons_succeeded = $2, lessons_failed = $3,
		     tasks_generated = $4, tasks_created = $5, tasks_failed = $6,
		     completed_at = NOW()
		 WHERE id = $7`,
		result.Status, result.LessonsSucceeded, result.LessonsFailed,
		result.TasksGenerated, result.TasksCreated, result.TasksFailed, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a generation run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*types.GenerationRun, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM generation_runs WHERE id = $1`,
		runID,
	)
	run, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves recent generation runs
func (db *DB) ListRuns(ctx context.Context, limit int) ([]types.GenerationRun, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+runColumns+` FROM generation_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []types.GenerationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*types.GenerationRun, error) {
	var run types.GenerationRun
	err := row.Scan(&run.ID, &run.SessionID, &run.Status, &run.LessonCount,
		&run.LessonsSucceeded, &run.LessonsFailed,
		&run.TasksGenerated, &run.TasksCreated, &run.TasksFailed,
		&run.StartedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
