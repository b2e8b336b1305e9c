package db

import (
	"context"
	"fmt"
)

// ListQuests retrieves quests ordered by title. With activeOnly set, inactive
// quests are left out.
func (db *DB) ListQuests(ctx context.Context, activeOnly bool) ([]Quest, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id::text, title, is_active, created_at
		 FROM quests
		 WHERE is_active OR NOT $1
		 ORDER BY title, id`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	var quests []Quest
	for rows.Next() {
		var q Quest
		if err := rows.Scan(&q.ID, &q.Title, &q.IsActive, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	return quests, nil
}

// GetQuestsByID retrieves the quests with the given ids, in the order given.
// Unknown ids are skipped.
func (db *DB) GetQuestsByID(ctx context.Context, ids []string) ([]Quest, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id::text, title, is_active, created_at
		 FROM quests
		 WHERE id::text = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get quests: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]Quest, len(ids))
	for rows.Next() {
		var q Quest
		if err := rows.Scan(&q.ID, &q.Title, &q.IsActive, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get quests: %w", err)
	}

	quests := make([]Quest, 0, len(byID))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			quests = append(quests, q)
			delete(byID, id)
		}
	}
	return quests, nil
}
