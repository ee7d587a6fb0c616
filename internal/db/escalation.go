package db

import (
	"context"
	"fmt"
	"time"

	"github.com/nick-dorsch/eisen/pkg/models"
)

// CountOpenTasks returns the number of tasks that are not completed.
func (db *DB) CountOpenTasks(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE is_completed = 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open tasks: %w", err)
	}
	return count, nil
}

// EscalateDue flips is_urgent on every open, non-urgent task whose deadline
// is at or before cutoff, and returns the rows it changed.
//
// It is a single UPDATE ... RETURNING statement: the WHERE clause is
// evaluated when the statement runs, so a task completed before it commits
// is never escalated, and no reader sees a partially applied scan.
func (db *DB) EscalateDue(ctx context.Context, cutoff time.Time) ([]models.EscalatedTask, error) {
	query := `
		UPDATE tasks
		SET is_urgent = 1, updated_at = ?
		WHERE is_completed = 0
		  AND is_urgent = 0
		  AND deadline IS NOT NULL
		  AND deadline <= ?
		RETURNING id, title
	`
	escalated, err := db.collectEscalated(ctx, query, toMillis(db.now()), toMillis(cutoff))
	if err != nil {
		return nil, err
	}

	// The rows are closed by now; the change hook may need the connection.
	if len(escalated) > 0 {
		db.triggerChange(ctx)
	}
	return escalated, nil
}

func (db *DB) collectEscalated(ctx context.Context, query string, args ...any) ([]models.EscalatedTask, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to escalate tasks: %w", err)
	}
	defer rows.Close()

	escalated := []models.EscalatedTask{}
	for rows.Next() {
		var t models.EscalatedTask
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("failed to scan escalated task: %w", err)
		}
		escalated = append(escalated, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return escalated, nil
}
