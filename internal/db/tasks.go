package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nick-dorsch/eisen/pkg/models"
)

const taskColumns = `id, user_id, title, deadline, is_important, is_urgent, is_completed,
		       created_at, updated_at, completed_at, quadrant_id`

// CreateTask inserts a new task into the database.
// If t.ID is empty, a new UUID is generated. The quadrant is read back from
// the generated column.
func (db *DB) CreateTask(ctx context.Context, t *models.Task) error {
	if err := db.createTask(ctx, db.DB, t); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

func (db *DB) createTask(ctx context.Context, exec executor, t *models.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title is required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	now := db.now()
	createdAt := now
	if !t.CreatedAt.IsZero() {
		createdAt = t.CreatedAt
	}

	query := `
		INSERT INTO tasks (id, user_id, title, deadline, is_important, is_urgent, is_completed,
		                   created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING quadrant_id
	`
	err := exec.QueryRowContext(ctx, query,
		t.ID, t.UserID, t.Title, nullMillis(t.Deadline), t.IsImportant, t.IsUrgent, t.IsCompleted,
		toMillis(createdAt), toMillis(now), nullMillis(t.CompletedAt),
	).Scan(&t.Quadrant)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	t.CreatedAt = fromMillis(toMillis(createdAt))
	t.UpdatedAt = fromMillis(toMillis(now))
	return nil
}

// GetTask retrieves a task by its ID. It returns nil, nil if no such task exists.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks ordered by deadline, undated tasks last.
func (db *DB) ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []any{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}

	if filter.Completed != nil {
		query += " AND is_completed = ?"
		args = append(args, *filter.Completed)
	}

	query += " ORDER BY deadline IS NULL, deadline ASC, created_at ASC"

	return db.queryTasks(ctx, query, args...)
}

// Matrix returns the open tasks of a user grouped by quadrant. Every
// quadrant is present in the result, possibly with an empty slice.
func (db *DB) Matrix(ctx context.Context, userID string) (map[models.Quadrant][]*models.Task, error) {
	open := false
	tasks, err := db.ListTasks(ctx, models.TaskFilter{UserID: userID, Completed: &open})
	if err != nil {
		return nil, err
	}

	matrix := make(map[models.Quadrant][]*models.Task, len(models.Quadrants))
	for _, q := range models.Quadrants {
		matrix[q] = []*models.Task{}
	}
	for _, t := range tasks {
		matrix[t.Quadrant] = append(matrix[t.Quadrant], t)
	}
	return matrix, nil
}

// queryTasks is a helper to execute a query that returns a list of tasks.
func (db *DB) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var deadline, completedAt sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &deadline, &t.IsImportant, &t.IsUrgent, &t.IsCompleted,
		&createdAt, &updatedAt, &completedAt, &t.Quadrant,
	)
	if err != nil {
		return nil, err
	}

	t.Deadline = fromNullMillis(deadline)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	t.CompletedAt = fromNullMillis(completedAt)
	return t, nil
}

// CompleteTask marks a task completed. Completing an already completed task
// is a no-op apart from returning the stored row.
func (db *DB) CompleteTask(ctx context.Context, id string) (*models.Task, error) {
	now := toMillis(db.now())
	query := `
		UPDATE tasks
		SET is_completed = 1,
		    completed_at = COALESCE(completed_at, ?),
		    updated_at = ?
		WHERE id = ?
		RETURNING ` + taskColumns

	t, err := scanTask(db.QueryRowContext(ctx, query, now, now, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	db.triggerChange(ctx)
	return t, nil
}

// SetUrgent is the explicit user edit of the urgency flag. It is the only
// path that may clear is_urgent; the escalation scan never calls it.
func (db *DB) SetUrgent(ctx context.Context, id string, urgent bool) (*models.Task, error) {
	query := `
		UPDATE tasks
		SET is_urgent = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + taskColumns

	t, err := scanTask(db.QueryRowContext(ctx, query, urgent, toMillis(db.now()), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set urgency: %w", err)
	}

	db.triggerChange(ctx)
	return t, nil
}

// DeleteTask deletes a task by its ID.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	query := `DELETE FROM tasks WHERE id = ?`
	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	db.triggerChange(ctx)
	return nil
}
