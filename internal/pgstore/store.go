// Package pgstore is the PostgreSQL task store. It mirrors internal/db on
// top of a pgx connection pool; the quadrant is a generated column here too.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	embedsql "github.com/nick-dorsch/eisen/embed/sql"
	"github.com/nick-dorsch/eisen/internal/db"
	"github.com/nick-dorsch/eisen/pkg/models"
)

const taskColumns = `id, user_id, title, deadline, is_important, is_urgent, is_completed,
	created_at, updated_at, completed_at, quadrant_id`

// Store implements the task store against PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database at dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tasks table and its indexes if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure task schema: %w", err)
		}
	}
	return nil
}

func schemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(embedsql.PostgresSchema, ";\n") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// CreateTask inserts t, generating an id if needed, and reads back the
// stored timestamps and quadrant.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title is required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	var quadrant int32
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, user_id, title, deadline, is_important, is_urgent, is_completed, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at, quadrant_id`,
		t.ID, t.UserID, t.Title, t.Deadline, t.IsImportant, t.IsUrgent, t.IsCompleted, t.CompletedAt,
	).Scan(&t.CreatedAt, &t.UpdatedAt, &quadrant)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	t.Quadrant = models.Quadrant(quadrant)
	return nil
}

// GetTask returns nil, nil when the task does not exist.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []any{}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		query += fmt.Sprintf(" AND is_completed = $%d", len(args))
	}
	query += " ORDER BY deadline ASC NULLS LAST, created_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Matrix groups a user's open tasks by quadrant.
func (s *Store) Matrix(ctx context.Context, userID string) (map[models.Quadrant][]*models.Task, error) {
	open := false
	tasks, err := s.ListTasks(ctx, models.TaskFilter{UserID: userID, Completed: &open})
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

func (s *Store) CompleteTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET is_completed = TRUE, completed_at = COALESCE(completed_at, now()), updated_at = now()
		WHERE id = $1
		RETURNING `+taskColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", db.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	return t, nil
}

// SetUrgent is the explicit user edit of the urgency flag.
func (s *Store) SetUrgent(ctx context.Context, id string, urgent bool) (*models.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks SET is_urgent = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+taskColumns, id, urgent))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", db.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("set urgency: %w", err)
	}
	return t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", db.ErrTaskNotFound, id)
	}
	return nil
}

func (s *Store) CountOpenTasks(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE NOT is_completed`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count open tasks: %w", err)
	}
	return count, nil
}

// EscalateDue is the single-statement conditional update. Under READ
// COMMITTED, Postgres re-checks the WHERE clause against the latest row
// version before updating, so a concurrent completion that commits first
// wins.
func (s *Store) EscalateDue(ctx context.Context, cutoff time.Time) ([]models.EscalatedTask, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE tasks
		SET is_urgent = TRUE, updated_at = now()
		WHERE is_completed = FALSE
		  AND is_urgent = FALSE
		  AND deadline IS NOT NULL
		  AND deadline <= $1
		RETURNING id, title`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("escalate tasks: %w", err)
	}

	escalated, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.EscalatedTask, error) {
		var t models.EscalatedTask
		err := row.Scan(&t.ID, &t.Title)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("escalate tasks: %w", err)
	}
	if escalated == nil {
		escalated = []models.EscalatedTask{}
	}
	return escalated, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	t := &models.Task{}
	var quadrant int32
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Deadline, &t.IsImportant, &t.IsUrgent, &t.IsCompleted,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &quadrant,
	)
	if err != nil {
		return nil, err
	}

	t.Quadrant = models.Quadrant(quadrant)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if t.Deadline != nil {
		d := t.Deadline.UTC()
		t.Deadline = &d
	}
	if t.CompletedAt != nil {
		c := t.CompletedAt.UTC()
		t.CompletedAt = &c
	}
	return t, nil
}
