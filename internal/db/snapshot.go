package db

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nick-dorsch/eisen/pkg/models"
)

const snapshotVersion = 1

type snapshotMeta struct {
	RecordType string    `json:"record_type"`
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
}

type snapshotTask struct {
	RecordType string `json:"record_type"`
	*models.Task
}

// EnableAutoSnapshot sets up a hook that automatically exports a snapshot
// to the given path after every successful write operation. Export failures
// are logged and never fail the write.
func (db *DB) EnableAutoSnapshot(path string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	db.SetOnChange(func(ctx context.Context) {
		if err := db.ExportSnapshot(ctx, path); err != nil {
			logger.Error("failed to export snapshot", "path", path, "error", err)
		}
	})
}

// ExportSnapshot writes every task as one JSON line, preceded by a meta
// line, to the given path atomically using a temporary file.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	tasks, err := db.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		return fmt.Errorf("failed to read tasks for snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := bufio.NewWriter(tempFile)
	enc := json.NewEncoder(w)
	if err := enc.Encode(snapshotMeta{RecordType: "meta", Version: snapshotVersion, ExportedAt: db.now().UTC()}); err != nil {
		return fmt.Errorf("failed to write snapshot meta: %w", err)
	}
	for _, t := range tasks {
		if err := enc.Encode(snapshotTask{RecordType: "task", Task: t}); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ImportSnapshot reads a JSONL snapshot and upserts its tasks by id inside a
// single transaction. The quadrant field of each line is ignored; the
// generated column recomputes it from the flags.
func (db *DB) ImportSnapshot(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO tasks (id, user_id, title, deadline, is_important, is_urgent, is_completed,
		                   created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			deadline = excluded.deadline,
			is_important = excluded.is_important,
			is_urgent = excluded.is_urgent,
			is_completed = excluded.is_completed,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at
	`

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(line, &base); err != nil {
			return fmt.Errorf("failed to unmarshal base record: %w", err)
		}

		switch base.RecordType {
		case "meta":
			var m snapshotMeta
			if err := json.Unmarshal(line, &m); err != nil {
				return fmt.Errorf("failed to unmarshal meta: %w", err)
			}
			if m.Version > snapshotVersion {
				return fmt.Errorf("unsupported snapshot version %d", m.Version)
			}
		case "task":
			var t models.Task
			if err := json.Unmarshal(line, &t); err != nil {
				return fmt.Errorf("failed to unmarshal task: %w", err)
			}
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if t.CreatedAt.IsZero() {
				t.CreatedAt = db.now()
			}
			if t.UpdatedAt.IsZero() {
				t.UpdatedAt = t.CreatedAt
			}

			_, err = tx.ExecContext(ctx, upsert,
				t.ID, t.UserID, t.Title, nullMillis(t.Deadline), t.IsImportant, t.IsUrgent, t.IsCompleted,
				toMillis(t.CreatedAt), toMillis(t.UpdatedAt), nullMillis(t.CompletedAt))
			if err != nil {
				return fmt.Errorf("failed to sync task %s: %w", t.ID, err)
			}
		default:
			return fmt.Errorf("unknown snapshot record type %q", base.RecordType)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}
