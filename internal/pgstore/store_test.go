package pgstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nick-dorsch/eisen/internal/db"
	"github.com/nick-dorsch/eisen/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("EISEN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EISEN_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE tasks`); err != nil {
		t.Fatalf("failed to truncate tasks: %v", err)
	}
	return s
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements()
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(stmts))
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE") {
		t.Errorf("expected table first, got %q", stmts[0][:20])
	}
	for _, s := range stmts {
		if strings.HasSuffix(s, ";") {
			t.Errorf("statement should not keep its terminator: %q", s)
		}
	}
}

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deadline := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	task := &models.Task{UserID: "u1", Title: "File taxes", Deadline: &deadline, IsImportant: true}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected id to be generated")
	}
	if task.Quadrant != models.QuadrantSchedule {
		t.Errorf("expected quadrant 2, got %d", task.Quadrant)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got == nil || !got.Deadline.Equal(deadline) {
		t.Fatalf("unexpected task: %+v", got)
	}

	missing, err := s.GetTask(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing task, got %v, %v", missing, err)
	}
}

func TestEscalateDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cutoff := now.Add(15 * 24 * time.Hour)
	soon := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	a := &models.Task{Title: "A", Deadline: &soon, IsImportant: true}
	b := &models.Task{Title: "B", Deadline: &later, IsImportant: true}
	c := &models.Task{Title: "C", Deadline: &cutoff}
	done := &models.Task{Title: "done", Deadline: &soon, IsCompleted: true}
	for _, task := range []*models.Task{a, b, c, done} {
		if err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	open, err := s.CountOpenTasks(ctx)
	if err != nil {
		t.Fatalf("CountOpenTasks failed: %v", err)
	}
	if open != 3 {
		t.Errorf("expected 3 open tasks, got %d", open)
	}

	escalated, err := s.EscalateDue(ctx, cutoff)
	if err != nil {
		t.Fatalf("EscalateDue failed: %v", err)
	}
	if len(escalated) != 2 {
		t.Fatalf("expected 2 escalated tasks, got %v", escalated)
	}

	gotA, _ := s.GetTask(ctx, a.ID)
	if gotA.Quadrant != models.QuadrantDo {
		t.Errorf("expected A in quadrant 1, got %d", gotA.Quadrant)
	}
	gotC, _ := s.GetTask(ctx, c.ID)
	if gotC.Quadrant != models.QuadrantDelegate {
		t.Errorf("expected C in quadrant 3, got %d", gotC.Quadrant)
	}
	gotB, _ := s.GetTask(ctx, b.ID)
	if gotB.Quadrant != models.QuadrantSchedule {
		t.Errorf("expected B to stay in quadrant 2, got %d", gotB.Quadrant)
	}
	gotDone, _ := s.GetTask(ctx, done.ID)
	if gotDone.IsUrgent {
		t.Error("completed task must not be escalated")
	}

	again, err := s.EscalateDue(ctx, cutoff)
	if err != nil {
		t.Fatalf("second EscalateDue failed: %v", err)
	}
	if again == nil || len(again) != 0 {
		t.Errorf("expected empty non-nil result on rescan, got %v", again)
	}
}

func TestCompleteAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &models.Task{Title: "write report"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	done, err := s.CompleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if !done.IsCompleted || done.CompletedAt == nil {
		t.Errorf("expected completed task, got %+v", done)
	}

	matrix, err := s.Matrix(ctx, "")
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	for _, q := range models.Quadrants {
		if len(matrix[q]) != 0 {
			t.Errorf("expected quadrant %d to be empty", q)
		}
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := s.DeleteTask(ctx, task.ID); !errors.Is(err, db.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := s.CompleteTask(ctx, task.ID); !errors.Is(err, db.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}
