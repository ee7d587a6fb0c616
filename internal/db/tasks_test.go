package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nick-dorsch/eisen/pkg/models"
)

func deadlineAt(ts time.Time) *time.Time {
	return &ts
}

func TestTaskCRUD(t *testing.T) {
	db := newTestDB(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db.SetClock(fixedClock(created))

	ctx := context.Background()

	// 1. Create
	task := &models.Task{
		UserID:      "u1",
		Title:       "Write report",
		Deadline:    deadlineAt(time.Date(2024, 1, 10, 12, 30, 0, 0, time.FixedZone("CET", 3600))),
		IsImportant: true,
	}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if len(task.ID) != 36 || !strings.Contains(task.ID, "-") {
		t.Errorf("Expected a UUID id, got %q", task.ID)
	}
	if task.Quadrant != models.QuadrantSchedule {
		t.Errorf("Expected quadrant 2 from generated column, got %d", task.Quadrant)
	}
	if !task.CreatedAt.Equal(created) || !task.UpdatedAt.Equal(created) {
		t.Errorf("Expected timestamps %v, got %v / %v", created, task.CreatedAt, task.UpdatedAt)
	}

	// 2. Get
	fetched, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if fetched == nil {
		t.Fatalf("Task not found")
	}
	if fetched.Title != task.Title || fetched.UserID != "u1" {
		t.Errorf("Unexpected task fields: %+v", fetched)
	}
	if fetched.Deadline == nil || !fetched.Deadline.Equal(*task.Deadline) {
		t.Errorf("Expected deadline %v, got %v", task.Deadline, fetched.Deadline)
	}
	if fetched.Deadline.Location() != time.UTC {
		t.Errorf("Expected deadline normalised to UTC, got %v", fetched.Deadline.Location())
	}
	if !fetched.IsImportant || fetched.IsUrgent || fetched.IsCompleted {
		t.Errorf("Unexpected flags: %+v", fetched)
	}

	// 3. Complete
	done := created.Add(time.Hour)
	db.SetClock(fixedClock(done))
	completed, err := db.CompleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to complete task: %v", err)
	}
	if !completed.IsCompleted || completed.CompletedAt == nil || !completed.CompletedAt.Equal(done) {
		t.Errorf("Expected task completed at %v, got %+v", done, completed)
	}

	// Completing again keeps the first completion time.
	db.SetClock(fixedClock(done.Add(time.Hour)))
	again, err := db.CompleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to re-complete task: %v", err)
	}
	if !again.CompletedAt.Equal(done) {
		t.Errorf("Expected completed_at to stay %v, got %v", done, again.CompletedAt)
	}

	// 4. Delete
	if err := db.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}
	gone, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get deleted task: %v", err)
	}
	if gone != nil {
		t.Errorf("Expected task to be deleted")
	}
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateTask(context.Background(), &models.Task{Title: "   "})
	if err == nil {
		t.Fatal("Expected error for blank title")
	}
}

func TestMissingTaskErrors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CompleteTask(ctx, "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("CompleteTask: expected ErrTaskNotFound, got %v", err)
	}
	if _, err := db.SetUrgent(ctx, "missing", true); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("SetUrgent: expected ErrTaskNotFound, got %v", err)
	}
	if err := db.DeleteTask(ctx, "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("DeleteTask: expected ErrTaskNotFound, got %v", err)
	}
}

func TestQuadrantTracksFlags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, important := range []bool{true, false} {
		for _, urgent := range []bool{true, false} {
			task := &models.Task{Title: "t", IsImportant: important, IsUrgent: urgent}
			if err := db.CreateTask(ctx, task); err != nil {
				t.Fatalf("CreateTask failed: %v", err)
			}
			if want := models.Classify(important, urgent); task.Quadrant != want {
				t.Errorf("important=%v urgent=%v: expected quadrant %d, got %d", important, urgent, want, task.Quadrant)
			}

			flipped, err := db.SetUrgent(ctx, task.ID, !urgent)
			if err != nil {
				t.Fatalf("SetUrgent failed: %v", err)
			}
			if want := models.Classify(important, !urgent); flipped.Quadrant != want {
				t.Errorf("after edit important=%v urgent=%v: expected quadrant %d, got %d", important, !urgent, want, flipped.Quadrant)
			}
		}
	}
}

func TestListTasksAndMatrix(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := []*models.Task{
		{UserID: "u1", Title: "later", Deadline: deadlineAt(base.Add(72 * time.Hour)), IsImportant: true},
		{UserID: "u1", Title: "sooner", Deadline: deadlineAt(base.Add(24 * time.Hour)), IsImportant: true, IsUrgent: true},
		{UserID: "u1", Title: "undated"},
		{UserID: "u1", Title: "done", Deadline: deadlineAt(base), IsCompleted: true},
		{UserID: "u2", Title: "other user", IsUrgent: true},
	}
	for _, task := range seed {
		if err := db.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	all, err := db.ListTasks(ctx, models.TaskFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	var titles []string
	for _, task := range all {
		titles = append(titles, task.Title)
	}
	if got, want := strings.Join(titles, ","), "done,sooner,later,undated"; got != want {
		t.Errorf("Expected order %s, got %s", want, got)
	}

	open := false
	openTasks, err := db.ListTasks(ctx, models.TaskFilter{UserID: "u1", Completed: &open})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(openTasks) != 3 {
		t.Errorf("Expected 3 open tasks, got %d", len(openTasks))
	}

	matrix, err := db.Matrix(ctx, "u1")
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	if len(matrix) != 4 {
		t.Fatalf("Expected all 4 quadrants, got %d", len(matrix))
	}
	if len(matrix[models.QuadrantDo]) != 1 || matrix[models.QuadrantDo][0].Title != "sooner" {
		t.Errorf("Unexpected quadrant 1: %+v", matrix[models.QuadrantDo])
	}
	if len(matrix[models.QuadrantSchedule]) != 1 || matrix[models.QuadrantSchedule][0].Title != "later" {
		t.Errorf("Unexpected quadrant 2: %+v", matrix[models.QuadrantSchedule])
	}
	if len(matrix[models.QuadrantDelegate]) != 0 {
		t.Errorf("Expected empty quadrant 3, got %+v", matrix[models.QuadrantDelegate])
	}
	if len(matrix[models.QuadrantEliminate]) != 1 || matrix[models.QuadrantEliminate][0].Title != "undated" {
		t.Errorf("Unexpected quadrant 4: %+v", matrix[models.QuadrantEliminate])
	}
}
