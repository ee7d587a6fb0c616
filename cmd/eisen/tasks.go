package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/nick-dorsch/eisen/internal/ui"
	"github.com/nick-dorsch/eisen/pkg/models"
)

// openFromFlags parses fs, loads the configuration and opens the store.
func (c *cli) openFromFlags(ctx context.Context, fs *flag.FlagSet, args []string) (taskStore, func(), error) {
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	cfg, err := c.loadValidConfig()
	if err != nil {
		return nil, nil, err
	}
	return c.openStore(ctx, cfg)
}

func (c *cli) runMatrix(args []string) error {
	matrixFlags := flag.NewFlagSet("matrix", flag.ContinueOnError)
	userID := matrixFlags.String("user", "", "Only show tasks owned by this user")
	width := matrixFlags.Int("width", 100, "Render width in columns")

	ctx := context.Background()
	store, closeStore, err := c.openFromFlags(ctx, matrixFlags, args)
	if err != nil {
		return err
	}
	defer closeStore()

	matrix, err := store.Matrix(ctx, *userID)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, ui.RenderMatrix(matrix, *width, time.Now()))
	return nil
}

func (c *cli) runListTasks(args []string) error {
	taskFlags := flag.NewFlagSet("list-tasks", flag.ContinueOnError)
	userID := taskFlags.String("user", "", "Filter by owner")
	openOnly := taskFlags.Bool("open", false, "Hide completed tasks")

	ctx := context.Background()
	store, closeStore, err := c.openFromFlags(ctx, taskFlags, args)
	if err != nil {
		return err
	}
	defer closeStore()

	filter := models.TaskFilter{UserID: *userID}
	if *openOnly {
		open := false
		filter.Completed = &open
	}

	tasks, err := store.ListTasks(ctx, filter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "%-36s %-30s %-12s %-10s %-6s\n", "ID", "TITLE", "DEADLINE", "QUADRANT", "DONE")
	fmt.Fprintln(c.stdout, strings.Repeat("-", 98))
	for _, t := range tasks {
		deadline := "-"
		if t.Deadline != nil {
			deadline = t.Deadline.Format(time.DateOnly)
		}
		done := ""
		if t.IsCompleted {
			done = "✓"
		}
		fmt.Fprintf(c.stdout, "%-36s %-30s %-12s %-10s %-6s\n", t.ID, truncate(t.Title, 30), deadline, t.Quadrant, done)
	}
	return nil
}

func (c *cli) runAddTask(args []string) error {
	addFlags := flag.NewFlagSet("add-task", flag.ContinueOnError)
	title := addFlags.String("title", "", "Task title (required)")
	deadline := addFlags.String("deadline", "", "Deadline, RFC 3339 or YYYY-MM-DD")
	quadrant := addFlags.Int("quadrant", int(models.QuadrantSchedule), "1=do, 2=schedule, 3=delegate, 4=eliminate")
	userID := addFlags.String("user", "", "Owner of the task")

	ctx := context.Background()
	store, closeStore, err := c.openFromFlags(ctx, addFlags, args)
	if err != nil {
		return err
	}
	defer closeStore()

	if *title == "" && addFlags.NArg() > 0 {
		*title = strings.Join(addFlags.Args(), " ")
	}

	important, urgent, err := models.FlagsFor(models.Quadrant(*quadrant))
	if err != nil {
		return err
	}

	task := &models.Task{
		UserID:      *userID,
		Title:       *title,
		IsImportant: important,
		IsUrgent:    urgent,
	}
	if *deadline != "" {
		d, err := models.ParseDeadline(*deadline)
		if err != nil {
			return err
		}
		task.Deadline = &d
	}

	if err := store.CreateTask(ctx, task); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "✓ Created task %s in quadrant %d (%s)\n", task.ID, int(task.Quadrant), task.Quadrant)
	return nil
}

func (c *cli) runComplete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: eisen complete <task-id>")
	}

	ctx := context.Background()
	store, closeStore, err := c.openFromFlags(ctx, flag.NewFlagSet("complete", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer closeStore()

	task, err := store.CompleteTask(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "✓ Completed %q\n", task.Title)
	return nil
}

func (c *cli) runDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: eisen delete <task-id>")
	}

	ctx := context.Background()
	store, closeStore, err := c.openFromFlags(ctx, flag.NewFlagSet("delete", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.DeleteTask(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "✓ Deleted %s\n", args[0])
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
