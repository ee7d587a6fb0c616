package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nick-dorsch/eisen/internal/escalation"
	"github.com/nick-dorsch/eisen/pkg/models"
)

// Store is the task store the tools operate on.
type Store interface {
	CreateTask(ctx context.Context, t *models.Task) error
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error)
	Matrix(ctx context.Context, userID string) (map[models.Quadrant][]*models.Task, error)
	CompleteTask(ctx context.Context, id string) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Scanner runs an on-demand escalation scan.
type Scanner interface {
	RunNow(ctx context.Context) (escalation.ScanResult, error)
}

// NewServer creates a new MCP server.
func NewServer(store Store, scanner Scanner) *server.MCPServer {
	s := server.NewMCPServer("Eisen", "0.1.0")

	// Task Management
	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task in the chosen Eisenhower quadrant."),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("deadline", mcp.Description("Deadline, RFC 3339 or YYYY-MM-DD"), mcp.Required()),
		mcp.WithNumber("quadrant", mcp.Description("1=do, 2=schedule, 3=delegate, 4=eliminate"), mcp.Required()),
		mcp.WithString("user_id", mcp.Description("Owner of the task")),
	), createTaskHandler(store))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks ordered by deadline."),
		mcp.WithString("user_id", mcp.Description("Filter by owner")),
		mcp.WithBoolean("include_completed", mcp.Description("Include completed tasks (default true)")),
	), listTasksHandler(store))

	s.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task completed. Completed tasks leave the matrix and are never escalated."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
	), completeTaskHandler(store))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
	), deleteTaskHandler(store))

	// Matrix
	s.AddTool(mcp.NewTool("get_matrix",
		mcp.WithDescription("Get open tasks grouped by quadrant."),
		mcp.WithString("user_id", mcp.Description("Filter by owner")),
	), getMatrixHandler(store))

	// Escalation
	if scanner != nil {
		s.AddTool(mcp.NewTool("run_escalation_scan",
			mcp.WithDescription("Escalate every open task whose deadline falls within the urgency threshold."),
		), runEscalationScanHandler(scanner))
	}

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func createTaskHandler(store Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := mcp.ParseString(request, "title", "")
		deadlineArg := mcp.ParseString(request, "deadline", "")
		quadrant := models.Quadrant(mcp.ParseInt(request, "quadrant", 0))
		userID := mcp.ParseString(request, "user_id", "")

		deadline, err := models.ParseDeadline(deadlineArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		important, urgent, err := models.FlagsFor(quadrant)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		t := &models.Task{
			UserID:      userID,
			Title:       title,
			Deadline:    &deadline,
			IsImportant: important,
			IsUrgent:    urgent,
		}
		if err := store.CreateTask(ctx, t); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(t)
	}
}

func listTasksHandler(store Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := models.TaskFilter{UserID: mcp.ParseString(request, "user_id", "")}
		if !mcp.ParseBoolean(request, "include_completed", true) {
			open := false
			filter.Completed = &open
		}

		tasks, err := store.ListTasks(ctx, filter)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if tasks == nil {
			tasks = []*models.Task{}
		}

		return jsonResult(map[string]any{"tasks": tasks})
	}
}

func completeTaskHandler(store Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		t, err := store.CompleteTask(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' completed", t.Title)), nil
	}
}

func deleteTaskHandler(store Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		if err := store.DeleteTask(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText("Task deleted successfully"), nil
	}
}

func getMatrixHandler(store Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		matrix, err := store.Matrix(ctx, mcp.ParseString(request, "user_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out := make(map[string][]*models.Task, len(matrix))
		for q, tasks := range matrix {
			out[strconv.Itoa(int(q))] = tasks
		}
		return jsonResult(out)
	}
}

func runEscalationScanHandler(scanner Scanner) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := scanner.RunNow(ctx)
		if errors.Is(err, escalation.ErrScanInProgress) {
			return mcp.NewToolResultError("An escalation scan is already running; try again shortly."), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(result)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
