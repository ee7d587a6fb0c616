package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nick-dorsch/eisen/internal/db"
	"github.com/nick-dorsch/eisen/internal/escalation"
	"github.com/nick-dorsch/eisen/pkg/models"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Init(context.Background()); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	return database
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	if tool == nil {
		t.Fatalf("Tool %s not found", name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	return result
}

func resultText(result *mcp.CallToolResult) string {
	return result.Content[0].(mcp.TextContent).Text
}

func TestServerInitialization(t *testing.T) {
	s := NewServer(newTestDB(t), nil)
	stdio := server.NewStdioServer(s)

	r, w := io.Pipe()
	stdout := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- stdio.Listen(ctx, r, stdout)
	}()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}

	rawReq := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  initReq.Params,
	}

	data, err := json.Marshal(rawReq)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	w.Write(data)
	w.Write([]byte("\n"))

	// Give it a moment to process
	time.Sleep(200 * time.Millisecond)

	if stdout.Len() == 0 {
		t.Fatal("Expected response from server, got none")
	}

	var resp struct {
		ID     int `json:"id"`
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v\nOutput: %s", err, stdout.String())
	}

	if resp.ID != 1 {
		t.Errorf("Expected id 1, got %v", resp.ID)
	}
	if resp.Result.ServerInfo.Name != "Eisen" {
		t.Errorf("Expected server name Eisen, got %v", resp.Result.ServerInfo.Name)
	}
}

func TestScanToolRequiresScanner(t *testing.T) {
	s := NewServer(newTestDB(t), nil)
	if s.GetTool("run_escalation_scan") != nil {
		t.Error("run_escalation_scan should not be registered without a scanner")
	}
}

func TestToolHandlers(t *testing.T) {
	database := newTestDB(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	scheduler := escalation.NewScheduler(database, escalation.DefaultConfig(),
		escalation.WithClock(func() time.Time { return now }),
		escalation.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s := NewServer(database, scheduler)

	var a models.Task

	t.Run("create_task", func(t *testing.T) {
		result := callTool(t, s, "create_task", map[string]any{
			"title":    "A",
			"deadline": "2024-01-10",
			"quadrant": 2.0,
			"user_id":  "u1",
		})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}
		if err := json.Unmarshal([]byte(resultText(result)), &a); err != nil {
			t.Fatalf("Failed to unmarshal task: %v", err)
		}
		if a.Quadrant != models.QuadrantSchedule {
			t.Errorf("Expected quadrant 2, got %d", a.Quadrant)
		}

		result = callTool(t, s, "create_task", map[string]any{
			"title":    "B",
			"deadline": "2024-02-01T00:00:00Z",
			"quadrant": 2.0,
			"user_id":  "u1",
		})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}
	})

	t.Run("create_task rejects bad quadrant", func(t *testing.T) {
		result := callTool(t, s, "create_task", map[string]any{
			"title":    "x",
			"deadline": "2024-01-10",
			"quadrant": 7.0,
		})
		if !result.IsError {
			t.Fatal("Expected error for quadrant 7")
		}
		if !strings.Contains(resultText(result), "invalid quadrant") {
			t.Errorf("Unexpected error text: %s", resultText(result))
		}
	})

	t.Run("run_escalation_scan", func(t *testing.T) {
		result := callTool(t, s, "run_escalation_scan", map[string]any{})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}
		var scan escalation.ScanResult
		if err := json.Unmarshal([]byte(resultText(result)), &scan); err != nil {
			t.Fatalf("Failed to unmarshal scan result: %v", err)
		}
		if len(scan.Escalated) != 1 || scan.Escalated[0].ID != a.ID {
			t.Errorf("Expected only A escalated, got %+v", scan.Escalated)
		}
	})

	t.Run("get_matrix", func(t *testing.T) {
		result := callTool(t, s, "get_matrix", map[string]any{"user_id": "u1"})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}
		var matrix map[string][]*models.Task
		if err := json.Unmarshal([]byte(resultText(result)), &matrix); err != nil {
			t.Fatalf("Failed to unmarshal matrix: %v", err)
		}
		if len(matrix["1"]) != 1 || matrix["1"][0].Title != "A" {
			t.Errorf("Expected A in quadrant 1, got %+v", matrix["1"])
		}
		if len(matrix["2"]) != 1 || matrix["2"][0].Title != "B" {
			t.Errorf("Expected B in quadrant 2, got %+v", matrix["2"])
		}
	})

	t.Run("complete_task", func(t *testing.T) {
		result := callTool(t, s, "complete_task", map[string]any{"id": a.ID})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		result = callTool(t, s, "complete_task", map[string]any{"id": "missing"})
		if !result.IsError {
			t.Error("Expected error completing a missing task")
		}
	})

	t.Run("list_tasks", func(t *testing.T) {
		var resp struct {
			Tasks []*models.Task `json:"tasks"`
		}

		result := callTool(t, s, "list_tasks", map[string]any{"user_id": "u1"})
		json.Unmarshal([]byte(resultText(result)), &resp)
		if len(resp.Tasks) != 2 {
			t.Errorf("Expected 2 tasks, got %d", len(resp.Tasks))
		}

		result = callTool(t, s, "list_tasks", map[string]any{"user_id": "u1", "include_completed": false})
		resp.Tasks = nil
		json.Unmarshal([]byte(resultText(result)), &resp)
		if len(resp.Tasks) != 1 || resp.Tasks[0].Title != "B" {
			t.Errorf("Expected only B open, got %+v", resp.Tasks)
		}
	})

	t.Run("delete_task", func(t *testing.T) {
		result := callTool(t, s, "delete_task", map[string]any{"id": a.ID})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		task, err := database.GetTask(context.Background(), a.ID)
		if err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if task != nil {
			t.Error("Expected task to be deleted")
		}

		result = callTool(t, s, "delete_task", map[string]any{"id": a.ID})
		if !result.IsError {
			t.Error("Expected error deleting a missing task")
		}
	})
}

type busyScanner struct{}

func (busyScanner) RunNow(context.Context) (escalation.ScanResult, error) {
	return escalation.ScanResult{}, escalation.ErrScanInProgress
}

func TestRunEscalationScanBusy(t *testing.T) {
	s := NewServer(newTestDB(t), busyScanner{})

	result := callTool(t, s, "run_escalation_scan", map[string]any{})
	if !result.IsError {
		t.Fatal("Expected error while a scan is in progress")
	}
	if !strings.Contains(resultText(result), "already running") {
		t.Errorf("Unexpected error text: %s", resultText(result))
	}
}
