package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nick-dorsch/eisen/internal/db"
	"github.com/nick-dorsch/eisen/internal/escalation"
	"github.com/nick-dorsch/eisen/pkg/models"
)

// Store is the task store the API serves from.
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

type Server struct {
	store   Store
	scanner Scanner
	logger  *slog.Logger
	server  *http.Server
}

// NewServer builds the API. scanner may be nil, in which case the scan
// endpoint answers 503.
func NewServer(store Store, scanner Scanner) *Server {
	return &Server{store: store, scanner: scanner, logger: slog.Default()}
}

func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.handleCompleteTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("GET /api/matrix", s.handleMatrix)
	mux.HandleFunc("POST /api/escalation/scan", s.handleScan)

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type createTaskRequest struct {
	Title            string `json:"title"`
	Deadline         string `json:"deadline"`
	SelectedQuadrant string `json:"selected_quadrant"`
	UserID           string `json:"user_id"`
}

// UnmarshalJSON accepts selected_quadrant as either a number or a string.
func (r *createTaskRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title            string          `json:"title"`
		Deadline         string          `json:"deadline"`
		SelectedQuadrant json.RawMessage `json:"selected_quadrant"`
		UserID           string          `json:"user_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Title, r.Deadline, r.UserID = raw.Title, raw.Deadline, raw.UserID
	r.SelectedQuadrant = strings.Trim(string(raw.SelectedQuadrant), `"`)
	if r.SelectedQuadrant == "null" {
		r.SelectedQuadrant = ""
	}
	return nil
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" || req.Deadline == "" || req.SelectedQuadrant == "" || req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	deadline, err := models.ParseDeadline(req.Deadline)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := strconv.Atoi(req.SelectedQuadrant)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("%v: %q", models.ErrInvalidQuadrant, req.SelectedQuadrant))
		return
	}
	important, urgent, err := models.FlagsFor(models.Quadrant(q))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task := &models.Task{
		UserID:      req.UserID,
		Title:       req.Title,
		Deadline:    &deadline,
		IsImportant: important,
		IsUrgent:    urgent,
	}
	if err := s.store.CreateTask(r.Context(), task); err != nil {
		s.respond(w, nil, err)
		return
	}

	s.respondStatus(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context(), models.TaskFilter{UserID: r.URL.Query().Get("user_id")})
	if tasks == nil {
		tasks = []*models.Task{}
	}
	s.respond(w, tasks, err)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.CompleteTask(r.Context(), r.PathValue("id"))
	s.respond(w, task, err)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		s.respond(w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	matrix, err := s.store.Matrix(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.respond(w, nil, err)
		return
	}

	out := make(map[string][]*models.Task, len(matrix))
	for q, tasks := range matrix {
		out[strconv.Itoa(int(q))] = tasks
	}
	s.respond(w, out, nil)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		s.respondError(w, http.StatusServiceUnavailable, "escalation scheduler is not running")
		return
	}

	result, err := s.scanner.RunNow(r.Context())
	if errors.Is(err, escalation.ErrScanInProgress) {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respond(w, result, err)
}

func (s *Server) respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("request failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.respondStatus(w, http.StatusOK, data)
}

func (s *Server) respondStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondStatus(w, status, map[string]string{"error": msg})
}
