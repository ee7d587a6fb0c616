package escalation_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nick-dorsch/eisen/internal/escalation"
	"github.com/nick-dorsch/eisen/pkg/models"
)

// memStore is an in-memory Store that applies the escalation rule under a
// lock, the way the SQL update does in a single statement.
type memStore struct {
	mu    sync.Mutex
	tasks []*models.Task

	// err, when set, is returned by EscalateDue.
	err error
	// block, when set, makes EscalateDue wait for it to be closed.
	block chan struct{}
	// ctxErrs records ctx.Err() observed at the end of each EscalateDue.
	ctxErrs []error
	calls   int
}

func (m *memStore) CountOpenTasks(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.tasks {
		if !t.IsCompleted {
			n++
		}
	}
	return n, nil
}

func (m *memStore) EscalateDue(ctx context.Context, cutoff time.Time) ([]models.EscalatedTask, error) {
	m.mu.Lock()
	block := m.block
	m.calls++
	m.mu.Unlock()

	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErrs = append(m.ctxErrs, ctx.Err())

	if m.err != nil {
		return nil, m.err
	}

	var out []models.EscalatedTask
	for _, t := range m.tasks {
		if t.IsCompleted || t.IsUrgent || t.Deadline == nil || t.Deadline.After(cutoff) {
			continue
		}
		t.IsUrgent = true
		t.Quadrant = models.Classify(t.IsImportant, t.IsUrgent)
		out = append(out, models.EscalatedTask{ID: t.ID, Title: t.Title})
	}
	return out, nil
}

func (m *memStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memStore) setBlock(ch chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = ch
}

func (m *memStore) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

var _ escalation.Store = (*memStore)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
