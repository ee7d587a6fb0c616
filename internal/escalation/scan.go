package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/nick-dorsch/eisen/pkg/models"
)

// Store is the part of the task store a scan needs.
type Store interface {
	CountOpenTasks(ctx context.Context) (int, error)
	EscalateDue(ctx context.Context, cutoff time.Time) ([]models.EscalatedTask, error)
}

// ScanResult describes one completed scan.
type ScanResult struct {
	At            time.Time              `json:"at"`
	Cutoff        time.Time              `json:"cutoff"`
	ThresholdDays int                    `json:"threshold_days"`
	Scanned       int                    `json:"scanned"`
	Escalated     []models.EscalatedTask `json:"escalated"`
	Duration      time.Duration          `json:"duration"`
}

// EscalatedIDs returns the ids of the tasks this scan escalated.
func (r ScanResult) EscalatedIDs() []string {
	ids := make([]string, len(r.Escalated))
	for i, t := range r.Escalated {
		ids[i] = t.ID
	}
	return ids
}

// RunScan escalates every task that ShouldEscalate at now. All tasks are
// judged against the same instant. Scanned is the number of open tasks seen
// just before the update; it is informational only.
func RunScan(ctx context.Context, store Store, now time.Time, thresholdDays int) (ScanResult, error) {
	if thresholdDays < 0 {
		return ScanResult{}, fmt.Errorf("%w: threshold_days must be >= 0, got %d", ErrInvalidConfig, thresholdDays)
	}

	started := time.Now()
	result := ScanResult{
		At:            now,
		Cutoff:        Cutoff(now, thresholdDays),
		ThresholdDays: thresholdDays,
	}

	open, err := store.CountOpenTasks(ctx)
	if err != nil {
		return result, fmt.Errorf("escalation scan: %w", err)
	}
	result.Scanned = open

	escalated, err := store.EscalateDue(ctx, result.Cutoff)
	if err != nil {
		return result, fmt.Errorf("escalation scan: %w", err)
	}
	if escalated == nil {
		escalated = []models.EscalatedTask{}
	}
	result.Escalated = escalated
	result.Duration = time.Since(started)

	return result, nil
}
