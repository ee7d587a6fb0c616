package models

import (
	"fmt"
	"time"
)

type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Deadline    *time.Time `json:"deadline"`
	IsImportant bool       `json:"is_important"`
	IsUrgent    bool       `json:"is_urgent"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Quadrant is read back from the store's generated column. It is never
	// written; see Classify.
	Quadrant Quadrant `json:"quadrant_id"`
}

// EscalatedTask identifies a row flipped to urgent by an escalation scan.
type EscalatedTask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TaskFilter narrows task listings. Zero values mean "no filter".
type TaskFilter struct {
	UserID    string
	Completed *bool
}

// ParseDeadline accepts RFC 3339 timestamps and plain dates. Plain dates
// are read as midnight UTC.
func ParseDeadline(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid deadline %q: want RFC 3339 or YYYY-MM-DD", v)
}
