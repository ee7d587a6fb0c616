package escalation

import (
	"time"

	"github.com/nick-dorsch/eisen/pkg/models"
)

const day = 24 * time.Hour

// Cutoff is the latest deadline that is escalated when judged at now.
func Cutoff(now time.Time, thresholdDays int) time.Time {
	return now.Add(time.Duration(thresholdDays) * day)
}

// ShouldEscalate reports whether the task must have its urgency raised at
// now. The boundary is inclusive. Tasks without a deadline never qualify.
//
// This is the predicate the store's conditional update encodes; it is used
// for in-memory checks and must stay in step with db.EscalateDue.
func ShouldEscalate(t *models.Task, now time.Time, thresholdDays int) bool {
	if t == nil || t.IsCompleted || t.IsUrgent || t.Deadline == nil {
		return false
	}
	return !t.Deadline.After(Cutoff(now, thresholdDays))
}
