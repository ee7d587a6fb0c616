package escalation

import (
	"log/slog"
	"time"
)

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithClock sets the source of the reference instant captured at the start
// of each scan.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithLogger sets the logger for scan outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithHook registers a [ScanHook].
func WithHook(hook ScanHook) Option {
	return func(s *Scheduler) {
		s.hooks = append(s.hooks, hook)
	}
}

// WithEvents makes the scheduler publish a [ScanEvent] per tick on
// [Scheduler.Events], buffering up to size events.
func WithEvents(size int) Option {
	return func(s *Scheduler) {
		if size < 1 {
			size = 1
		}
		s.events = make(chan ScanEvent, size)
	}
}
