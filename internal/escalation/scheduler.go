package escalation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrScanInProgress is returned by RunNow when another scan holds the
// single-flight guard.
var ErrScanInProgress = errors.New("escalation scan already in progress")

// ScanHook observes scheduler activity.
type ScanHook interface {
	OnScan(result ScanResult)
	OnScanError(at time.Time, err error)
	OnSkip(at time.Time)
}

// ScanEvent is delivered on Scheduler.Events. Exactly one of Result, Err or
// Skipped is meaningful.
type ScanEvent struct {
	At      time.Time
	Result  *ScanResult
	Err     error
	Skipped bool
}

// Scheduler drives escalation scans: once at Start, then every interval.
type Scheduler struct {
	store  Store
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
	hooks  []ScanHook

	// guard admits one scan at a time; ticks that cannot acquire it are
	// dropped, not queued.
	guard *semaphore.Weighted
	wg    sync.WaitGroup

	// events is nil unless WithEvents was given.
	events       chan ScanEvent
	eventsMu     sync.Mutex
	eventsClosed bool

	done     chan struct{}
	doneOnce sync.Once
}

func NewScheduler(store Store, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
		guard:  semaphore.NewWeighted(1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartScheduler validates cfg and runs a Scheduler in the background until
// ctx is cancelled.
func StartScheduler(ctx context.Context, store Store, cfg Config, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := NewScheduler(store, cfg, opts...)
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("escalation scheduler stopped", "error", err)
		}
	}()
	return s, nil
}

// Config returns the configuration the scheduler runs with.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Events returns scan outcomes as they happen, or nil when the scheduler was
// built without WithEvents. Events are dropped when the buffer is full. The
// channel is closed when Start returns.
func (s *Scheduler) Events() <-chan ScanEvent {
	return s.events
}

// Done is closed when Start has returned, after any in-flight scan has
// finished.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Start runs one scan immediately and then one per interval until ctx is
// cancelled. Cancelling ctx does not interrupt a scan that is already
// running; Start waits for it before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	defer s.doneOnce.Do(func() { close(s.done) })
	defer s.closeEvents()

	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.logger.Info("starting escalation scheduler",
		"threshold_days", s.cfg.ThresholdDays,
		"interval", s.cfg.Interval())

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()
	defer s.wg.Wait()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("escalation scheduler stopping")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick starts a scan in the background unless one is already running.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.guard.TryAcquire(1) {
		at := s.now()
		s.logger.Warn("escalation scan skipped: previous scan still running", "at", at)
		for _, h := range s.hooks {
			h.OnSkip(at)
		}
		s.sendEvent(ScanEvent{At: at, Skipped: true})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.guard.Release(1)
		s.scan(context.WithoutCancel(ctx))
	}()
}

// RunNow runs a scan synchronously, sharing the single-flight guard with the
// scheduled ticks.
func (s *Scheduler) RunNow(ctx context.Context) (ScanResult, error) {
	if !s.guard.TryAcquire(1) {
		return ScanResult{}, ErrScanInProgress
	}
	defer s.guard.Release(1)

	return s.scan(ctx)
}

func (s *Scheduler) scan(ctx context.Context) (ScanResult, error) {
	now := s.now()

	result, err := RunScan(ctx, s.store, now, s.cfg.ThresholdDays)
	if err != nil {
		s.logger.Error("escalation scan failed", "at", now, "error", err)
		for _, h := range s.hooks {
			h.OnScanError(now, err)
		}
		s.sendEvent(ScanEvent{At: now, Err: err})
		return result, err
	}

	if len(result.Escalated) == 0 {
		s.logger.Info("escalation scan: no tasks escalated",
			"scanned", result.Scanned,
			"cutoff", result.Cutoff)
	} else {
		s.logger.Info("escalation scan: tasks moved to urgent",
			"escalated", len(result.Escalated),
			"scanned", result.Scanned,
			"cutoff", result.Cutoff)
		for _, t := range result.Escalated {
			s.logger.Info("escalated task", "task_id", t.ID, "title", t.Title)
		}
	}

	for _, h := range s.hooks {
		h.OnScan(result)
	}
	s.sendEvent(ScanEvent{At: now, Result: &result})
	return result, nil
}

// sendEvent never blocks: it runs while the guard is held.
func (s *Scheduler) sendEvent(ev ScanEvent) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	if s.events == nil || s.eventsClosed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("escalation event dropped: no reader", "at", ev.At)
	}
}

func (s *Scheduler) closeEvents() {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	if s.events != nil && !s.eventsClosed {
		close(s.events)
	}
	s.eventsClosed = true
}
