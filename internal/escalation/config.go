package escalation

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultThresholdDays   = 15
	DefaultIntervalMinutes = 60
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid escalation config")

// Config controls when tasks are escalated and how often the store is scanned.
type Config struct {
	// ThresholdDays: tasks due within this many days are escalated.
	ThresholdDays int `json:"threshold_days"`
	// IntervalMinutes is the spacing between scheduled scans.
	IntervalMinutes int `json:"interval_minutes"`
}

func DefaultConfig() Config {
	return Config{
		ThresholdDays:   DefaultThresholdDays,
		IntervalMinutes: DefaultIntervalMinutes,
	}
}

// Validate rejects values that would silently disable escalation or make
// the scheduler spin.
func (c Config) Validate() error {
	if c.ThresholdDays < 0 {
		return fmt.Errorf("%w: threshold_days must be >= 0, got %d", ErrInvalidConfig, c.ThresholdDays)
	}
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: interval_minutes must be > 0, got %d", ErrInvalidConfig, c.IntervalMinutes)
	}
	return nil
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}
