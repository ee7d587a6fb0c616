package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nick-dorsch/eisen/internal/escalation"
)

const (
	defaultDBPath       = ".eisen/eisen.db"
	defaultSnapshotPath = ".eisen/snapshot.jsonl"
	defaultPort         = "3000"
)

// config is the resolved runtime configuration.
type config struct {
	Escalation escalation.Config
	// Database is a postgres:// DSN or a SQLite file path. Empty means the
	// -db-path flag.
	Database string
	Port     string
}

// fileConfig mirrors .eisen/config.json. Pointer fields distinguish "unset"
// from zero.
type fileConfig struct {
	ThresholdDays   *int   `json:"threshold_days,omitempty"`
	IntervalMinutes *int   `json:"interval_minutes,omitempty"`
	Database        string `json:"database,omitempty"`
	Port            string `json:"port,omitempty"`
}

func defaultConfig() config {
	return config{
		Escalation: escalation.DefaultConfig(),
		Port:       defaultPort,
	}
}

// configPath is the config file that sits next to the database.
func (c *cli) configPath() string {
	return filepath.Join(filepath.Dir(c.dbPath), "config.json")
}

// loadConfig resolves defaults, then the config file, then the environment.
// Command flags are applied afterwards by the caller.
func (c *cli) loadConfig() (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(c.configPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		var fc fileConfig
		if err := json.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", c.configPath(), err)
		}
		if fc.ThresholdDays != nil {
			cfg.Escalation.ThresholdDays = *fc.ThresholdDays
		}
		if fc.IntervalMinutes != nil {
			cfg.Escalation.IntervalMinutes = *fc.IntervalMinutes
		}
		if fc.Database != "" {
			cfg.Database = fc.Database
		}
		if fc.Port != "" {
			cfg.Port = fc.Port
		}
	}

	if err := envInt(c.getenv, "URGENCY_THRESHOLD_DAYS", &cfg.Escalation.ThresholdDays); err != nil {
		return cfg, err
	}
	if err := envInt(c.getenv, "CIC_CHECK_INTERVAL_MINUTES", &cfg.Escalation.IntervalMinutes); err != nil {
		return cfg, err
	}
	if v := c.getenv("DATABASE_URL"); v != "" {
		cfg.Database = v
	}
	if v := c.getenv("PORT"); v != "" {
		cfg.Port = v
	}

	return cfg, nil
}

func envInt(getenv func(string) string, key string, dst *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", escalation.ErrInvalidConfig, key, v)
	}
	*dst = n
	return nil
}

// writeDefaultConfig creates the config file unless one already exists.
func writeDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	def := escalation.DefaultConfig()
	data, err := json.MarshalIndent(fileConfig{
		ThresholdDays:   &def.ThresholdDays,
		IntervalMinutes: &def.IntervalMinutes,
		Port:            defaultPort,
	}, "", "  ")
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}

// escalationFlags registers the escalation overrides on fs. The returned
// function applies only the flags that were set on the command line.
func escalationFlags(fs *flag.FlagSet) func(*config) {
	threshold := fs.Int("threshold-days", escalation.DefaultThresholdDays, "Escalate tasks due within this many days")
	interval := fs.Int("interval-minutes", escalation.DefaultIntervalMinutes, "Minutes between scheduled scans")

	return func(cfg *config) {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "threshold-days":
				cfg.Escalation.ThresholdDays = *threshold
			case "interval-minutes":
				cfg.Escalation.IntervalMinutes = *interval
			}
		})
	}
}
