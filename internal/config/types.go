package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxTickInterval = 500 * time.Millisecond

// Config is the on-disk configuration (JSON, or YAML coerced to JSON).
//
// All durations are Go duration strings (e.g. "10ms", "1s").
type Config struct {
	Logging   LoggingConfig    `json:"logging"`
	Scheduler SchedulerConfig  `json:"scheduler"`
	Dispatch  DispatchConfig   `json:"dispatch"`
	Storage   *StorageConfig   `json:"storage,omitempty"`
	Debug     DebugConfig      `json:"debug"`
	Schedules []ScheduleConfig `json:"schedules"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the poll loop and the pending queue.
//
// Defaults:
//   - tick_interval: "10ms" (at most 500ms so no second is skipped)
//   - queue_cap: 0 (unbounded)
//   - overflow: "drop_newest"
type SchedulerConfig struct {
	TickInterval    string `json:"tick_interval,omitempty"`
	QueueCap        int    `json:"queue_cap,omitempty"`
	Overflow        string `json:"overflow,omitempty"`
	ZeroBasedRanges bool   `json:"zero_based_ranges,omitempty"`
}

// DispatchConfig controls how often the host drains queued callbacks.
type DispatchConfig struct {
	Interval string `json:"interval,omitempty"` // default "100ms"
}

// StorageConfig enables the hit journal. Nil means disabled.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
	MaxRecords  int    `json:"max_records,omitempty"`
}

// DebugConfig controls the diagnostics HTTP server (health, status, pprof).
//
// Security: prefer localhost. Binding elsewhere needs token or allow_insecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"` // default "127.0.0.1:6060"
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
}

// ScheduleConfig names one schedule. Exactly one of Cron (native 7-field
// line) or Standard (robfig/cron syntax) must be set.
type ScheduleConfig struct {
	Name     string `json:"name"`
	Cron     string `json:"cron,omitempty"`
	Standard string `json:"standard,omitempty"`
}

// Source returns the schedule text and whether it uses standard syntax.
func (s ScheduleConfig) Source() (text string, standard bool) {
	if c := strings.TrimSpace(s.Cron); c != "" {
		return c, false
	}
	return strings.TrimSpace(s.Standard), true
}

// Validate checks structure only. Schedule lines themselves are parsed by
// the scheduler host, which reports per-field diagnostics.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if c.Scheduler.QueueCap < 0 {
		errs = append(errs, errors.New("scheduler.queue_cap must be >= 0"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Scheduler.Overflow)) {
	case "", "drop_newest", "drop_oldest":
	default:
		errs = append(errs, fmt.Errorf("scheduler.overflow: unknown policy %q", c.Scheduler.Overflow))
	}
	if d, err := ParseDurationField("scheduler.tick_interval", c.Scheduler.TickInterval); err != nil {
		errs = append(errs, err)
	} else if d > maxTickInterval {
		errs = append(errs, fmt.Errorf("scheduler.tick_interval must be at most %s, got %s", maxTickInterval, d))
	}
	if _, err := ParseDurationField("dispatch.interval", c.Dispatch.Interval); err != nil {
		errs = append(errs, err)
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
		if c.Storage.MaxRecords < 0 {
			errs = append(errs, errors.New("storage.max_records must be >= 0"))
		}
	}

	seen := make(map[string]struct{}, len(c.Schedules))
	for i, s := range c.Schedules {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("schedules[%d].name is required", i))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("schedules[%d]: duplicate name %q", i, name))
		}
		seen[name] = struct{}{}
		hasCron := strings.TrimSpace(s.Cron) != ""
		hasStd := strings.TrimSpace(s.Standard) != ""
		if hasCron == hasStd {
			errs = append(errs, fmt.Errorf("schedules[%d] %q: set exactly one of cron or standard", i, name))
		}
	}
	return errors.Join(errs...)
}
