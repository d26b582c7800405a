package app

import (
	"fmt"
	"strings"
	"time"

	"crontimer/internal/observability/diag"
	"crontimer/internal/storage"
	"crontimer/internal/task/scheduler"
	logx "crontimer/pkg/logx"
)

const defaultDispatchInterval = 100 * time.Millisecond

func mapLogConfig(cfg *Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapSchedulerConfig(cfg *Config) (scheduler.Config, error) {
	sc := cfg.Scheduler
	tick, err := parseDurationOrDefault("scheduler.tick_interval", sc.TickInterval, scheduler.DefaultTickInterval)
	if err != nil {
		return scheduler.Config{}, err
	}
	if tick > scheduler.MaxTickInterval {
		return scheduler.Config{}, fmt.Errorf("scheduler.tick_interval %s exceeds %s", tick, scheduler.MaxTickInterval)
	}
	policy, err := scheduler.ParseOverflow(sc.Overflow)
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("scheduler.overflow: %w", err)
	}
	if sc.QueueCap < 0 {
		return scheduler.Config{}, fmt.Errorf("scheduler.queue_cap must be >= 0")
	}
	return scheduler.Config{
		TickInterval:    tick,
		QueueCap:        sc.QueueCap,
		Overflow:        policy,
		ZeroBasedRanges: sc.ZeroBasedRanges,
	}, nil
}

func mapDispatchInterval(cfg *Config) (time.Duration, error) {
	return parseDurationOrDefault("dispatch.interval", cfg.Dispatch.Interval, defaultDispatchInterval)
}

func mapStorageConfig(cfg *Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}

	switch driver {
	case "file":
		return storage.Config{Driver: driver, Path: path, MaxRecords: sc.MaxRecords}, true, nil
	case "sqlite", "sqlite3":
		busy, err := parseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy, MaxRecords: sc.MaxRecords}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapDebugConfig(cfg *Config) diag.Config {
	return diag.Config{
		Enabled:       cfg.Debug.Enabled,
		Addr:          strings.TrimSpace(cfg.Debug.Addr),
		Token:         strings.TrimSpace(cfg.Debug.Token),
		AllowInsecure: cfg.Debug.AllowInsecure,
	}
}
