package config

import (
	"reflect"
	"sort"
	"strings"

	logx "crontimer/pkg/logx"
)

// SummarizeConfigChange returns a sorted list of changed sections and
// structured attrs suitable for a single reload log line.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.tick_interval", newCfg.Scheduler.TickInterval),
			logx.Int("scheduler.queue_cap", newCfg.Scheduler.QueueCap),
			logx.String("scheduler.overflow", newCfg.Scheduler.Overflow),
			logx.Bool("scheduler.zero_based_ranges", newCfg.Scheduler.ZeroBasedRanges),
		)
	}
	if strings.TrimSpace(oldCfg.Dispatch.Interval) != strings.TrimSpace(newCfg.Dispatch.Interval) {
		changed = append(changed, "dispatch")
		attrs = append(attrs, logx.String("dispatch.interval", newCfg.Dispatch.Interval))
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		driver := ""
		if newCfg.Storage != nil {
			driver = strings.TrimSpace(newCfg.Storage.Driver)
		}
		attrs = append(attrs, logx.String("storage.driver", driver))
	}
	if oldCfg.Debug != newCfg.Debug {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", newCfg.Debug.Enabled),
			logx.String("debug.addr", newCfg.Debug.Addr),
			logx.Bool("debug.token_set", newCfg.Debug.Token != ""),
		)
	}
	removed, added := DiffSchedules(oldCfg.Schedules, newCfg.Schedules)
	if len(removed) > 0 || len(added) > 0 {
		changed = append(changed, "schedules")
		attrs = append(attrs,
			logx.Int("schedules.removed", len(removed)),
			logx.Int("schedules.added", len(added)),
			logx.Int("schedules.total", len(newCfg.Schedules)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// DiffSchedules compares schedules by name. A schedule whose text changed is
// reported in both removed and added. Results are sorted by name.
func DiffSchedules(oldS, newS []ScheduleConfig) (removed, added []ScheduleConfig) {
	oldM := indexSchedules(oldS)
	newM := indexSchedules(newS)

	for name, o := range oldM {
		n, ok := newM[name]
		if !ok || !sameSource(o, n) {
			removed = append(removed, o)
		}
	}
	for name, n := range newM {
		o, ok := oldM[name]
		if !ok || !sameSource(o, n) {
			added = append(added, n)
		}
	}
	byName := func(s []ScheduleConfig) {
		sort.Slice(s, func(i, j int) bool { return s[i].Name < s[j].Name })
	}
	byName(removed)
	byName(added)
	return removed, added
}

func indexSchedules(in []ScheduleConfig) map[string]ScheduleConfig {
	m := make(map[string]ScheduleConfig, len(in))
	for _, s := range in {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		m[s.Name] = s
	}
	return m
}

func sameSource(a, b ScheduleConfig) bool {
	at, as := a.Source()
	bt, bs := b.Source()
	return at == bt && as == bs
}
