package app

import (
	"fmt"
	"strings"

	"crontimer/internal/config"
	"crontimer/internal/task/cronspec"
	logx "crontimer/pkg/logx"
)

// resolveLine turns a configured schedule into a native 7-field line.
func resolveLine(sc config.ScheduleConfig) (string, error) {
	text, standard := sc.Source()
	if !standard {
		return text, nil
	}
	s, err := cronspec.FromStandard(text)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// register adds one configured schedule. Rejections are logged with the
// per-field diagnostic and reported as an error.
func (a *App) register(sc config.ScheduleConfig) error {
	name := strings.TrimSpace(sc.Name)
	line, err := resolveLine(sc)
	if err != nil {
		a.log.Warn("schedule rejected", logx.String("name", name), logx.Err(err))
		return fmt.Errorf("schedule %q: %w", name, err)
	}

	log := a.log.With(logx.String("schedule", name))
	id := a.sched.AddSchedule(line, func() {
		a.fired.Add(1)
		log.Info("schedule fired")
	})
	if id == 0 {
		parsed := a.sched.Parse(line)
		a.log.Warn("schedule rejected",
			logx.String("name", name),
			logx.String("line", line),
			logx.String("diagnostic", parsed.Diagnostic()),
		)
		return fmt.Errorf("schedule %q: %w", name, parsed.Err())
	}

	a.namesMu.Lock()
	a.byName[name] = id
	a.byID[id] = name
	a.namesMu.Unlock()

	a.log.Debug("schedule registered", logx.String("name", name), logx.Int("id", id), logx.String("line", line))
	return nil
}

func (a *App) unregister(name string) {
	name = strings.TrimSpace(name)
	a.namesMu.Lock()
	id, ok := a.byName[name]
	if ok {
		delete(a.byName, name)
		delete(a.byID, id)
	}
	a.namesMu.Unlock()
	if ok && a.sched.RemoveSchedule(id) {
		a.log.Debug("schedule removed", logx.String("name", name), logx.Int("id", id))
	}
}

// applySchedules removes then adds, so a changed line gets a fresh id.
// It returns how many additions were rejected.
func (a *App) applySchedules(removed, added []config.ScheduleConfig) int {
	for _, sc := range removed {
		a.unregister(sc.Name)
	}
	rejected := 0
	for _, sc := range added {
		if err := a.register(sc); err != nil {
			rejected++
		}
	}
	return rejected
}

func (a *App) nameOf(id int) string {
	a.namesMu.Lock()
	defer a.namesMu.Unlock()
	return a.byID[id]
}

func (a *App) clearNames() {
	a.namesMu.Lock()
	a.byName = map[string]int{}
	a.byID = map[int]string{}
	a.namesMu.Unlock()
}
