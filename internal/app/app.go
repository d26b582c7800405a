package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"crontimer/internal/eventbus"
	"crontimer/internal/observability/diag"
	"crontimer/internal/storage"
	"crontimer/internal/task/scheduler"
	logx "crontimer/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	sched *scheduler.Service
	diag  *diag.Service

	dispatchEvery atomic.Int64 // time.Duration
	fired         atomic.Uint64

	namesMu sync.Mutex
	byName  map[string]int
	byID    map[int]string
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	dispatch, err := mapDispatchInterval(cfg)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log)
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	schedSvc := scheduler.New(schedCfg, log.With(logx.String("comp", "scheduler")), bus)

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		sched:   schedSvc,
		byName:  map[string]int{},
		byID:    map[int]string{},
	}
	a.diag = diag.New(mapDebugConfig(cfg), log.With(logx.String("comp", "diag")), func(ctx context.Context) (any, error) {
		return a.Status(ctx)
	})
	a.dispatchEvery.Store(int64(dispatch))
	return a, nil
}

func (a *App) Scheduler() *scheduler.Service { return a.sched }

// Store returns the hit journal, or nil when storage is disabled.
func (a *App) Store() storage.Store { return a.store }

// Fired returns how many schedule callbacks have run.
func (a *App) Fired() uint64 { return a.fired.Load() }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *Config) error {
		if _, err := mapSchedulerConfig(cfg); err != nil {
			return err
		}
		if _, err := mapDispatchInterval(cfg); err != nil {
			return err
		}
		_, _, err := mapStorageConfig(cfg)
		return err
	})

	cfg := a.cfgm.Get()
	a.sched.Start(a.sup.Context())
	if rejected := a.applySchedules(nil, cfg.Schedules); rejected > 0 {
		a.log.Warn("some schedules were rejected", logx.Int("rejected", rejected), logx.Int("total", len(cfg.Schedules)))
	}

	a.sup.Go0("dispatch", a.dispatchLoop)

	if a.store != nil {
		events, unsub := a.bus.Subscribe(256, scheduler.EventHit)
		a.sup.Go0("journal", func(c context.Context) {
			defer unsub()
			a.journalLoop(c, events)
		})
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	// A diagnostics failure is logged but never fatal.
	_ = a.diag.Start(a.sup.Context())

	a.log.Info("app started",
		logx.Int("schedules", a.sched.Len()),
		logx.Duration("dispatch", time.Duration(a.dispatchEvery.Load())),
	)
	return nil
}

func (a *App) reloadLoop(c context.Context, sub chan *Config) {
	lastApplied := a.cfgm.Get()
	for {
		var newCfg *Config
		select {
		case <-c.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			newCfg = cfg
		}
		// Coalesce bursts: keep only the latest config.
	drain:
		for {
			select {
			case newer := <-sub:
				if newer != nil {
					newCfg = newer
				}
			default:
				break drain
			}
		}
		a.applyConfig(lastApplied, newCfg)
		lastApplied = newCfg
	}
}

func (a *App) applyConfig(oldCfg, newCfg *Config) {
	sections, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	for _, s := range sections {
		switch s {
		case "logging":
			a.logs.Apply(mapLogConfig(newCfg))
		case "dispatch":
			if d, err := mapDispatchInterval(newCfg); err != nil {
				a.log.Warn("invalid dispatch config; keeping previous", logx.Err(err))
			} else {
				a.dispatchEvery.Store(int64(d))
			}
		case "debug":
			ctx := context.Background()
			if a.sup != nil {
				ctx = a.sup.Context()
			}
			a.diag.Reconfigure(ctx, mapDebugConfig(newCfg))
		case "scheduler", "storage":
			a.log.Warn(s + " config changed; restart required for changes to take effect")
		case "schedules":
			var prev []ScheduleConfig
			if oldCfg != nil {
				prev = oldCfg.Schedules
			}
			removed, added := DiffSchedules(prev, newCfg.Schedules)
			if rejected := a.applySchedules(removed, added); rejected > 0 {
				a.log.Warn("some schedules were rejected", logx.Int("rejected", rejected))
			}
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("diag", 2*time.Second, func(c context.Context) error {
		a.diag.Stop(c)
		return nil
	})
	step("scheduler", 2*time.Second, func(c context.Context) error {
		a.sched.Stop(c)
		a.clearNames()
		return nil
	})
	// Run what is already queued so accepted hits are not lost.
	step("drain", time.Second, func(context.Context) error {
		if n := a.sched.Drain(); n > 0 {
			a.log.Info("drained on stop", logx.Int("count", n))
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped", logx.Uint64("fired", a.fired.Load()))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
