package scheduler

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"crontimer/internal/eventbus"
	"crontimer/internal/runtime/supervisor"
	logx "crontimer/pkg/logx"
)

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.normalized()
	return &Service{
		cfg:      cfg,
		log:      log,
		bus:      bus,
		opts:     cfg.parseOptions(),
		entries:  map[int]*entry{},
		dropWarn: rate.NewLimiter(rate.Every(dropWarnEvery), 1),
	}
}

// Running reports whether the poll loop is active. A loop that outlived a
// timed-out Stop still counts until it exits.
func (s *Service) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.sup != nil
}

// Start launches the poll loop. The loop runs until Stop is called or ctx is
// canceled. Calling Start while a loop is running, or still exiting after
// Stop, does nothing.
func (s *Service) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.sup != nil {
		if s.sup.Context().Err() != nil {
			s.log.Warn("start ignored: previous poll loop still exiting")
		}
		return
	}

	// The second we start in is treated as already processed.
	last := time.Now().Unix()

	sup := supervisor.NewSupervisor(ctx, supervisor.WithLogger(s.log))
	s.sup = sup
	sup.Go0("scheduler.poll", func(ctx context.Context) {
		s.loop(ctx, last)
	})
	s.log.Info("service started",
		logx.Duration("tick", s.cfg.TickInterval),
		logx.Int("queue_cap", s.cfg.QueueCap),
		logx.String("overflow", s.cfg.Overflow.String()),
		logx.Int("schedules", s.Len()),
	)
}

// Stop signals the poll loop, waits for it to exit (bounded by ctx) and then
// empties the registry. Callbacks already queued stay queued for Drain.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.log.Info("stop requested")

	s.runMu.Lock()
	sup := s.sup
	s.runMu.Unlock()

	if sup != nil {
		err := sup.Stop(ctx)
		if err != nil && ctx.Err() != nil {
			// sup stays set until the loop has exited.
			s.log.Warn("poll loop did not stop in time", logx.Err(err))
			go func() {
				_ = sup.Wait(context.Background())
				s.release(sup)
				s.log.Info("poll loop exited after stop timeout")
			}()
		} else {
			if err != nil {
				s.log.Warn("poll loop stopped with error", logx.Err(err))
			}
			s.release(sup)
		}
	}

	s.mu.Lock()
	n := len(s.entries)
	s.entries = map[int]*entry{}
	s.mu.Unlock()

	s.log.Info("service stopped", logx.Int("cleared", n), logx.Duration("took", time.Since(start)))
}

func (s *Service) release(sup *supervisor.Supervisor) {
	s.runMu.Lock()
	if s.sup == sup {
		s.sup = nil
	}
	s.runMu.Unlock()
}

func (s *Service) loop(ctx context.Context, last int64) {
	t := time.NewTicker(s.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		now := time.Now()
		sec := now.Unix()
		if sec == last {
			continue
		}
		last = sec
		s.tick(now)
	}
}

// tick evaluates every registered schedule against now and queues the
// callbacks that hit. It returns the number of hits.
func (s *Service) tick(now time.Time) int {
	s.ticks.Add(1)

	s.mu.Lock()
	hits := make([]queued, 0, 4)
	for _, e := range s.entries {
		if !e.sched.Hit(now) {
			continue
		}
		e.hits++
		hits = append(hits, queued{id: e.id, spec: e.sched.String(), at: now, fn: e.fn})
	}
	s.mu.Unlock()

	if len(hits) == 0 {
		return 0
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].id < hits[j].id })
	s.enqueue(hits)
	return len(hits)
}

func (s *Service) enqueue(hits []queued) {
	accepted := make([]queued, 0, len(hits))
	var drops []queued

	s.qmu.Lock()
	limit := s.cfg.QueueCap
	for _, h := range hits {
		if limit > 0 && len(s.pending) >= limit {
			victim := h
			if s.cfg.Overflow == DropOldest {
				victim = s.pending[0]
				copy(s.pending, s.pending[1:])
				s.pending[len(s.pending)-1] = h
				accepted = append(accepted, h)
			}
			s.dropped++
			drops = append(drops, victim)
			continue
		}
		s.pending = append(s.pending, h)
		accepted = append(accepted, h)
	}
	total := s.dropped
	s.qmu.Unlock()

	for _, h := range accepted {
		s.publish(EventHit, h)
	}
	if len(drops) > 0 {
		s.reportDrops(drops, total)
	}
}

func (s *Service) reportDrops(drops []queued, total uint64) {
	for _, d := range drops {
		s.publish(EventDropped, d)
	}
	if !s.dropWarn.Allow() {
		return
	}
	s.log.Warn("pending queue full, callbacks dropped",
		logx.Int("dropped_now", len(drops)),
		logx.Uint64("dropped_total", total),
		logx.Int("queue_cap", s.cfg.QueueCap),
		logx.String("overflow", s.cfg.Overflow.String()),
	)
}

func (s *Service) publish(typ string, q queued) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: q.at, Data: HitEvent{ID: q.id, Spec: q.spec, At: q.at}})
}
