package app

import (
	"context"
	"time"

	"crontimer/internal/eventbus"
	"crontimer/internal/storage"
	"crontimer/internal/task/scheduler"
	logx "crontimer/pkg/logx"
)

const journalWriteTimeout = time.Second

// dispatchLoop drains the scheduler on a fixed cadence. The cadence follows
// dispatch.interval across reloads.
func (a *App) dispatchLoop(ctx context.Context) {
	every := time.Duration(a.dispatchEvery.Load())
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if n := a.sched.Drain(); n > 0 {
			a.log.Debug("callbacks drained", logx.Int("count", n))
		}
		if cur := time.Duration(a.dispatchEvery.Load()); cur != every {
			every = cur
			t.Reset(every)
		}
	}
}

// journalLoop writes every schedule.hit event to storage.
func (a *App) journalLoop(ctx context.Context, events <-chan eventbus.Event) {
	log := a.log.With(logx.String("comp", "journal"))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			hit, ok := ev.Data.(scheduler.HitEvent)
			if !ok {
				continue
			}
			rec := storage.HitRecord{At: hit.At, ScheduleID: hit.ID, Name: a.nameOf(hit.ID), Spec: hit.Spec}
			wctx, cancel := context.WithTimeout(ctx, journalWriteTimeout)
			err := a.store.AppendHit(wctx, rec)
			cancel()
			if err != nil {
				log.Warn("journal write failed", logx.Int("id", hit.ID), logx.Err(err))
			}
		}
	}
}
