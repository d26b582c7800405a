package app

import (
	"context"

	"crontimer/internal/storage"
	"crontimer/internal/task/scheduler"
)

const statusRecentHits = 20

// Status is the body served at the diagnostics /status endpoint.
type Status struct {
	Scheduler  scheduler.Snapshot  `json:"scheduler"`
	Names      map[int]string      `json:"names"`
	Fired      uint64              `json:"fired"`
	BusDropped uint64              `json:"bus_dropped"`
	RecentHits []storage.HitRecord `json:"recent_hits,omitempty"`
}

// Status reports the scheduler state plus the newest journaled hits.
func (a *App) Status(ctx context.Context) (Status, error) {
	st := Status{
		Scheduler:  a.sched.Snapshot(),
		Fired:      a.fired.Load(),
		BusDropped: a.bus.Dropped(),
	}
	a.namesMu.Lock()
	st.Names = make(map[int]string, len(a.byID))
	for id, n := range a.byID {
		st.Names[id] = n
	}
	a.namesMu.Unlock()

	if a.store != nil {
		recs, err := a.store.RecentHits(ctx, statusRecentHits)
		if err != nil {
			return st, err
		}
		st.RecentHits = recs
	}
	return st, nil
}
