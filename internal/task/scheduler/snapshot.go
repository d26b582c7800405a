package scheduler

import (
	"sort"
	"time"
)

func (s *Service) Snapshot() Snapshot {
	now := time.Now()

	s.mu.Lock()
	items := make([]ScheduleInfo, 0, len(s.entries))
	for _, e := range s.entries {
		items = append(items, ScheduleInfo{ID: e.id, Spec: e.sched.String(), Next: e.sched.Next(now), Hits: e.hits})
	}
	s.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	s.qmu.Lock()
	ql := len(s.pending)
	dropped := s.dropped
	s.qmu.Unlock()

	return Snapshot{
		Running:      s.Running(),
		TickInterval: s.cfg.TickInterval,
		Schedules:    items,
		QueueLen:     ql,
		QueueCap:     s.cfg.QueueCap,
		Overflow:     s.cfg.Overflow.String(),
		Dropped:      dropped,
		Ticks:        s.ticks.Load(),
	}
}
