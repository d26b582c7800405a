package scheduler

import (
	"runtime/debug"

	"crontimer/internal/task/cronspec"
	logx "crontimer/pkg/logx"
)

// Parse parses text with the same options AddSchedule uses. Hosts call it to
// explain why AddSchedule returned 0.
func (s *Service) Parse(text string) *cronspec.Schedule {
	return cronspec.Parse(text, s.opts...)
}

// AddSchedule registers fn under a 7-field schedule line and returns its id.
// It returns 0 and registers nothing when the line is invalid or fn is nil.
// Ids start at 1 and are never reused.
func (s *Service) AddSchedule(text string, fn func()) int {
	if fn == nil {
		return 0
	}
	sched := s.Parse(text)
	if !sched.Valid() {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.entries[id] = &entry{id: id, sched: sched, fn: fn}
	return id
}

// RemoveSchedule unregisters id. It reports whether id was registered.
// Callbacks already queued for id still run on the next Drain.
func (s *Service) RemoveSchedule(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// Len returns the number of registered schedules.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Drain runs every queued callback on the calling goroutine, oldest first,
// and returns how many ran. No lock is held while callbacks run, so they may
// add or remove schedules. A panicking callback is logged and still counted.
func (s *Service) Drain() int {
	s.qmu.Lock()
	batch := s.pending
	s.pending = nil
	s.qmu.Unlock()

	for _, q := range batch {
		s.run(q)
	}
	return len(batch)
}

func (s *Service) run(q queued) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("schedule callback panicked",
				logx.Int("id", q.id),
				logx.String("spec", q.spec),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())),
			)
		}
	}()
	q.fn()
}
