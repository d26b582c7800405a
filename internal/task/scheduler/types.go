package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"crontimer/internal/eventbus"
	"crontimer/internal/runtime/supervisor"
	"crontimer/internal/task/cronspec"
	logx "crontimer/pkg/logx"
)

const (
	// DefaultTickInterval is how often the poll loop wakes up.
	DefaultTickInterval = 10 * time.Millisecond
	// MaxTickInterval keeps every wall-clock second observable.
	MaxTickInterval = 500 * time.Millisecond

	// Bus event types.
	EventHit     = "schedule.hit"
	EventDropped = "schedule.dropped"

	dropWarnEvery = 5 * time.Second
)

// OverflowPolicy decides which callback is discarded when the pending queue
// is bounded and full.
type OverflowPolicy int

const (
	DropNewest OverflowPolicy = iota
	DropOldest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	default:
		return "drop_newest"
	}
}

// ParseOverflow maps a config value to a policy. Empty means DropNewest.
func ParseOverflow(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop_newest":
		return DropNewest, nil
	case "drop_oldest":
		return DropOldest, nil
	default:
		return DropNewest, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// Config controls the scheduler service.
type Config struct {
	// TickInterval is the poll period. Zero or negative uses DefaultTickInterval;
	// values above MaxTickInterval are clamped.
	TickInterval time.Duration
	// QueueCap bounds the pending queue. Zero means unbounded.
	QueueCap int
	Overflow OverflowPolicy
	// ZeroBasedRanges makes "a-b" fill 0..b (see cronspec.WithZeroBasedRanges).
	ZeroBasedRanges bool
}

func (c Config) normalized() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.TickInterval > MaxTickInterval {
		c.TickInterval = MaxTickInterval
	}
	if c.QueueCap < 0 {
		c.QueueCap = 0
	}
	return c
}

func (c Config) parseOptions() []cronspec.Option {
	if c.ZeroBasedRanges {
		return []cronspec.Option{cronspec.WithZeroBasedRanges()}
	}
	return nil
}

// HitEvent is the Data payload of EventHit and EventDropped.
type HitEvent struct {
	ID   int       `json:"id"`
	Spec string    `json:"spec"`
	At   time.Time `json:"at"`
}

type entry struct {
	id    int
	sched *cronspec.Schedule
	fn    func()
	hits  uint64
}

// queued is one pending callback invocation.
type queued struct {
	id   int
	spec string
	at   time.Time
	fn   func()
}

type Service struct {
	log logx.Logger
	cfg Config
	bus eventbus.Bus

	opts []cronspec.Option

	// registry
	mu      sync.Mutex
	entries map[int]*entry
	nextID  int

	// pending queue; never held together with mu
	qmu     sync.Mutex
	pending []queued
	dropped uint64

	runMu sync.Mutex
	sup   *supervisor.Supervisor

	ticks    atomic.Uint64
	dropWarn *rate.Limiter
}

type ScheduleInfo struct {
	ID   int       `json:"id"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next,omitzero"`
	Hits uint64    `json:"hits"`
}

type Snapshot struct {
	Running      bool           `json:"running"`
	TickInterval time.Duration  `json:"tick_interval"`
	Schedules    []ScheduleInfo `json:"schedules"`
	QueueLen     int            `json:"queue_len"`
	QueueCap     int            `json:"queue_cap"`
	Overflow     string         `json:"overflow"`
	Dropped      uint64         `json:"dropped"`
	Ticks        uint64         `json:"ticks"`
}
