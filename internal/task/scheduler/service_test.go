package scheduler

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crontimer/internal/eventbus"
	"crontimer/internal/task/cronspec"
	logx "crontimer/pkg/logx"
)

const everySecond = "* * * * * * *"

func TestAddScheduleAssignsIncreasingIDs(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	noop := func() {}

	ids := []int{s.AddSchedule(everySecond, noop), s.AddSchedule("0 0 12 * * * *", noop), s.AddSchedule("*/5 * * * * * *", noop)}
	if !reflect.DeepEqual(ids, []int{1, 2, 3}) {
		t.Fatalf("ids = %v, want [1 2 3]", ids)
	}
	if !s.RemoveSchedule(2) {
		t.Fatal("RemoveSchedule(2) = false")
	}
	if id := s.AddSchedule(everySecond, noop); id != 4 {
		t.Fatalf("id after remove = %d, want 4", id)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
}

func TestAddScheduleRejects(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	for _, line := range []string{"", "0 0 12 * * *", "0 60 * * * * *", "x * * * * * *", "5/0 * * * * * *"} {
		if id := s.AddSchedule(line, func() {}); id != 0 {
			t.Fatalf("AddSchedule(%q) = %d, want 0", line, id)
		}
	}
	if id := s.AddSchedule(everySecond, nil); id != 0 {
		t.Fatalf("AddSchedule with nil fn = %d, want 0", id)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
	// A rejection does not consume an id.
	if id := s.AddSchedule(everySecond, func() {}); id != 1 {
		t.Fatalf("first valid id = %d, want 1", id)
	}
}

func TestRemoveSchedule(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	id := s.AddSchedule(everySecond, func() {})
	if !s.RemoveSchedule(id) {
		t.Fatal("first remove should succeed")
	}
	if s.RemoveSchedule(id) {
		t.Fatal("second remove should fail")
	}
	if s.RemoveSchedule(0) || s.RemoveSchedule(99) {
		t.Fatal("unknown ids must not be removed")
	}
}

func TestTickQueuesWithoutRunning(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)

	var mu sync.Mutex
	var order []int
	rec := func(n int) func() {
		return func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}
	}
	s.AddSchedule(everySecond, rec(1))
	s.AddSchedule("0 0 0 1 1 * 2020", rec(2))
	s.AddSchedule(everySecond, rec(3))

	if n := s.tick(time.Now()); n != 2 {
		t.Fatalf("tick hits = %d, want 2", n)
	}
	mu.Lock()
	ran := len(order)
	mu.Unlock()
	if ran != 0 {
		t.Fatalf("callbacks ran during tick: %d", ran)
	}

	if n := s.Drain(); n != 2 {
		t.Fatalf("Drain() = %d, want 2", n)
	}
	if !reflect.DeepEqual(order, []int{1, 3}) {
		t.Fatalf("run order = %v, want [1 3]", order)
	}
	if n := s.Drain(); n != 0 {
		t.Fatalf("second Drain() = %d, want 0", n)
	}
}

func TestTickNoonOnlyAtNoon(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	s.AddSchedule("0 0 12 * * * *", func() {})
	noon := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.Local)
	if n := s.tick(noon.Add(-time.Second)); n != 0 {
		t.Fatalf("hits at 11:59:59 = %d", n)
	}
	if n := s.tick(noon); n != 1 {
		t.Fatalf("hits at noon = %d, want 1", n)
	}
	if n := s.Drain(); n != 1 {
		t.Fatalf("Drain() = %d, want 1", n)
	}
}

func TestRemovedScheduleStillDrainsQueuedHit(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	var ran atomic.Int32
	id := s.AddSchedule(everySecond, func() { ran.Add(1) })
	s.tick(time.Now())
	s.RemoveSchedule(id)
	if n := s.Drain(); n != 1 || ran.Load() != 1 {
		t.Fatalf("Drain() = %d ran = %d, want 1/1", n, ran.Load())
	}
	if n := s.tick(time.Now()); n != 0 {
		t.Fatalf("removed schedule still hits: %d", n)
	}
}

func TestQueueCapOverflow(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		policy OverflowPolicy
		want   int
	}{
		{name: "drop newest", policy: DropNewest, want: 1},
		{name: "drop oldest", policy: DropOldest, want: 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bus := eventbus.New()
			ch, unsub := bus.Subscribe(16)
			defer unsub()

			s := New(Config{QueueCap: 1, Overflow: tt.policy}, logx.Nop(), bus)
			var got []int
			s.AddSchedule(everySecond, func() { got = append(got, 1) })
			s.AddSchedule(everySecond, func() { got = append(got, 2) })

			s.tick(time.Now())
			if snap := s.Snapshot(); snap.Dropped != 1 || snap.QueueLen != 1 {
				t.Fatalf("Dropped = %d QueueLen = %d, want 1/1", snap.Dropped, snap.QueueLen)
			}
			if n := s.Drain(); n != 1 {
				t.Fatalf("Drain() = %d, want 1", n)
			}
			if !reflect.DeepEqual(got, []int{tt.want}) {
				t.Fatalf("ran %v, want [%d]", got, tt.want)
			}

			dropped := 0
			for len(ch) > 0 {
				if ev := <-ch; ev.Type == EventDropped {
					dropped++
				}
			}
			if dropped != 1 {
				t.Fatalf("dropped events = %d, want 1", dropped)
			}
		})
	}
}

func TestDrainRecoversPanic(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	var ran atomic.Int32
	s.AddSchedule(everySecond, func() { panic("boom") })
	s.AddSchedule(everySecond, func() { ran.Add(1) })
	s.tick(time.Now())
	if n := s.Drain(); n != 2 {
		t.Fatalf("Drain() = %d, want 2", n)
	}
	if ran.Load() != 1 {
		t.Fatal("callback after the panicking one did not run")
	}
}

func TestCallbackMayMutateRegistry(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	var added int
	s.AddSchedule(everySecond, func() {
		added = s.AddSchedule("0 0 0 * * * *", func() {})
		s.RemoveSchedule(1)
	})
	s.tick(time.Now())

	done := make(chan int, 1)
	go func() { done <- s.Drain() }()
	select {
	case n := <-done:
		if n != 1 {
			t.Fatalf("Drain() = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Drain deadlocked on a callback that touches the registry")
	}
	if added != 2 || s.Len() != 1 {
		t.Fatalf("added = %d Len = %d, want 2/1", added, s.Len())
	}
}

func TestHitEventsPublished(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	s := New(Config{}, logx.Nop(), bus)
	id := s.AddSchedule(everySecond, func() {})
	now := time.Now()
	s.tick(now)

	select {
	case ev := <-ch:
		if ev.Type != EventHit {
			t.Fatalf("event type = %q, want %q", ev.Type, EventHit)
		}
		hit, ok := ev.Data.(HitEvent)
		if !ok || hit.ID != id || hit.Spec != everySecond || !hit.At.Equal(now) {
			t.Fatalf("event data = %#v", ev.Data)
		}
	default:
		t.Fatal("no hit event published")
	}
}

func TestStopClearsRegistry(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	s.AddSchedule(everySecond, func() {})

	// Stop without Start only clears.
	s.Stop(context.Background())
	if s.Len() != 0 {
		t.Fatalf("Len() after Stop = %d, want 0", s.Len())
	}

	s.AddSchedule(everySecond, func() {})
	s.Start(context.Background())
	s.Start(context.Background())
	if !s.Running() {
		t.Fatal("expected running after Start")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	if s.Running() || s.Len() != 0 {
		t.Fatalf("Running = %v Len = %d after Stop", s.Running(), s.Len())
	}
}

func TestStopTimeoutKeepsLoopOwned(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	s.AddSchedule(everySecond, func() {})

	s.Start(context.Background())
	// Hold the registry lock so the next tick blocks inside the loop.
	s.mu.Lock()
	before := s.ticks.Load()
	deadline := time.Now().Add(2 * time.Second)
	for s.ticks.Load() == before && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.ticks.Load() == before {
		s.mu.Unlock()
		t.Fatal("poll loop never ticked")
	}

	s.runMu.Lock()
	first := s.sup
	s.runMu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		s.Stop(ctx)
	}()
	time.Sleep(300 * time.Millisecond)

	if !s.Running() {
		s.mu.Unlock()
		t.Fatal("Running() = false while the old loop is still blocked")
	}
	s.Start(context.Background())
	s.runMu.Lock()
	same := s.sup == first
	s.runMu.Unlock()
	if !same {
		s.mu.Unlock()
		t.Fatal("Start launched a second poll loop")
	}

	s.mu.Unlock()
	<-stopped
	deadline = time.Now().Add(2 * time.Second)
	for s.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Running() {
		t.Fatal("loop still owned after it exited")
	}

	s.Start(context.Background())
	if !s.Running() {
		t.Fatal("restart after late exit failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestTickIntervalClamped(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		in, want time.Duration
	}{
		{0, DefaultTickInterval},
		{-time.Second, DefaultTickInterval},
		{50 * time.Millisecond, 50 * time.Millisecond},
		{2 * time.Second, MaxTickInterval},
	} {
		s := New(Config{TickInterval: tt.in}, logx.Nop(), nil)
		if got := s.Snapshot().TickInterval; got != tt.want {
			t.Fatalf("TickInterval(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPollLoopFiresEverySecond(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	var ran atomic.Int32
	s.AddSchedule(everySecond, func() { ran.Add(1) })
	s.Start(context.Background())
	defer s.Stop(context.Background())

	deadline := time.Now().Add(2500 * time.Millisecond)
	total := 0
	for time.Now().Before(deadline) && total == 0 {
		total += s.Drain()
		time.Sleep(20 * time.Millisecond)
	}
	if total < 1 || ran.Load() < 1 {
		t.Fatalf("Drain total = %d ran = %d within 2.5s, want >= 1", total, ran.Load())
	}
}

func TestConcurrentRegistryAndTicks(t *testing.T) {
	t.Parallel()
	s := New(Config{QueueCap: 64}, logx.Nop(), eventbus.New())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := s.AddSchedule(everySecond, func() {})
				if i%2 == 0 {
					s.RemoveSchedule(id)
				}
			}
		}()
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.tick(time.Now())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Drain()
			_ = s.Snapshot()
		}
	}()
	wg.Wait()

	if s.Len() != 400 {
		t.Fatalf("Len() = %d, want 400", s.Len())
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	s := New(Config{QueueCap: 8, Overflow: DropOldest}, logx.Nop(), nil)
	s.AddSchedule("0 0 12 * * * *", func() {})
	s.AddSchedule(everySecond, func() {})
	s.tick(time.Date(2026, time.October, 19, 8, 0, 1, 0, time.Local))

	snap := s.Snapshot()
	if snap.Running || snap.QueueLen != 1 || snap.QueueCap != 8 || snap.Overflow != "drop_oldest" || snap.Ticks != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.TickInterval != DefaultTickInterval {
		t.Fatalf("TickInterval = %v, want default", snap.TickInterval)
	}
	if len(snap.Schedules) != 2 || snap.Schedules[0].ID != 1 || snap.Schedules[1].ID != 2 {
		t.Fatalf("schedules = %+v", snap.Schedules)
	}
	if snap.Schedules[1].Hits != 1 || snap.Schedules[1].Next.IsZero() {
		t.Fatalf("schedule info = %+v", snap.Schedules[1])
	}
}

func TestZeroBasedRangesConfig(t *testing.T) {
	t.Parallel()
	s := New(Config{ZeroBasedRanges: true}, logx.Nop(), nil)
	if !s.Parse("0 1-3 * * * * *").Field(cronspec.Minute).Hit(0) {
		t.Fatal("zero based ranges not applied")
	}
	plain := New(Config{}, logx.Nop(), nil)
	if plain.Parse("0 1-3 * * * * *").Field(cronspec.Minute).Hit(0) {
		t.Fatal("default ranges should start at the lower bound")
	}
}

func TestParseOverflow(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]OverflowPolicy{"": DropNewest, "drop_newest": DropNewest, " DROP_OLDEST ": DropOldest} {
		got, err := ParseOverflow(in)
		if err != nil || got != want {
			t.Fatalf("ParseOverflow(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseOverflow("block"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
