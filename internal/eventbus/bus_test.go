package eventbus

import (
	"sync"
	"testing"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()
	a, unsubA := b.Subscribe(4)
	defer unsubA()
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Type: "x", Data: 1})
	for _, ch := range []<-chan Event{a, c} {
		ev := <-ch
		if ev.Type != "x" || ev.Data != 1 || ev.Time.IsZero() {
			t.Fatalf("unexpected event %+v", ev)
		}
	}
}

func TestSubscribeTypeFilter(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4, "schedule.hit")
	defer unsub()

	b.Publish(Event{Type: "schedule.dropped"})
	b.Publish(Event{Type: "schedule.hit"})
	if len(ch) != 1 {
		t.Fatalf("buffered = %d, want 1", len(ch))
	}
	if ev := <-ch; ev.Type != "schedule.hit" {
		t.Fatalf("got %q", ev.Type)
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()
	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"})
	if b.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", b.Dropped())
	}
}

func TestUnsubscribeClosesAndIsIdempotent(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}

	// Publishing concurrently with unsubscribes must not panic.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		_, u := b.Subscribe(1)
		wg.Add(2)
		go func() { defer wg.Done(); b.Publish(Event{Type: "x"}) }()
		go func() { defer wg.Done(); u() }()
	}
	wg.Wait()
}
