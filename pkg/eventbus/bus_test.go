package eventbus

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wagate/pkg/events"
)

func collect(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	for len(out) < n {
		select {
		case evt := <-ch:
			out = append(out, evt)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestBus_DeliversToAllSubscribersInPublishOrder(t *testing.T) {
	bus := New(zerolog.Nop())
	defer bus.Close()

	a := make(chan Event, 100)
	b := make(chan Event, 100)
	bus.Subscribe("a", func(e Event) { a <- e })
	bus.Subscribe("b", func(e Event) { b <- e })

	for i := 0; i < 50; i++ {
		bus.Publish(Event{Type: events.MessageReceived, SessionID: fmt.Sprintf("s%d", i)})
	}

	for name, ch := range map[string]chan Event{"a": a, "b": b} {
		got := collect(t, ch, 50)
		for i, evt := range got {
			if want := fmt.Sprintf("s%d", i); evt.SessionID != want {
				t.Fatalf("%s: event %d has session %q, want %q", name, i, evt.SessionID, want)
			}
			if evt.ID == "" || evt.Timestamp.IsZero() {
				t.Fatalf("%s: event %d was not stamped", name, i)
			}
		}
	}
}

func TestBus_PublishDoesNotWaitOnSlowSubscriber(t *testing.T) {
	bus := New(zerolog.Nop())
	defer bus.Close()

	release := make(chan struct{})
	bus.Subscribe("slow", func(Event) { <-release })
	defer close(release)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(Event{Type: events.SessionStatus})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := New(zerolog.Nop())
	defer bus.Close()

	ch := make(chan Event, 10)
	unsubscribe := bus.Subscribe("x", func(e Event) { ch <- e })
	bus.Publish(Event{Type: events.Ready})
	collect(t, ch, 1)

	unsubscribe()
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", bus.Subscribers())
	}
	bus.Publish(Event{Type: events.Ready})

	select {
	case <-ch:
		t.Fatal("received event after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_SubscriberPanicDoesNotKillSubscription(t *testing.T) {
	bus := New(zerolog.Nop())
	defer bus.Close()

	ch := make(chan Event, 10)
	bus.Subscribe("flaky", func(e Event) {
		if e.SessionID == "boom" {
			panic("boom")
		}
		ch <- e
	})

	bus.Publish(Event{SessionID: "boom"})
	bus.Publish(Event{SessionID: "ok"})

	got := collect(t, ch, 1)
	if got[0].SessionID != "ok" {
		t.Fatalf("unexpected event %+v", got[0])
	}
}
