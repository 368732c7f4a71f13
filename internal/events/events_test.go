package events

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(Event{Type: TypeFill, Ticker: "AAPL", Qty: decimal.NewFromInt(5)})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case e := <-ch:
			if e.Ticker != "AAPL" || e.Type != TypeFill {
				t.Fatalf("subscriber %s got %+v", name, e)
			}
			if e.At.IsZero() {
				t.Fatalf("subscriber %s: timestamp not stamped", name)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s never received the event", name)
		}
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	bus.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Type: TypeHeartbeat})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishing blocked on a slow subscriber")
	}
	if bus.Dropped() == 0 {
		t.Fatal("overflow should have been counted as drops")
	}
}

func TestCloseEndsSubscribers(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
}
