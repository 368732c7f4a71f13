// Package events is a small in-process pub/sub used to decouple trade
// execution from notification delivery. Publishing never blocks trading;
// when a subscriber falls behind, events are dropped and counted.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeOrderPlaced Type = "ORDER_PLACED"
	TypeFill        Type = "FILL"
	TypeRejected    Type = "REJECTED"
	TypeHedge       Type = "HEDGE"
	TypeHeartbeat   Type = "HEARTBEAT"
	TypeCritical    Type = "CRITICAL"
)

type Event struct {
	Type   Type
	Ticker string
	Action string
	Qty    decimal.Decimal
	Price  decimal.Decimal
	Detail string
	At     time.Time
}

type Bus struct {
	mu      sync.Mutex
	subs    []chan Event
	dropped atomic.Int64
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber. The returned channel is buffered;
// consume it promptly or lose events.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 64)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish fans the event out to all subscribers without blocking.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many events were discarded due to slow subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels. Publish must not be called after.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
