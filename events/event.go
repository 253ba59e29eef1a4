// Package events is the discrete-event core of a backtest: a FIFO dispatch
// queue, calendar time events and the controller that advances the clock.
package events

import (
	"fmt"
	"time"
)

// Kind is the dispatch category of an event. All calendar events share
// KindTime so time based listeners receive them uniformly.
type Kind int

const (
	KindTime Kind = iota
	KindEmptyQueue
	KindEndTrading
)

func (k Kind) String() string {
	switch k {
	case KindTime:
		return "time"
	case KindEmptyQueue:
		return "empty-queue"
	case KindEndTrading:
		return "end-trading"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Event interface {
	Kind() Kind
	Time() time.Time
}

// Listener handles a dispatched event. A returned error aborts the run.
type Listener interface {
	OnEvent(Event) error
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(Event) error

func (f ListenerFunc) OnEvent(e Event) error { return f(e) }

// SubscriptionID identifies a registration so it can be removed later.
type SubscriptionID uint64

// EmptyQueueEvent is synthesized when the queue is drained. The time flow
// controller uses it to decide it is safe to advance the clock.
type EmptyQueueEvent struct {
	At time.Time
}

func (EmptyQueueEvent) Kind() Kind         { return KindEmptyQueue }
func (e EmptyQueueEvent) Time() time.Time { return e.At }

// EndTradingEvent marks the end of the simulated period.
type EndTradingEvent struct {
	At time.Time
}

func (EndTradingEvent) Kind() Kind         { return KindEndTrading }
func (e EndTradingEvent) Time() time.Time { return e.At }
