package events

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// TimeEventType is the concrete variant of a calendar event.
type TimeEventType int

const (
	BeforeMarketOpen TimeEventType = iota
	MarketOpen
	PeriodicBar
	MarketClose
	AfterMarketClose
	Scheduled
)

var timeEventNames = map[TimeEventType]string{
	BeforeMarketOpen: "before-market-open",
	MarketOpen:       "market-open",
	PeriodicBar:      "periodic-bar",
	MarketClose:      "market-close",
	AfterMarketClose: "after-market-close",
	Scheduled:        "scheduled",
}

func (t TimeEventType) String() string {
	if s, ok := timeEventNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TimeEventType(%d)", int(t))
}

// TimeEvent is a fired calendar event. Two time events are equal when both
// their type and trigger time match.
type TimeEvent struct {
	Type TimeEventType
	At   time.Time
}

func (TimeEvent) Kind() Kind         { return KindTime }
func (e TimeEvent) Time() time.Time { return e.At }

func (e TimeEvent) String() string {
	return fmt.Sprintf("%s@%s", e.Type, e.At.Format(time.RFC3339))
}

// Trigger computes when a time event fires next.
type Trigger interface {
	Type() TimeEventType
	// NextTrigger returns the first trigger time strictly after now, or the
	// zero time when the trigger will not fire again.
	NextTrigger(now time.Time) time.Time
}

// sessionTrigger fires once per trading day at an offset from the session
// open or close.
type sessionTrigger struct {
	typ    TimeEventType
	state  *SchedulerState
	anchor func(cal market.Calendar, day time.Time) time.Time
}

func (t sessionTrigger) Type() TimeEventType { return t.typ }

func (t sessionTrigger) NextTrigger(now time.Time) time.Time {
	cal := t.state.Calendar
	return cal.NextAfter(now, func(day time.Time) time.Time {
		return t.anchor(cal, day)
	})
}

func MarketOpenTrigger(state *SchedulerState) Trigger {
	return sessionTrigger{typ: MarketOpen, state: state, anchor: func(c market.Calendar, d time.Time) time.Time {
		return c.OpenOn(d)
	}}
}

func MarketCloseTrigger(state *SchedulerState) Trigger {
	return sessionTrigger{typ: MarketClose, state: state, anchor: func(c market.Calendar, d time.Time) time.Time {
		return c.CloseOn(d)
	}}
}

// BeforeMarketOpenTrigger fires offset before every session open.
func BeforeMarketOpenTrigger(state *SchedulerState, offset time.Duration) Trigger {
	return sessionTrigger{typ: BeforeMarketOpen, state: state, anchor: func(c market.Calendar, d time.Time) time.Time {
		return c.OpenOn(d).Add(-offset)
	}}
}

// AfterMarketCloseTrigger fires offset after every session close.
func AfterMarketCloseTrigger(state *SchedulerState, offset time.Duration) Trigger {
	return sessionTrigger{typ: AfterMarketClose, state: state, anchor: func(c market.Calendar, d time.Time) time.Time {
		return c.CloseOn(d).Add(offset)
	}}
}

// periodicTrigger fires at every bar boundary strictly inside a session:
// open+f, open+2f, ... while before the close. The open and close themselves
// belong to MarketOpen and MarketClose.
type periodicTrigger struct {
	state *SchedulerState
	freq  market.Frequency
}

// PeriodicTrigger fires on intraday bar boundaries of freq.
func PeriodicTrigger(state *SchedulerState, freq market.Frequency) Trigger {
	return periodicTrigger{state: state, freq: freq}
}

func (periodicTrigger) Type() TimeEventType { return PeriodicBar }

func (t periodicTrigger) NextTrigger(now time.Time) time.Time {
	step := t.freq.Duration()
	if step <= 0 {
		return time.Time{}
	}
	cal := t.state.Calendar
	return cal.NextAfter(now, func(day time.Time) time.Time {
		open, close := cal.OpenOn(day), cal.CloseOn(day)
		next := open.Add(step)
		if now.After(open) {
			k := now.Sub(open)/step + 1
			next = open.Add(k * step)
		}
		if !next.Before(close) {
			// Sentinel that never satisfies After(now).
			return time.Time{}
		}
		return next
	})
}

// singleTimeTrigger fires at the instants scheduled in SchedulerState.
type singleTimeTrigger struct {
	state *SchedulerState
}

// SingleTimeTrigger fires once for every timestamp scheduled in state.
func SingleTimeTrigger(state *SchedulerState) Trigger {
	return singleTimeTrigger{state: state}
}

func (singleTimeTrigger) Type() TimeEventType { return Scheduled }

func (t singleTimeTrigger) NextTrigger(now time.Time) time.Time {
	next, ok := t.state.NextScheduled(now)
	if !ok {
		return time.Time{}
	}
	return next
}
