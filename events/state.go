package events

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Action is work scheduled to run at a single instant.
type Action func() error

// SchedulerState is the scheduling configuration and single-shot agenda of
// one session. It is created by the session and passed to every component
// that schedules or computes trigger times; nothing here is global.
type SchedulerState struct {
	Calendar market.Calendar

	agenda map[int64][]Action // keyed by UnixNano
}

func NewSchedulerState(cal market.Calendar) *SchedulerState {
	return &SchedulerState{
		Calendar: cal,
		agenda:   make(map[int64][]Action),
	}
}

// Schedule queues fn to run when the Scheduled event for at fires.
func (s *SchedulerState) Schedule(at time.Time, fn Action) {
	k := at.UnixNano()
	s.agenda[k] = append(s.agenda[k], fn)
}

// NextScheduled returns the earliest scheduled instant strictly after now.
func (s *SchedulerState) NextScheduled(now time.Time) (time.Time, bool) {
	var (
		best  int64
		found bool
	)
	n := now.UnixNano()
	for k := range s.agenda {
		if k > n && (!found || k < best) {
			best, found = k, true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return time.Unix(0, best).In(now.Location()), true
}

// Take removes and returns the actions scheduled at at.
func (s *SchedulerState) Take(at time.Time) []Action {
	k := at.UnixNano()
	fns := s.agenda[k]
	delete(s.agenda, k)
	return fns
}

// Len returns the number of instants with pending actions.
func (s *SchedulerState) Len() int {
	return len(s.agenda)
}

// Instants lists the scheduled instants in chronological order.
func (s *SchedulerState) Instants() []time.Time {
	keys := make([]int64, 0, len(s.agenda))
	for k := range s.agenda {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]time.Time, len(keys))
	for i, k := range keys {
		out[i] = time.Unix(0, k).UTC()
	}
	return out
}

// OnEvent runs, in scheduling order, the actions due at the event's time.
// It is the listener registered for the Scheduled time event.
func (s *SchedulerState) OnEvent(e Event) error {
	for i, fn := range s.Take(e.Time()) {
		if err := fn(); err != nil {
			return fmt.Errorf("scheduled action %d at %s: %w", i, e.Time().Format(time.RFC3339), err)
		}
	}
	return nil
}
