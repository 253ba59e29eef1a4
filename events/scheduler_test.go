package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rustyeddy/tradesim/clock"
	"github.com/rustyeddy/tradesim/market"
)

type recorder struct {
	events []TimeEvent
}

func (r *recorder) OnEvent(e Event) error {
	r.events = append(r.events, e.(TimeEvent))
	return nil
}

func TestSchedulerNextTimeEventsCoincident(t *testing.T) {
	t.Parallel()

	st := NewSchedulerState(market.DefaultCalendar())
	s := NewScheduler(zaptest.NewLogger(t))
	s.Subscribe(MarketCloseTrigger(st), &recorder{})
	s.Subscribe(MarketOpenTrigger(st), &recorder{})
	s.Subscribe(SingleTimeTrigger(st), st)

	open := utc(2024, 1, 2, 13, 30)
	st.Schedule(open, func() error { return nil })

	evts, ok := s.NextTimeEvents(utc(2024, 1, 2, 8, 0))
	require.True(t, ok)
	assert.Equal(t, []TimeEvent{
		{Type: MarketOpen, At: open},
		{Type: Scheduled, At: open},
	}, evts)
}

func TestSchedulerForwardsByType(t *testing.T) {
	t.Parallel()

	st := NewSchedulerState(market.DefaultCalendar())
	s := NewScheduler(nil)
	opens, closes := &recorder{}, &recorder{}
	s.Subscribe(MarketOpenTrigger(st), opens)
	s.Subscribe(MarketCloseTrigger(st), closes)

	e := TimeEvent{Type: MarketClose, At: utc(2024, 1, 2, 20, 0)}
	require.NoError(t, s.OnEvent(e))
	assert.Empty(t, opens.events)
	assert.Equal(t, []TimeEvent{e}, closes.events)
}

func TestSchedulerUnsubscribeDropsTrigger(t *testing.T) {
	t.Parallel()

	st := NewSchedulerState(market.DefaultCalendar())
	s := NewScheduler(nil)
	id := s.Subscribe(MarketOpenTrigger(st), &recorder{})

	assert.True(t, s.Unsubscribe(MarketOpen, id))
	_, ok := s.NextTimeEvents(t0)
	assert.False(t, ok)
}

func TestSchedulerStateRunsActionsInOrder(t *testing.T) {
	t.Parallel()

	st := NewSchedulerState(market.DefaultCalendar())
	var got []int
	st.Schedule(t0, func() error { got = append(got, 1); return nil })
	st.Schedule(t0, func() error { got = append(got, 2); return nil })
	assert.Equal(t, 1, st.Len())

	require.NoError(t, st.OnEvent(TimeEvent{Type: Scheduled, At: t0}))
	assert.Equal(t, []int{1, 2}, got)
	assert.Zero(t, st.Len())
}

func TestSchedulerStateActionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	st := NewSchedulerState(market.DefaultCalendar())
	st.Schedule(t0, func() error { return boom })

	assert.ErrorIs(t, st.OnEvent(TimeEvent{Type: Scheduled, At: t0}), boom)
}

func TestTimeFlowControllerRunsToEnd(t *testing.T) {
	t.Parallel()

	start := utc(2024, 1, 2, 0, 0)
	end := utc(2024, 1, 4, 23, 59)
	timer := clock.NewSettableTimer(start)
	st := NewSchedulerState(market.DefaultCalendar())
	mgr := NewManager(timer, nil)
	sched := NewScheduler(nil)
	ctl := NewTimeFlowController(mgr, sched, timer, end, zaptest.NewLogger(t))

	rec := &recorder{}
	sched.Subscribe(MarketOpenTrigger(st), rec)
	sched.Subscribe(MarketCloseTrigger(st), rec)

	require.NoError(t, ctl.Run(context.Background()))
	assert.True(t, ctl.Done())

	var types []TimeEventType
	for _, e := range rec.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []TimeEventType{
		MarketOpen, MarketClose,
		MarketOpen, MarketClose,
		MarketOpen, MarketClose,
	}, types)
	assert.Equal(t, utc(2024, 1, 4, 20, 0), timer.Now())
}

func TestTimeFlowControllerHonorsContext(t *testing.T) {
	t.Parallel()

	timer := clock.NewSettableTimer(t0)
	mgr := NewManager(timer, nil)
	ctl := NewTimeFlowController(mgr, NewScheduler(nil), timer, t0.Add(time.Hour), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ctl.Run(ctx), context.Canceled)
}
