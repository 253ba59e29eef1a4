package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/clock"
)

// TimeFlowController drives a backtest: every time the queue drains it moves
// the clock to the next scheduled instant and publishes the events due
// then. Once the next instant lies beyond end it publishes EndTradingEvent.
type TimeFlowController struct {
	mgr   *Manager
	sched *Scheduler
	timer *clock.SettableTimer
	end   time.Time
	done  bool
	log   *zap.Logger
}

// NewTimeFlowController wires the controller into mgr. The scheduler is
// subscribed as the KindTime listener.
func NewTimeFlowController(mgr *Manager, sched *Scheduler, timer *clock.SettableTimer, end time.Time, log *zap.Logger) *TimeFlowController {
	if log == nil {
		log = zap.NewNop()
	}
	c := &TimeFlowController{
		mgr:   mgr,
		sched: sched,
		timer: timer,
		end:   end,
		log:   log,
	}
	mgr.Subscribe(KindTime, sched)
	mgr.Subscribe(KindEmptyQueue, c)
	mgr.Subscribe(KindEndTrading, c)
	return c
}

func (c *TimeFlowController) OnEvent(e Event) error {
	switch e.(type) {
	case EmptyQueueEvent:
		c.advance()
	case EndTradingEvent:
		c.done = true
		c.log.Info("end of trading", zap.Time("time", e.Time()))
	}
	return nil
}

func (c *TimeFlowController) advance() {
	now := c.timer.Now()
	evts, ok := c.sched.NextTimeEvents(now)
	if !ok || evts[0].At.After(c.end) {
		c.mgr.Publish(EndTradingEvent{At: now})
		return
	}
	c.timer.Set(evts[0].At)
	for _, e := range evts {
		c.log.Debug("time event", zap.Stringer("event", e))
		c.mgr.Publish(e)
	}
}

// Done reports whether EndTradingEvent has been dispatched.
func (c *TimeFlowController) Done() bool {
	return c.done
}

// Run dispatches events until the end of trading, a listener error, or ctx
// cancellation.
func (c *TimeFlowController) Run(ctx context.Context) error {
	for !c.done {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.mgr.DispatchNext(); err != nil {
			return err
		}
	}
	return nil
}
