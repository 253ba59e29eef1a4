package events

import (
	"time"

	"go.uber.org/zap"
)

type registration struct {
	trigger   Trigger
	listeners []subscription
}

// Scheduler keeps one trigger per time event type together with the
// listeners interested in it. It is the KindTime listener of the Manager and
// forwards each fired TimeEvent to the listeners of its concrete type, in
// registration order.
type Scheduler struct {
	regs   []*registration
	nextID SubscriptionID
	log    *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{log: log}
}

func (s *Scheduler) find(t TimeEventType) *registration {
	for _, r := range s.regs {
		if r.trigger.Type() == t {
			return r
		}
	}
	return nil
}

// Subscribe registers l for the events produced by trigger. Only the first
// trigger registered for a given type is kept; later ones just add
// listeners.
func (s *Scheduler) Subscribe(trigger Trigger, l Listener) SubscriptionID {
	r := s.find(trigger.Type())
	if r == nil {
		r = &registration{trigger: trigger}
		s.regs = append(s.regs, r)
	}
	s.nextID++
	r.listeners = append(r.listeners, subscription{id: s.nextID, listener: l})
	return s.nextID
}

// Unsubscribe removes a listener. The trigger is dropped together with its
// last listener.
func (s *Scheduler) Unsubscribe(t TimeEventType, id SubscriptionID) bool {
	for ri, r := range s.regs {
		if r.trigger.Type() != t {
			continue
		}
		for i, sub := range r.listeners {
			if sub.id != id {
				continue
			}
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			if len(r.listeners) == 0 {
				s.regs = append(s.regs[:ri:ri], s.regs[ri+1:]...)
			}
			return true
		}
	}
	return false
}

// NextTimeEvents returns every registered event whose next trigger time is
// the earliest one after now, in registration order.
func (s *Scheduler) NextTimeEvents(now time.Time) ([]TimeEvent, bool) {
	var (
		next time.Time
		out  []TimeEvent
	)
	for _, r := range s.regs {
		t := r.trigger.NextTrigger(now)
		if t.IsZero() {
			continue
		}
		switch {
		case next.IsZero() || t.Before(next):
			next = t
			out = append(out[:0], TimeEvent{Type: r.trigger.Type(), At: t})
		case t.Equal(next):
			out = append(out, TimeEvent{Type: r.trigger.Type(), At: t})
		}
	}
	return out, len(out) > 0
}

// OnEvent forwards a TimeEvent to the listeners of its type.
func (s *Scheduler) OnEvent(e Event) error {
	te, ok := e.(TimeEvent)
	if !ok {
		return nil
	}
	r := s.find(te.Type)
	if r == nil {
		s.log.Debug("no listeners for time event", zap.Stringer("event", te))
		return nil
	}
	for _, sub := range append([]subscription(nil), r.listeners...) {
		if err := sub.listener.OnEvent(te); err != nil {
			return err
		}
	}
	return nil
}
