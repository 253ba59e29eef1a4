package events

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/clock"
)

// ErrStaleEvent is returned when an event older than "now" reaches the head
// of the queue.
var ErrStaleEvent = errors.New("event is older than the current time")

type subscription struct {
	id       SubscriptionID
	listener Listener
}

// Manager owns the single FIFO dispatch queue of a session. Events published
// for the same instant are dispatched in publication order.
type Manager struct {
	timer  clock.Timer
	queue  []Event
	subs   map[Kind][]subscription
	nextID SubscriptionID
	log    *zap.Logger
}

func NewManager(timer clock.Timer, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		timer: timer,
		subs:  make(map[Kind][]subscription),
		log:   log,
	}
}

// Subscribe registers l for every event of kind k.
func (m *Manager) Subscribe(k Kind, l Listener) SubscriptionID {
	m.nextID++
	m.subs[k] = append(m.subs[k], subscription{id: m.nextID, listener: l})
	return m.nextID
}

// Unsubscribe removes a registration. It reports whether id was found.
func (m *Manager) Unsubscribe(k Kind, id SubscriptionID) bool {
	subs := m.subs[k]
	for i, s := range subs {
		if s.id == id {
			m.subs[k] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish appends e to the queue.
func (m *Manager) Publish(e Event) {
	m.queue = append(m.queue, e)
}

// Pending returns the number of queued events.
func (m *Manager) Pending() int {
	return len(m.queue)
}

// DispatchNext pops the oldest event and notifies its listeners. When the
// queue is empty an EmptyQueueEvent is dispatched instead.
func (m *Manager) DispatchNext() error {
	var e Event
	if len(m.queue) == 0 {
		e = EmptyQueueEvent{At: m.timer.Now()}
	} else {
		e = m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
	}

	if e.Time().Before(m.timer.Now()) {
		return fmt.Errorf("dispatch %s at %s (now %s): %w",
			e.Kind(), e.Time(), m.timer.Now(), ErrStaleEvent)
	}
	return m.notifyAll(e)
}

func (m *Manager) notifyAll(e Event) error {
	// Copy so listeners may (un)subscribe while being notified.
	subs := append([]subscription(nil), m.subs[e.Kind()]...)
	for _, s := range subs {
		if err := s.listener.OnEvent(e); err != nil {
			m.log.Error("listener failed",
				zap.Stringer("kind", e.Kind()),
				zap.Time("time", e.Time()),
				zap.Error(err))
			return fmt.Errorf("dispatch %s at %s: %w", e.Kind(), e.Time().Format("2006-01-02 15:04:05"), err)
		}
	}
	return nil
}
