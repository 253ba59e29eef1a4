package execution

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/clock"
	"github.com/rustyeddy/tradesim/events"
	"github.com/rustyeddy/tradesim/orders"
)

// ErrOrderCancelling is the sentinel behind OrderCancellingError.
var ErrOrderCancelling = errors.New("order cannot be cancelled")

// OrderCancellingError is returned for an id no executor holds.
type OrderCancellingError struct {
	ID int64
}

func (e *OrderCancellingError) Error() string {
	return fmt.Sprintf("cancel order %d: not open", e.ID)
}

func (e *OrderCancellingError) Unwrap() error { return ErrOrderCancelling }

// Handler routes orders to the executor registered for their style. It
// assigns ids at submission and hands orders over after the configured
// delay through the scheduler state.
type Handler struct {
	executors map[orders.StyleKind]Executor
	styles    []orders.StyleKind

	timer  clock.Timer
	state  *events.SchedulerState
	delay  time.Duration
	nextID int64
	log    *zap.Logger
}

func NewHandler(timer clock.Timer, state *events.SchedulerState, delay time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		executors: make(map[orders.StyleKind]Executor),
		timer:     timer,
		state:     state,
		delay:     delay,
		log:       log,
	}
}

// Register makes x the owner of orders with the given style. Styles are
// grouped and cancelled in registration order.
func (h *Handler) Register(kind orders.StyleKind, x Executor) {
	if _, ok := h.executors[kind]; !ok {
		h.styles = append(h.styles, kind)
	}
	h.executors[kind] = x
}

// PlaceOrders validates the batch, assigns ids grouped by style then time
// in force, and passes each group to its executor. The returned ids follow
// the input order. With a zero delay acceptance happens before returning
// and its error is returned; otherwise it runs as a scheduled action.
func (h *Handler) PlaceOrders(ords []*orders.Order) ([]int64, error) {
	for _, o := range ords {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		if _, ok := h.executors[o.Style.Kind]; !ok {
			return nil, &orders.InvalidOrderError{Reason: fmt.Sprintf("no executor for %s orders", o.Style.Kind)}
		}
	}

	type group struct {
		x    Executor
		ords []*orders.Order
	}
	var groups []group
	for _, kind := range h.styles {
		for _, tif := range orders.TimesInForce {
			var g []*orders.Order
			for _, o := range ords {
				if o.Style.Kind != kind || o.TimeInForce != tif {
					continue
				}
				h.nextID++
				o.ID = h.nextID
				o.Status = orders.Pending
				g = append(g, o)
			}
			if len(g) > 0 {
				groups = append(groups, group{x: h.executors[kind], ords: g})
			}
		}
	}

	ids := make([]int64, len(ords))
	for i, o := range ords {
		ids[i] = o.ID
	}

	accept := func() error {
		for _, g := range groups {
			if err := g.x.Accept(g.ords); err != nil {
				return err
			}
		}
		return nil
	}

	if h.delay <= 0 {
		return ids, accept()
	}
	at := h.timer.Now().Add(h.delay)
	h.state.Schedule(at, accept)
	h.log.Debug("orders scheduled for acceptance", zap.Int("count", len(ords)), zap.Time("at", at))
	return ids, nil
}

// CancelOrder cancels an open order. Orders still waiting for acceptance
// are not known to any executor and cannot be cancelled.
func (h *Handler) CancelOrder(id int64) error {
	for _, kind := range h.styles {
		if o, ok := h.executors[kind].Cancel(id); ok {
			h.log.Debug("order cancelled", zap.Stringer("order", o))
			return nil
		}
	}
	return &OrderCancellingError{ID: id}
}

// CancelAllOpenOrders cancels every open order and returns how many were
// cancelled.
func (h *Handler) CancelAllOpenOrders() int {
	n := 0
	for _, kind := range h.styles {
		x := h.executors[kind]
		for _, o := range x.OpenOrders() {
			if _, ok := x.Cancel(o.ID); ok {
				n++
			}
		}
	}
	return n
}

// OpenOrders lists open orders grouped by style in registration order.
func (h *Handler) OpenOrders() []*orders.Order {
	var out []*orders.Order
	for _, kind := range h.styles {
		out = append(out, h.executors[kind].OpenOrders()...)
	}
	return out
}
