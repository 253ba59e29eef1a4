package execution

import (
	"github.com/rustyeddy/tradesim/events"
	"github.com/rustyeddy/tradesim/orders"
)

// BoundaryExecutor fills orders only at one session boundary: the open for
// market-on-open orders, the close for market-on-close. DAY orders still
// open after that boundary expire; GTC orders wait for the next one.
type BoundaryExecutor struct {
	env  *Env
	kind orders.StyleKind
	at   events.TimeEventType
	book book
}

func NewMarketOnOpenExecutor(env *Env) *BoundaryExecutor {
	return &BoundaryExecutor{env: env, kind: orders.MarketOnOpen, at: events.MarketOpen, book: newBook()}
}

func NewMarketOnCloseExecutor(env *Env) *BoundaryExecutor {
	return &BoundaryExecutor{env: env, kind: orders.MarketOnClose, at: events.MarketClose, book: newBook()}
}

func (x *BoundaryExecutor) Accept(ords []*orders.Order) error {
	return acceptStyle(&x.book, x.kind, ords)
}

func (x *BoundaryExecutor) Cancel(id int64) (*orders.Order, bool) { return x.book.cancel(id) }

func (x *BoundaryExecutor) OpenOrders() []*orders.Order { return x.book.list() }

func (x *BoundaryExecutor) Execute(e events.TimeEvent) error {
	if e.Type != x.at {
		return nil
	}
	err := fill(x.env, &x.book, func(o *orders.Order) Quote {
		if p, ok := x.env.Data.CurrentPrice(o.Instrument); ok {
			return fillAt(p)
		}
		return notFillable
	})
	if err != nil {
		return err
	}
	x.book.expireWhere(x.env, func(o *orders.Order) bool {
		return o.TimeInForce == orders.DAY
	})
	return nil
}
