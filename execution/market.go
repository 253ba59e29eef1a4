package execution

import (
	"github.com/rustyeddy/tradesim/events"
	"github.com/rustyeddy/tradesim/orders"
)

// MarketExecutor fills market orders at the session open, and for intraday
// sessions at every bar open as well. OPG orders only get the open: they
// fill there or expire.
type MarketExecutor struct {
	env  *Env
	book book
}

func NewMarketExecutor(env *Env) *MarketExecutor {
	return &MarketExecutor{env: env, book: newBook()}
}

func (x *MarketExecutor) Accept(ords []*orders.Order) error {
	return acceptStyle(&x.book, orders.Market, ords)
}

func (x *MarketExecutor) Cancel(id int64) (*orders.Order, bool) { return x.book.cancel(id) }

func (x *MarketExecutor) OpenOrders() []*orders.Order { return x.book.list() }

func (x *MarketExecutor) Execute(e events.TimeEvent) error {
	switch e.Type {
	case events.MarketOpen:
		err := fill(x.env, &x.book, func(o *orders.Order) Quote {
			if p, ok := x.env.Data.CurrentPrice(o.Instrument); ok {
				return fillAt(p)
			}
			if o.TimeInForce == orders.OPG {
				return expire
			}
			return notFillable
		})
		if err != nil {
			return err
		}
		// A partially filled OPG order cannot trade after the open.
		x.book.expireWhere(x.env, func(o *orders.Order) bool {
			return o.TimeInForce == orders.OPG
		})
		return nil

	case events.PeriodicBar:
		if !x.env.Data.Frequency().Intraday() {
			return nil
		}
		return fill(x.env, &x.book, func(o *orders.Order) Quote {
			if o.TimeInForce == orders.OPG {
				return notFillable
			}
			if p, ok := x.env.Data.CurrentPrice(o.Instrument); ok {
				return fillAt(p)
			}
			return notFillable
		})
	}
	return nil
}
