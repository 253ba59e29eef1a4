package execution

import (
	"fmt"

	"github.com/rustyeddy/tradesim/events"
	"github.com/rustyeddy/tradesim/orders"
)

// StopExecutor holds stop orders and checks them against each elapsed bar.
// A sell stop fills at the open when the bar gaps below the stop and at the
// stop when the low touches it; buy stops mirror this on the high side.
type StopExecutor struct {
	env  *Env
	book book
}

func NewStopExecutor(env *Env) *StopExecutor {
	return &StopExecutor{env: env, book: newBook()}
}

// Accept rejects a stop that is already on the wrong side of the market:
// a sell stop must be below the last price and a buy stop above it.
// Orders accepted before a rejected one stay in the book.
func (x *StopExecutor) Accept(ords []*orders.Order) error {
	for _, o := range ords {
		if err := x.validate(o); err != nil {
			return err
		}
		x.book.add(o)
	}
	return nil
}

func (x *StopExecutor) validate(o *orders.Order) error {
	if o.Style.Kind != orders.Stop {
		return &orders.InvalidOrderError{ID: o.ID, Reason: fmt.Sprintf("%s order sent to stop executor", o.Style.Kind)}
	}
	price, ok := x.env.Data.LastAvailablePrice(o.Instrument)
	if !ok {
		return &orders.InvalidOrderError{ID: o.ID, Reason: fmt.Sprintf("no price for %s to validate stop", o.Instrument)}
	}
	stop := o.Style.StopPrice
	switch {
	case o.IsBuy() && !(stop > price):
		return &orders.InvalidOrderError{ID: o.ID, Reason: fmt.Sprintf("buy stop %g must be above %g", stop, price)}
	case !o.IsBuy() && !(stop < price):
		return &orders.InvalidOrderError{ID: o.ID, Reason: fmt.Sprintf("sell stop %g must be below %g", stop, price)}
	}
	return nil
}

func (x *StopExecutor) Cancel(id int64) (*orders.Order, bool) { return x.book.cancel(id) }

func (x *StopExecutor) OpenOrders() []*orders.Order { return x.book.list() }

func (x *StopExecutor) Execute(e events.TimeEvent) error {
	intraday := x.env.Data.Frequency().Intraday()
	switch {
	case e.Type == events.MarketClose:
	case e.Type == events.PeriodicBar && intraday:
	default:
		return nil
	}

	if err := fill(x.env, &x.book, x.quote); err != nil {
		return err
	}
	if e.Type == events.MarketClose {
		x.book.expireWhere(x.env, func(o *orders.Order) bool {
			return o.TimeInForce == orders.DAY
		})
	}
	return nil
}

func (x *StopExecutor) quote(o *orders.Order) Quote {
	bar, ok := x.env.Data.ElapsedBar(o.Instrument)
	if !ok {
		return notFillable
	}
	stop := o.Style.StopPrice
	if o.IsBuy() {
		switch {
		case bar.Open >= stop:
			return fillAt(bar.Open)
		case bar.High >= stop:
			return fillAt(stop)
		}
		return notFillable
	}
	switch {
	case bar.Open <= stop:
		return fillAt(bar.Open)
	case bar.Low <= stop:
		return fillAt(stop)
	}
	return notFillable
}
