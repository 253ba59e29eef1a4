// Package execution owns the orders waiting for a fill. One Executor per
// execution style decides when and at which price its orders fill; the
// Handler routes orders to them.
package execution

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/clock"
	"github.com/rustyeddy/tradesim/commission"
	"github.com/rustyeddy/tradesim/events"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/orders"
	"github.com/rustyeddy/tradesim/portfolio"
	"github.com/rustyeddy/tradesim/slippage"
)

const qtyEpsilon = 1e-9

// Executor holds the open orders of one execution style.
type Executor interface {
	Accept(ords []*orders.Order) error
	Cancel(id int64) (*orders.Order, bool)
	OpenOrders() []*orders.Order
	Execute(e events.TimeEvent) error
}

// Listener subscribes an executor to time events.
func Listener(x Executor) events.Listener {
	return events.ListenerFunc(func(e events.Event) error {
		te, ok := e.(events.TimeEvent)
		if !ok {
			return nil
		}
		return x.Execute(te)
	})
}

// DataReader is the look-ahead safe market view executors price from.
type DataReader interface {
	Frequency() market.Frequency
	CurrentPrice(market.Instrument) (float64, bool)
	LastAvailablePrice(market.Instrument) (float64, bool)
	ElapsedBar(market.Instrument) (market.Bar, bool)
}

// Ledger books fills.
type Ledger interface {
	TransactTransaction(portfolio.Transaction) error
}

// Monitor is told about every fill after it has been booked.
type Monitor interface {
	RecordTransaction(portfolio.Transaction) error
}

// Env is what every executor needs to turn a price into a booked fill.
type Env struct {
	Data       DataReader
	Slippage   slippage.Model
	Commission commission.Model
	Ledger     Ledger
	Monitor    Monitor
	Timer      clock.Timer
	Log        *zap.Logger
}

func (env *Env) logger() *zap.Logger {
	if env.Log == nil {
		return zap.NewNop()
	}
	return env.Log
}

// QuoteState is the outcome of pricing one order on one tick.
type QuoteState int

const (
	NotFillable QuoteState = iota
	Fillable
	Expired
)

// Quote is the no-slippage reference price for an order, or the reason
// there is none.
type Quote struct {
	State QuoteState
	Price float64
}

func fillAt(p float64) Quote { return Quote{State: Fillable, Price: p} }

var (
	notFillable = Quote{State: NotFillable}
	expire      = Quote{State: Expired}
)

// book keeps open orders by id.
type book struct {
	orders map[int64]*orders.Order
}

func newBook() book {
	return book{orders: make(map[int64]*orders.Order)}
}

func (b *book) add(o *orders.Order) {
	o.Status = orders.Awaiting
	b.orders[o.ID] = o
}

func (b *book) remove(id int64) (*orders.Order, bool) {
	o, ok := b.orders[id]
	if ok {
		delete(b.orders, id)
	}
	return o, ok
}

func (b *book) cancel(id int64) (*orders.Order, bool) {
	o, ok := b.remove(id)
	if ok {
		o.Status = orders.Cancelled
	}
	return o, ok
}

// list returns the open orders in id order, which is submission order.
func (b *book) list() []*orders.Order {
	out := make([]*orders.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// expireWhere removes every open order matching pred.
func (b *book) expireWhere(env *Env, pred func(*orders.Order) bool) {
	for _, o := range b.list() {
		if pred(o) {
			b.remove(o.ID)
			o.Status = orders.Expired
			env.logger().Info("order expired", zap.Stringer("order", o), zap.Float64("filled", o.Filled))
		}
	}
}

// acceptStyle adds ords to b after checking they carry the expected style.
// Orders before a rejected one stay accepted.
func acceptStyle(b *book, kind orders.StyleKind, ords []*orders.Order) error {
	for _, o := range ords {
		if o.Style.Kind != kind {
			return &orders.InvalidOrderError{ID: o.ID, Reason: fmt.Sprintf("%s order sent to %s executor", o.Style.Kind, kind)}
		}
		b.add(o)
	}
	return nil
}

// fill prices every open order, runs the priced ones through slippage and
// commission and books the resulting transactions. Orders left with no
// remaining quantity are marked filled and removed.
func fill(env *Env, b *book, price func(*orders.Order) Quote) error {
	now := env.Timer.Now()

	var (
		ords   []*orders.Order
		prices []float64
	)
	for _, o := range b.list() {
		q := price(o)
		switch q.State {
		case Expired:
			b.remove(o.ID)
			o.Status = orders.Expired
			env.logger().Info("order expired", zap.Stringer("order", o), zap.Time("time", now))
		case Fillable:
			ords = append(ords, o)
			prices = append(prices, q.Price)
		}
	}
	if len(ords) == 0 {
		return nil
	}

	fillPrices, fillVolumes, err := env.Slippage.Process(now, ords, prices)
	if err != nil {
		return err
	}

	for i, o := range ords {
		qty, px := fillVolumes[i], fillPrices[i]
		if qty == 0 || math.IsNaN(qty) || math.IsNaN(px) {
			continue
		}
		if px <= 0 {
			env.logger().Warn("non-positive fill price after slippage", zap.Stringer("order", o), zap.Float64("price", px))
			continue
		}

		txn := portfolio.Transaction{
			Time:       now,
			Instrument: o.Instrument,
			Quantity:   qty,
			Price:      px,
			Commission: env.Commission.Calculate(qty, px),
		}
		if err := env.Ledger.TransactTransaction(txn); err != nil {
			return fmt.Errorf("order %d: %w", o.ID, err)
		}
		if env.Monitor != nil {
			if err := env.Monitor.RecordTransaction(txn); err != nil {
				return fmt.Errorf("record order %d: %w", o.ID, err)
			}
		}

		o.Filled += qty
		env.logger().Debug("order filled",
			zap.Int64("id", o.ID),
			zap.Stringer("instrument", o.Instrument),
			zap.Float64("quantity", qty),
			zap.Float64("price", px),
			zap.Float64("commission", txn.Commission))

		if math.Abs(o.Remaining()) < qtyEpsilon {
			o.Status = orders.Filled
			b.remove(o.ID)
		}
	}
	return nil
}
