// Package portfolio is the cash, position and trade ledger of a backtest.
package portfolio

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/clock"
	"github.com/rustyeddy/tradesim/market"
)

// PriceReader supplies the look-ahead safe mark price.
type PriceReader interface {
	LastAvailablePrice(market.Instrument) (float64, bool)
}

// Monitor is told about transactions the portfolio books on its own, such as
// the forced close of an unpriced position.
type Monitor interface {
	RecordTransaction(Transaction) error
}

// NAVSample is one point of the net asset value series.
type NAVSample struct {
	Time           time.Time
	NetLiquidation float64
	Cash           float64
	GrossExposure  float64
	Leverage       float64
}

// Portfolio owns cash, open and closed positions, every transaction, the
// realized trades and the NAV series. Cash is kept in decimal.
type Portfolio struct {
	prices  PriceReader
	timer   clock.Timer
	log     *zap.Logger
	monitor Monitor

	initial decimal.Decimal
	cash    decimal.Decimal

	open   map[market.Instrument]*Position
	order  []market.Instrument
	closed []Position

	txns   []Transaction
	trades []Trade
	nav    []NAVSample
}

func New(initialCash float64, prices PriceReader, timer clock.Timer, log *zap.Logger) *Portfolio {
	if log == nil {
		log = zap.NewNop()
	}
	c := decimal.NewFromFloat(initialCash)
	return &Portfolio{
		prices:  prices,
		timer:   timer,
		log:     log,
		initial: c,
		cash:    c,
		open:    make(map[market.Instrument]*Position),
	}
}

// SetMonitor makes m receive every transaction booked by Update.
func (p *Portfolio) SetMonitor(m Monitor) { p.monitor = m }

// TransactTransaction books a fill: cash moves by price*quantity plus
// commission, the transaction is recorded and the position is updated. A
// fill against the position's direction records a Trade. When the fill
// crosses zero the old position is closed and a new one is opened with the
// remainder at the fill price.
func (p *Portfolio) TransactTransaction(txn Transaction) error {
	if math.Abs(txn.Quantity) < qtyEpsilon || math.IsNaN(txn.Quantity) {
		return fmt.Errorf("transaction %s: quantity %v", txn.Instrument, txn.Quantity)
	}
	if !(txn.Price > 0) || math.IsInf(txn.Price, 0) {
		return fmt.Errorf("transaction %s: price %v", txn.Instrument, txn.Price)
	}
	if math.IsNaN(txn.Commission) {
		return fmt.Errorf("transaction %s: commission %v", txn.Instrument, txn.Commission)
	}

	cost := decimal.NewFromFloat(txn.Price).Mul(decimal.NewFromFloat(txn.Quantity))
	p.cash = p.cash.Sub(cost).Sub(decimal.NewFromFloat(txn.Commission))
	p.txns = append(p.txns, txn)

	pos := p.open[txn.Instrument]
	if pos == nil {
		p.openPosition(txn.Instrument, txn.Quantity, txn.Price, txn.Time)
		return nil
	}

	prior := pos.Quantity
	if sameSign(prior, txn.Quantity) {
		pos.apply(txn.Quantity, txn.Price)
		return nil
	}

	closing := math.Min(math.Abs(txn.Quantity), math.Abs(prior))
	p.recordTrade(pos, txn, math.Copysign(closing, prior))

	remainder := txn.Quantity + prior
	if math.Abs(txn.Quantity) <= math.Abs(prior)+qtyEpsilon {
		pos.apply(txn.Quantity, txn.Price)
		if pos.IsFlat() {
			p.closePosition(pos, txn.Time)
		}
		return nil
	}

	pos.apply(-prior, txn.Price)
	p.closePosition(pos, txn.Time)
	p.openPosition(txn.Instrument, remainder, txn.Price, txn.Time)
	return nil
}

func (p *Portfolio) recordTrade(pos *Position, txn Transaction, qty float64) {
	// Commission is attributed to the closed part of the fill.
	share := decimal.NewFromFloat(math.Abs(qty)).Div(decimal.NewFromFloat(math.Abs(txn.Quantity)))
	pnl := decimal.NewFromFloat(txn.Price).Sub(decimal.NewFromFloat(pos.AvgCost)).
		Mul(decimal.NewFromFloat(qty)).
		Sub(decimal.NewFromFloat(txn.Commission).Mul(share))

	p.trades = append(p.trades, Trade{
		Instrument: txn.Instrument,
		EntryTime:  pos.Opened,
		EntryPrice: pos.AvgCost,
		ExitTime:   txn.Time,
		ExitPrice:  txn.Price,
		Quantity:   qty,
		PnL:        pnl.InexactFloat64(),
	})
}

func (p *Portfolio) openPosition(inst market.Instrument, qty, price float64, at time.Time) {
	pos := &Position{Instrument: inst, Opened: at}
	pos.apply(qty, price)
	p.open[inst] = pos
	p.order = append(p.order, inst)
}

func (p *Portfolio) closePosition(pos *Position, at time.Time) {
	pos.Quantity = 0
	pos.Closed = at
	p.closed = append(p.closed, *pos)
	delete(p.open, pos.Instrument)
	for i, inst := range p.order {
		if inst == pos.Instrument {
			p.order = append(p.order[:i:i], p.order[i+1:]...)
			break
		}
	}
}

// Update marks every open position to its last available price and
// appends one NAV sample. A position whose instrument has no price at all
// is closed at its last mark with a zero commission transaction, which is
// also passed to the monitor.
func (p *Portfolio) Update() error {
	now := p.timer.Now()
	for _, inst := range append([]market.Instrument(nil), p.order...) {
		pos := p.open[inst]
		if price, ok := p.prices.LastAvailablePrice(inst); ok {
			pos.LastPrice = price
			continue
		}

		p.log.Warn("no price available, closing position at last mark",
			zap.Stringer("instrument", inst),
			zap.Float64("quantity", pos.Quantity),
			zap.Float64("price", pos.LastPrice),
			zap.Time("time", now))
		txn := Transaction{
			Time:       now,
			Instrument: inst,
			Quantity:   -pos.Quantity,
			Price:      pos.LastPrice,
		}
		if err := p.TransactTransaction(txn); err != nil {
			return fmt.Errorf("close unpriced %s: %w", inst, err)
		}
		if p.monitor != nil {
			if err := p.monitor.RecordTransaction(txn); err != nil {
				return fmt.Errorf("record close of %s: %w", inst, err)
			}
		}
	}

	p.nav = append(p.nav, p.sample(now))
	return nil
}

func (p *Portfolio) sample(now time.Time) NAVSample {
	nav := p.netLiquidation()
	gross := p.GrossExposure()
	return NAVSample{
		Time:           now,
		NetLiquidation: nav.InexactFloat64(),
		Cash:           p.Cash(),
		GrossExposure:  gross,
		Leverage:       leverage(gross, nav.InexactFloat64()),
	}
}

func leverage(gross, nav float64) float64 {
	switch {
	case gross == 0:
		return 0
	case nav == 0:
		return math.Inf(1)
	}
	return gross / nav
}

func (p *Portfolio) netLiquidation() decimal.Decimal {
	total := p.cash
	for _, inst := range p.order {
		pos := p.open[inst]
		total = total.Add(decimal.NewFromFloat(pos.Quantity).Mul(decimal.NewFromFloat(pos.LastPrice)))
	}
	return total
}

// Cash is the current cash balance.
func (p *Portfolio) Cash() float64 { return p.cash.InexactFloat64() }

// InitialCash is the cash the portfolio started with.
func (p *Portfolio) InitialCash() float64 { return p.initial.InexactFloat64() }

// NetLiquidation is cash plus the market value of open positions at their
// last mark.
func (p *Portfolio) NetLiquidation() float64 { return p.netLiquidation().InexactFloat64() }

// GrossExposure is the sum of absolute market values.
func (p *Portfolio) GrossExposure() float64 {
	var g float64
	for _, inst := range p.order {
		g += math.Abs(p.open[inst].MarketValue())
	}
	return g
}

// Leverage is GrossExposure over NetLiquidation.
func (p *Portfolio) Leverage() float64 {
	return leverage(p.GrossExposure(), p.NetLiquidation())
}

// PositionQuantity returns the open quantity in inst, zero when flat.
func (p *Portfolio) PositionQuantity(inst market.Instrument) float64 {
	if pos, ok := p.open[inst]; ok {
		return pos.Quantity
	}
	return 0
}

// Position returns a copy of the open position in inst.
func (p *Portfolio) Position(inst market.Instrument) (Position, bool) {
	pos, ok := p.open[inst]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns copies of the open positions in opening order.
func (p *Portfolio) Positions() []Position {
	out := make([]Position, 0, len(p.order))
	for _, inst := range p.order {
		out = append(out, *p.open[inst])
	}
	return out
}

func (p *Portfolio) ClosedPositions() []Position {
	return append([]Position(nil), p.closed...)
}

func (p *Portfolio) Transactions() []Transaction {
	return append([]Transaction(nil), p.txns...)
}

func (p *Portfolio) Trades() []Trade {
	return append([]Trade(nil), p.trades...)
}

func (p *Portfolio) NAVSeries() []NAVSample {
	return append([]NAVSample(nil), p.nav...)
}
