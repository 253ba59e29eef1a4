package portfolio

import (
	"math"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// qtyEpsilon is the quantity treated as flat.
const qtyEpsilon = 1e-9

// Transaction is one executed fill. It is never modified once recorded.
type Transaction struct {
	Time       time.Time
	Instrument market.Instrument
	Quantity   float64
	Price      float64
	Commission float64
}

// Trade is a (partial) round trip closed by a transaction against an
// existing position. Quantity carries the sign of the position it closed.
type Trade struct {
	Instrument market.Instrument
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64
	Quantity   float64
	PnL        float64
}

// Position is the running holding in one instrument at weighted average
// cost.
type Position struct {
	Instrument market.Instrument
	Quantity   float64
	AvgCost    float64
	LastPrice  float64
	Opened     time.Time
	Closed     time.Time
}

// MarketValue is Quantity marked at LastPrice.
func (p Position) MarketValue() float64 {
	return p.Quantity * p.LastPrice
}

// UnrealizedPnL is the gain against the average cost at LastPrice.
func (p Position) UnrealizedPnL() float64 {
	return (p.LastPrice - p.AvgCost) * p.Quantity
}

// IsFlat reports whether the position holds nothing.
func (p Position) IsFlat() bool {
	return math.Abs(p.Quantity) < qtyEpsilon
}

// apply adds qty at price. qty must not cross zero; the ledger splits
// crossing transactions first.
func (p *Position) apply(qty, price float64) {
	switch {
	case p.IsFlat():
		p.Quantity = qty
		p.AvgCost = price
	case sameSign(p.Quantity, qty):
		total := math.Abs(p.Quantity) + math.Abs(qty)
		p.AvgCost = (p.AvgCost*math.Abs(p.Quantity) + price*math.Abs(qty)) / total
		p.Quantity += qty
	default:
		p.Quantity += qty
	}
	if p.IsFlat() {
		p.Quantity = 0
	}
	p.LastPrice = price
}

func sameSign(a, b float64) bool {
	return (a > 0) == (b > 0)
}
