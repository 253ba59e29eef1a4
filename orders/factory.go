package orders

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rustyeddy/tradesim/market"
)

// ErrNoPrice is returned when a value based order needs a price the market
// does not have yet.
var ErrNoPrice = errors.New("no price available")

const qtyEpsilon = 1e-9

// Holdings is the portfolio view the Factory sizes orders against.
type Holdings interface {
	PositionQuantity(market.Instrument) float64
	NetLiquidation() float64
}

// PriceReader supplies look-ahead safe prices.
type PriceReader interface {
	LastAvailablePrice(market.Instrument) (float64, bool)
}

// Factory turns quantities, values and weights into orders. Results are
// sorted by ticker and orders with a zero quantity are left out.
type Factory struct {
	holdings Holdings
	prices   PriceReader
}

func NewFactory(h Holdings, p PriceReader) *Factory {
	return &Factory{holdings: h, prices: p}
}

// Orders creates one order per instrument for the given signed quantities.
func (f *Factory) Orders(qty map[market.Instrument]float64, style ExecutionStyle, tif TimeInForce) []*Order {
	var out []*Order
	for _, inst := range sortedKeys(qty) {
		q := roundQty(inst, qty[inst])
		if math.Abs(q) < qtyEpsilon {
			continue
		}
		out = append(out, New(inst, q, style, tif))
	}
	return out
}

// TargetOrders creates the orders that bring each position to the target
// quantity.
func (f *Factory) TargetOrders(target map[market.Instrument]float64, style ExecutionStyle, tif TimeInForce) []*Order {
	delta := make(map[market.Instrument]float64, len(target))
	for inst, q := range target {
		delta[inst] = roundQty(inst, q) - f.holdings.PositionQuantity(inst)
	}
	return f.Orders(delta, style, tif)
}

// ValueOrders buys (or sells, for negative values) the given notional.
func (f *Factory) ValueOrders(value map[market.Instrument]float64, style ExecutionStyle, tif TimeInForce) ([]*Order, error) {
	qty, err := f.toQuantities(value)
	if err != nil {
		return nil, err
	}
	return f.Orders(qty, style, tif), nil
}

// PercentOrders trades the given fraction of net liquidation value.
func (f *Factory) PercentOrders(pct map[market.Instrument]float64, style ExecutionStyle, tif TimeInForce) ([]*Order, error) {
	return f.ValueOrders(f.toValues(pct), style, tif)
}

// TargetValueOrders brings each position to the target notional.
func (f *Factory) TargetValueOrders(value map[market.Instrument]float64, style ExecutionStyle, tif TimeInForce) ([]*Order, error) {
	qty, err := f.toQuantities(value)
	if err != nil {
		return nil, err
	}
	return f.TargetOrders(qty, style, tif), nil
}

// TargetPercentOrders brings each position to the target weight of net
// liquidation value.
func (f *Factory) TargetPercentOrders(pct map[market.Instrument]float64, style ExecutionStyle, tif TimeInForce) ([]*Order, error) {
	return f.TargetValueOrders(f.toValues(pct), style, tif)
}

func (f *Factory) toValues(pct map[market.Instrument]float64) map[market.Instrument]float64 {
	nav := f.holdings.NetLiquidation()
	out := make(map[market.Instrument]float64, len(pct))
	for inst, p := range pct {
		out[inst] = p * nav
	}
	return out
}

func (f *Factory) toQuantities(value map[market.Instrument]float64) (map[market.Instrument]float64, error) {
	out := make(map[market.Instrument]float64, len(value))
	for _, inst := range sortedKeys(value) {
		p, ok := f.prices.LastAvailablePrice(inst)
		if !ok || !(p > 0) {
			return nil, fmt.Errorf("%s: %w", inst, ErrNoPrice)
		}
		out[inst] = value[inst] / p
	}
	return out, nil
}

// roundQty truncates toward zero for instruments that trade in whole units.
func roundQty(inst market.Instrument, q float64) float64 {
	if inst.Class.Divisible() {
		return q
	}
	return math.Trunc(q + math.Copysign(qtyEpsilon, q))
}

func sortedKeys[V any](m map[market.Instrument]V) []market.Instrument {
	keys := make([]market.Instrument, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Ticker < keys[j].Ticker })
	return keys
}
