// Package indicators provides technical analysis indicators for trading
package indicators

import "github.com/rustyeddy/tradesim/market"

// Indicator computes a single streaming value from bars.
// It is deterministic, so a backtest replays to the same values.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next fully elapsed bar.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, 0 until Ready.
	Value() float64
}
