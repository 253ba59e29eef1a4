// Package commission prices the broker fee of a fill.
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Model returns the commission charged for filling quantity at price.
type Model interface {
	Calculate(quantity, price float64) float64
}

// Fixed charges the same amount per fill.
type Fixed struct {
	Amount float64
}

func (c Fixed) Calculate(_, _ float64) float64 { return c.Amount }

// Bps charges basis points of the traded notional.
type Bps struct {
	Bps float64
}

func (c Bps) Calculate(quantity, price float64) float64 {
	return notional(quantity, price).
		Mul(decimal.NewFromFloat(c.Bps)).
		Div(decimal.NewFromInt(10000)).
		InexactFloat64()
}

// Tiered is the usual equity broker schedule:
// max(Minimum, min(PerShare*|quantity|, MaxRate*notional)).
type Tiered struct {
	PerShare float64
	Minimum  float64
	MaxRate  float64
}

// DefaultTiered is a typical US equity schedule.
func DefaultTiered() Tiered {
	return Tiered{PerShare: 0.005, Minimum: 1, MaxRate: 0.01}
}

func (c Tiered) Calculate(quantity, price float64) float64 {
	perShare := decimal.NewFromFloat(quantity).Abs().Mul(decimal.NewFromFloat(c.PerShare))
	capped := decimal.Min(perShare, notional(quantity, price).Mul(decimal.NewFromFloat(c.MaxRate)))
	return decimal.Max(decimal.NewFromFloat(c.Minimum), capped).InexactFloat64()
}

func notional(quantity, price float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(price)).Abs()
}

// New builds a model by name: "none", "fixed", "bps" or "tiered". Value is
// the amount for fixed and the rate for bps; tiered uses DefaultTiered.
func New(kind string, value float64) (Model, error) {
	switch kind {
	case "", "none":
		return Fixed{}, nil
	case "fixed":
		return Fixed{Amount: value}, nil
	case "bps":
		return Bps{Bps: value}, nil
	case "tiered":
		return DefaultTiered(), nil
	}
	return nil, fmt.Errorf("unknown commission model %q", kind)
}
