// Package slippage turns reference prices into fill prices and volumes.
package slippage

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/orders"
)

// Model adjusts the reference price of each order and decides how much of
// it fills. A NaN reference price yields a zero volume.
type Model interface {
	Process(now time.Time, ords []*orders.Order, prices []float64) (fillPrices, fillVolumes []float64, err error)
}

// VolumeReader supplies the traded volume used by the volume cap.
type VolumeReader interface {
	LatestVolume(market.Instrument) (float64, bool)
}

// Base holds the optional volume cap shared by all models. With
// MaxVolumeShare > 0 a fill is limited to that share of the latest bar
// volume and rounded down to whole units for indivisible instruments.
type Base struct {
	MaxVolumeShare float64
	Volumes        VolumeReader
	Log            *zap.Logger
}

func (b Base) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

func (b Base) process(now time.Time, ords []*orders.Order, prices []float64, adjust func(p float64, buy bool) float64) ([]float64, []float64, error) {
	if len(ords) != len(prices) {
		return nil, nil, fmt.Errorf("slippage: %d orders but %d prices", len(ords), len(prices))
	}

	fillPrices := make([]float64, len(ords))
	fillVolumes := make([]float64, len(ords))
	for i, o := range ords {
		p := prices[i]
		if math.IsNaN(p) {
			fillPrices[i] = math.NaN()
			continue
		}
		fillPrices[i] = adjust(p, o.Remaining() > 0)
		fillVolumes[i] = o.Remaining()
	}

	if b.MaxVolumeShare > 0 {
		b.capVolumes(now, ords, fillVolumes)
	}
	return fillPrices, fillVolumes, nil
}

func (b Base) capVolumes(now time.Time, ords []*orders.Order, vols []float64) {
	seen := make(map[market.Instrument]int)
	for i, o := range ords {
		seen[o.Instrument]++
		if seen[o.Instrument] == 2 {
			b.logger().Warn("several orders for one instrument on the same tick; volume cap applies per order",
				zap.Stringer("instrument", o.Instrument),
				zap.Time("time", now))
		}
		if vols[i] == 0 || b.Volumes == nil {
			continue
		}

		v, ok := b.Volumes.LatestVolume(o.Instrument)
		if !ok {
			continue
		}
		limit := b.MaxVolumeShare * v
		q := math.Copysign(math.Min(math.Abs(vols[i]), limit), vols[i])
		if !o.Instrument.Class.Divisible() {
			q = math.Trunc(q)
		}
		vols[i] = q
	}
}

// None fills at the reference price.
type None struct {
	Base
}

func (m None) Process(now time.Time, ords []*orders.Order, prices []float64) ([]float64, []float64, error) {
	return m.process(now, ords, prices, func(p float64, _ bool) float64 { return p })
}

// Fixed moves the price against the trader by a fixed amount per unit.
type Fixed struct {
	Base
	Offset float64
}

func (m Fixed) Process(now time.Time, ords []*orders.Order, prices []float64) ([]float64, []float64, error) {
	return m.process(now, ords, prices, func(p float64, buy bool) float64 {
		if buy {
			return p + m.Offset
		}
		return p - m.Offset
	})
}

// Fractional moves the price against the trader by a fraction of it.
type Fractional struct {
	Base
	Rate float64
}

func (m Fractional) Process(now time.Time, ords []*orders.Order, prices []float64) ([]float64, []float64, error) {
	return m.process(now, ords, prices, func(p float64, buy bool) float64 {
		if buy {
			return p * (1 + m.Rate)
		}
		return p * (1 - m.Rate)
	})
}

// New builds a model by name: "none", "fixed" or "fractional".
func New(kind string, value float64, base Base) (Model, error) {
	switch kind {
	case "", "none":
		return None{Base: base}, nil
	case "fixed":
		return Fixed{Base: base, Offset: value}, nil
	case "fractional":
		return Fractional{Base: base, Rate: value}, nil
	}
	return nil, fmt.Errorf("unknown slippage model %q", kind)
}
