package strategies

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/orders"
)

// EMACross trades a single instrument using a fast/slow EMA crossover.
// - Enters only on cross
// - Reverses on opposite cross (long after a bull cross, short after a bear cross)
// - Each fully elapsed bar is fed to the indicators exactly once
type EMACross struct {
	EMACrossConfig

	fast *indicators.ExponentialMA
	slow *indicators.ExponentialMA

	lastBar      time.Time
	lastDiff     float64
	haveLastDiff bool
}

type EMACrossConfig struct {
	Instrument market.Instrument
	Quantity   float64
	FastPeriod int // 10
	SlowPeriod int // 30
}

func NewEMACross(cfg EMACrossConfig) (*EMACross, error) {
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = 10
	}
	if cfg.SlowPeriod <= 0 {
		cfg.SlowPeriod = 30
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("ema-cross: fast period %d must be below slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.Quantity <= 0 {
		return nil, fmt.Errorf("ema-cross: quantity must be positive")
	}

	return &EMACross{
		EMACrossConfig: cfg,
		fast:           indicators.NewEMA(cfg.FastPeriod),
		slow:           indicators.NewEMA(cfg.SlowPeriod),
	}, nil
}

func (s *EMACross) Name() string {
	return fmt.Sprintf("ema-cross(%d,%d)", s.FastPeriod, s.SlowPeriod)
}

func (s *EMACross) OnTick(ctx context.Context, env *Env) error {
	bar, ok := env.Data.LatestBar(s.Instrument)
	if !ok || !bar.Time.After(s.lastBar) {
		return nil
	}
	s.lastBar = bar.Time

	s.fast.Update(bar)
	s.slow.Update(bar)

	// Wait until both EMAs are warmed up.
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	diff := s.fast.Value() - s.slow.Value()

	// Need a previous diff to detect a cross.
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil
	}

	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0
	s.lastDiff = diff

	switch {
	case bullCross:
		return s.onSignal(env, "BullCross", s.Quantity)
	case bearCross:
		return s.onSignal(env, "BearCross", -s.Quantity)
	default:
		return nil
	}
}

func (s *EMACross) onSignal(env *Env, signal string, target float64) error {
	// Orders still waiting from an earlier signal would double the position.
	for _, o := range env.Broker.OpenOrders() {
		if o.Instrument == s.Instrument {
			if err := env.Broker.CancelOrder(o.ID); err != nil {
				return err
			}
		}
	}

	ords := env.Orders.TargetOrders(map[market.Instrument]float64{s.Instrument: target},
		orders.MarketStyle(), orders.GTC)
	if len(ords) == 0 {
		return nil
	}
	if _, err := env.Broker.PlaceOrders(ords); err != nil {
		return fmt.Errorf("%s %s: %w", s.Name(), signal, err)
	}
	if env.Log != nil {
		env.Log.Info("ema cross signal",
			zap.String("signal", signal),
			zap.Stringer("instrument", s.Instrument),
			zap.Float64("target", target),
			zap.Float64("fast", s.fast.Value()),
			zap.Float64("slow", s.slow.Value()))
	}
	return nil
}
