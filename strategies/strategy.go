// Package strategies holds the bundled trading strategies and the registry
// the session builder picks them from.
package strategies

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/data"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/orders"
)

// Strategy is the minimal interface a backtest strategy must implement.
// OnTick is called once per strategy time event; an error aborts the run.
type Strategy interface {
	Name() string
	OnTick(ctx context.Context, env *Env) error
}

// Env is everything a strategy may touch. Data is look-ahead safe and
// Broker is the only way to change the portfolio.
type Env struct {
	Broker broker.Broker
	Data   *data.Handler
	Orders *orders.Factory
	Log    *zap.Logger
}

// Builder creates a strategy for one instrument from its settings.
type Builder func(cfg config.StrategyConfig, inst market.Instrument) (Strategy, error)

var registry = map[string]Builder{}

// Register makes a strategy available to ByName. Names are case
// insensitive.
func Register(name string, b Builder) {
	registry[strings.ToLower(name)] = b
}

// Names lists the registered strategies.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ByName builds the configured strategy.
func ByName(cfg config.StrategyConfig, inst market.Instrument) (Strategy, error) {
	b, ok := registry[strings.ToLower(strings.TrimSpace(cfg.Name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", cfg.Name, strings.Join(Names(), ", "))
	}
	return b(cfg, inst)
}

func init() {
	Register("noop", func(config.StrategyConfig, market.Instrument) (Strategy, error) {
		return Noop{}, nil
	})
	Register("buy-and-hold", func(cfg config.StrategyConfig, inst market.Instrument) (Strategy, error) {
		if cfg.Quantity == 0 {
			return nil, fmt.Errorf("buy-and-hold: quantity must be non-zero")
		}
		return &BuyAndHold{Instrument: inst, Quantity: cfg.Quantity}, nil
	})
	Register("ema-cross", func(cfg config.StrategyConfig, inst market.Instrument) (Strategy, error) {
		return NewEMACross(EMACrossConfig{
			Instrument: inst,
			Quantity:   cfg.Quantity,
			FastPeriod: cfg.Fast,
			SlowPeriod: cfg.Slow,
		})
	})
}
