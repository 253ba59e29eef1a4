package strategies

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/orders"
)

// BuyAndHold brings the position to Quantity on its first tick and then
// holds it.
type BuyAndHold struct {
	Instrument market.Instrument
	Quantity   float64

	opened bool
}

func (s *BuyAndHold) Name() string { return "buy-and-hold" }

func (s *BuyAndHold) OnTick(ctx context.Context, env *Env) error {
	if s.opened {
		return nil
	}
	if s.Quantity == 0 {
		return fmt.Errorf("buy-and-hold: quantity must be non-zero")
	}

	ords := env.Orders.TargetOrders(map[market.Instrument]float64{s.Instrument: s.Quantity},
		orders.MarketStyle(), orders.GTC)
	ids, err := env.Broker.PlaceOrders(ords)
	if err != nil {
		return err
	}
	if env.Log != nil {
		env.Log.Info("buy and hold entry",
			zap.Stringer("instrument", s.Instrument),
			zap.Float64("quantity", s.Quantity),
			zap.Int64s("ids", ids))
	}
	s.opened = true
	return nil
}
