// Package broker is the trading surface a strategy sees.
package broker

import (
	"github.com/rustyeddy/tradesim/execution"
	"github.com/rustyeddy/tradesim/orders"
	"github.com/rustyeddy/tradesim/portfolio"
)

type Broker interface {
	PlaceOrders(ords []*orders.Order) ([]int64, error)
	CancelOrder(id int64) error
	CancelAllOpenOrders() int
	OpenOrders() []*orders.Order

	GetAccount() Account
	PortfolioValue() float64
	Positions() []portfolio.Position
}

// Account summarizes the portfolio at the current mark.
type Account struct {
	ID             string
	Cash           float64
	NetLiquidation float64
	GrossExposure  float64
	Leverage       float64
	OpenPositions  int
}

// Backtest routes orders through an execution.Handler and reads state from
// a Portfolio.
type Backtest struct {
	id        string
	execution *execution.Handler
	portfolio *portfolio.Portfolio
}

func NewBacktest(id string, h *execution.Handler, p *portfolio.Portfolio) *Backtest {
	return &Backtest{id: id, execution: h, portfolio: p}
}

func (b *Backtest) PlaceOrders(ords []*orders.Order) ([]int64, error) {
	return b.execution.PlaceOrders(ords)
}

func (b *Backtest) CancelOrder(id int64) error { return b.execution.CancelOrder(id) }

func (b *Backtest) CancelAllOpenOrders() int { return b.execution.CancelAllOpenOrders() }

func (b *Backtest) OpenOrders() []*orders.Order { return b.execution.OpenOrders() }

func (b *Backtest) GetAccount() Account {
	return Account{
		ID:             b.id,
		Cash:           b.portfolio.Cash(),
		NetLiquidation: b.portfolio.NetLiquidation(),
		GrossExposure:  b.portfolio.GrossExposure(),
		Leverage:       b.portfolio.Leverage(),
		OpenPositions:  len(b.portfolio.Positions()),
	}
}

func (b *Backtest) PortfolioValue() float64 { return b.portfolio.NetLiquidation() }

func (b *Backtest) Positions() []portfolio.Position { return b.portfolio.Positions() }
