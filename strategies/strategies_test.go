package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/clock"
	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/data"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/orders"
	"github.com/rustyeddy/tradesim/portfolio"
)

var spy = market.NewInstrument("SPY", market.Stock)

// fakeBroker fills every order immediately at no cost.
type fakeBroker struct {
	placed   [][]*orders.Order
	position map[market.Instrument]float64
	open     []*orders.Order
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{position: map[market.Instrument]float64{}}
}

func (b *fakeBroker) PlaceOrders(ords []*orders.Order) ([]int64, error) {
	b.placed = append(b.placed, ords)
	ids := make([]int64, len(ords))
	for i, o := range ords {
		b.position[o.Instrument] += o.Quantity
		ids[i] = int64(len(b.placed)*10 + i)
	}
	return ids, nil
}

func (b *fakeBroker) CancelOrder(int64) error { return nil }
func (b *fakeBroker) CancelAllOpenOrders() int { return 0 }
func (b *fakeBroker) OpenOrders() []*orders.Order { return b.open }
func (b *fakeBroker) GetAccount() broker.Account { return broker.Account{} }
func (b *fakeBroker) PortfolioValue() float64 { return 0 }
func (b *fakeBroker) Positions() []portfolio.Position { return nil }

func (b *fakeBroker) PositionQuantity(inst market.Instrument) float64 { return b.position[inst] }
func (b *fakeBroker) NetLiquidation() float64 { return 0 }

// closes are keyed on consecutive January 2024 trading days.
func testEnv(closes ...float64) (*Env, *fakeBroker, *clock.SettableTimer, []time.Time) {
	var bars market.Bars
	var days []time.Time
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		bars = append(bars, market.Bar{Time: d, Open: c, High: c, Low: c, Close: c, Volume: 1000})
		days = append(days, d)
		d = d.AddDate(0, 0, 1)
	}
	src := data.NewMemorySource()
	src.Add(spy, market.Daily, bars)

	tm := clock.NewSettableTimer(days[0])
	h := data.NewHandler(src, tm, market.DefaultCalendar(), market.Daily)
	b := newFakeBroker()
	return &Env{Broker: b, Data: h, Orders: orders.NewFactory(b, h)}, b, tm, days
}

// afterClose is one hour past the UTC session close of day.
func afterClose(day time.Time) time.Time {
	return day.Add(21 * time.Hour)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Noop{}.OnTick(context.Background(), nil))
	assert.Equal(t, "noop", Noop{}.Name())
}

func TestBuyAndHoldOpensOnce(t *testing.T) {
	t.Parallel()

	env, b, tm, days := testEnv(100, 101, 102)
	s := &BuyAndHold{Instrument: spy, Quantity: 10}
	for _, d := range days {
		tm.Set(afterClose(d))
		require.NoError(t, s.OnTick(context.Background(), env))
	}

	require.Len(t, b.placed, 1)
	require.Len(t, b.placed[0], 1)
	o := b.placed[0][0]
	assert.Equal(t, spy, o.Instrument)
	assert.Equal(t, 10.0, o.Quantity)
	assert.Equal(t, orders.Market, o.Style.Kind)
}

func TestEMACrossReversesOnCross(t *testing.T) {
	t.Parallel()

	env, b, tm, days := testEnv(10, 10, 10, 10, 12, 14, 16, 12, 8, 4)
	s, err := NewEMACross(EMACrossConfig{Instrument: spy, Quantity: 5, FastPeriod: 2, SlowPeriod: 3})
	require.NoError(t, err)

	for _, d := range days {
		tm.Set(afterClose(d))
		require.NoError(t, s.OnTick(context.Background(), env))
		// a second tick on the same bar must not feed it twice
		require.NoError(t, s.OnTick(context.Background(), env))
	}

	require.Len(t, b.placed, 2)
	assert.Equal(t, 5.0, b.placed[0][0].Quantity, "bull cross goes long")
	assert.Equal(t, -10.0, b.placed[1][0].Quantity, "bear cross reverses")
	assert.Equal(t, -5.0, b.position[spy])
}

func TestEMACrossNeedsElapsedBars(t *testing.T) {
	t.Parallel()

	env, b, tm, days := testEnv(10, 20, 30)
	s, err := NewEMACross(EMACrossConfig{Instrument: spy, Quantity: 1, FastPeriod: 1, SlowPeriod: 2})
	require.NoError(t, err)

	// before the first close nothing is visible
	tm.Set(days[0].Add(14 * time.Hour))
	require.NoError(t, s.OnTick(context.Background(), env))
	assert.False(t, s.fast.Ready())
	assert.Empty(t, b.placed)
}

func TestNewEMACrossValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  EMACrossConfig
		ok   bool
	}{
		{"defaults", EMACrossConfig{Instrument: spy, Quantity: 1}, true},
		{"fast above slow", EMACrossConfig{Instrument: spy, Quantity: 1, FastPeriod: 30, SlowPeriod: 10}, false},
		{"no quantity", EMACrossConfig{Instrument: spy, FastPeriod: 2, SlowPeriod: 3}, false},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go directive < 1.22)
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewEMACross(tt.cfg)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, "ema-cross(10,30)", s.Name())
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	s, err := ByName(config.StrategyConfig{Name: "Buy-And-Hold", Quantity: 3}, spy)
	require.NoError(t, err)
	assert.Equal(t, "buy-and-hold", s.Name())

	s, err = ByName(config.StrategyConfig{Name: "ema-cross", Quantity: 3, Fast: 5, Slow: 20}, spy)
	require.NoError(t, err)
	assert.Equal(t, "ema-cross(5,20)", s.Name())

	_, err = ByName(config.StrategyConfig{Name: "buy-and-hold"}, spy)
	assert.Error(t, err)

	_, err = ByName(config.StrategyConfig{Name: "martingale"}, spy)
	assert.ErrorContains(t, err, "unknown strategy")

	assert.Equal(t, []string{"buy-and-hold", "ema-cross", "noop"}, Names())
}
