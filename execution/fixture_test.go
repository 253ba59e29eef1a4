package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rustyeddy/tradesim/clock"
	"github.com/rustyeddy/tradesim/commission"
	"github.com/rustyeddy/tradesim/data"
	"github.com/rustyeddy/tradesim/events"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/orders"
	"github.com/rustyeddy/tradesim/portfolio"
	"github.com/rustyeddy/tradesim/slippage"
)

var spy = market.NewInstrument("SPY", market.Stock)

func at(d, h, m int) time.Time {
	return time.Date(2024, 1, d, h, m, 0, 0, time.UTC)
}

func day(d int) time.Time { return at(d, 0, 0) }

type recMonitor struct {
	txns []portfolio.Transaction
}

func (m *recMonitor) RecordTransaction(t portfolio.Transaction) error {
	m.txns = append(m.txns, t)
	return nil
}

type fixture struct {
	timer   *clock.SettableTimer
	data    *data.Handler
	pf      *portfolio.Portfolio
	state   *events.SchedulerState
	env     *Env
	handler *Handler
	monitor *recMonitor

	market *MarketExecutor
	stop   *StopExecutor
	moo    *BoundaryExecutor
	moc    *BoundaryExecutor
}

type fixtureOpts struct {
	delay    time.Duration
	slippage slippage.Model
	freq     market.Frequency
	bars     market.Bars
}

// Jan 2-4 2024 are Tuesday to Thursday.
func dailyBars() market.Bars {
	return market.Bars{
		{Time: day(2), Open: 100, High: 105, Low: 95, Close: 102, Volume: 1000},
		{Time: day(3), Open: 101, High: 103, Low: 97, Close: 99, Volume: 1000},
		{Time: day(4), Open: 90, High: 92, Low: 88, Close: 91, Volume: 1000},
	}
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()

	if opts.freq == 0 {
		opts.freq = market.Daily
	}
	if opts.bars == nil {
		opts.bars = dailyBars()
	}
	if opts.slippage == nil {
		opts.slippage = slippage.None{}
	}

	log := zaptest.NewLogger(t)
	cal := market.DefaultCalendar()
	timer := clock.NewSettableTimer(at(2, 9, 0))

	src := data.NewMemorySource()
	src.Add(spy, opts.freq, opts.bars)
	dh := data.NewHandler(src, timer, cal, opts.freq)

	f := &fixture{
		timer:   timer,
		data:    dh,
		pf:      portfolio.New(10000, dh, timer, log),
		state:   events.NewSchedulerState(cal),
		monitor: &recMonitor{},
	}
	f.env = &Env{
		Data:       dh,
		Slippage:   opts.slippage,
		Commission: commission.Fixed{},
		Ledger:     f.pf,
		Monitor:    f.monitor,
		Timer:      timer,
		Log:        log,
	}
	f.market = NewMarketExecutor(f.env)
	f.stop = NewStopExecutor(f.env)
	f.moo = NewMarketOnOpenExecutor(f.env)
	f.moc = NewMarketOnCloseExecutor(f.env)

	f.handler = NewHandler(timer, f.state, opts.delay, log)
	f.handler.Register(orders.Market, f.market)
	f.handler.Register(orders.Stop, f.stop)
	f.handler.Register(orders.MarketOnOpen, f.moo)
	f.handler.Register(orders.MarketOnClose, f.moc)
	return f
}

// fire moves the clock to now and runs every executor for the event.
func (f *fixture) fire(t *testing.T, typ events.TimeEventType, now time.Time) {
	t.Helper()
	f.timer.Set(now)
	e := events.TimeEvent{Type: typ, At: now}
	for _, x := range []Executor{f.moo, f.market, f.stop, f.moc} {
		require.NoError(t, x.Execute(e))
	}
}

func (f *fixture) place(t *testing.T, ords ...*orders.Order) []int64 {
	t.Helper()
	ids, err := f.handler.PlaceOrders(ords)
	require.NoError(t, err)
	return ids
}
