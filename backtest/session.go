// Package backtest builds a complete simulated market from a config and
// runs a strategy through it.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/clock"
	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/data"
	"github.com/rustyeddy/tradesim/events"
	"github.com/rustyeddy/tradesim/execution"
	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/orders"
	"github.com/rustyeddy/tradesim/portfolio"
	"github.com/rustyeddy/tradesim/slippage"
	"github.com/rustyeddy/tradesim/strategies"
)

// StrategyLead is how long before the session open a daily strategy runs.
const StrategyLead = time.Hour

// Result is what a finished run leaves behind.
type Result struct {
	journal.RunRecord

	Account    broker.Account
	Portfolio  *portfolio.Portfolio
	OpenOrders []*orders.Order
}

// Session is one backtest: a config, the bars it replays and where the
// records go. A session is single threaded and runs once.
type Session struct {
	RunID string

	cfg     *config.Config
	src     data.PriceSource
	journal journal.Journal
	log     *zap.Logger
}

// NewSession prepares a run. The run id is taken from the journal when it
// has one so every row it writes matches.
func NewSession(cfg *config.Config, src data.PriceSource, j journal.Journal, log *zap.Logger) *Session {
	runID := ""
	if r, ok := j.(interface{ RunID() string }); ok {
		runID = r.RunID()
	}
	if runID == "" {
		runID = id.New()
	}
	return newSession(cfg, src, j, runID, log)
}

func newSession(cfg *config.Config, src data.PriceSource, j journal.Journal, runID string, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if j == nil {
		j = journal.Nop{}
	}
	return &Session{
		RunID:   runID,
		cfg:     cfg,
		src:     src,
		journal: j,
		log:     log.With(zap.String("run_id", runID)),
	}
}

// engine is every component of one run.
type engine struct {
	timer     *clock.SettableTimer
	manager   *events.Manager
	scheduler *events.Scheduler
	state     *events.SchedulerState
	data      *data.Handler
	portfolio *portfolio.Portfolio
	handler   *execution.Handler
	broker    *broker.Backtest

	market *execution.MarketExecutor
	stop   *execution.StopExecutor
	moo    *execution.BoundaryExecutor
	moc    *execution.BoundaryExecutor

	freq       market.Frequency
	start, end time.Time
}

func (s *Session) build() (*engine, error) {
	cfg := s.cfg
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	// Validate has checked every parse below.
	freq, _ := cfg.Run.ParseFrequency()
	cal, _ := cfg.Market.Calendar()
	first, _ := cfg.Run.StartTime()
	last, _ := cfg.Run.EndTime()
	// The run covers whole calendar days in the market's time zone.
	start := cal.At(first, 0)
	end := cal.At(last, 24*time.Hour).Add(-time.Nanosecond)
	delay, _ := cfg.Execution.ParseOrderDelay()
	comm, _ := cfg.Execution.Commission.Build()

	e := &engine{freq: freq, start: start, end: end}
	e.timer = clock.NewSettableTimer(start)
	e.manager = events.NewManager(e.timer, s.log)
	e.scheduler = events.NewScheduler(s.log)
	e.state = events.NewSchedulerState(cal)
	e.data = data.NewHandler(s.src, e.timer, cal, freq)
	e.portfolio = portfolio.New(cfg.Run.InitialCash, e.data, e.timer, s.log)
	e.portfolio.SetMonitor(s.journal)

	slip, err := cfg.Execution.Slippage.Build(slippage.Base{Volumes: e.data, Log: s.log})
	if err != nil {
		return nil, err
	}

	env := &execution.Env{
		Data:       e.data,
		Slippage:   slip,
		Commission: comm,
		Ledger:     e.portfolio,
		Monitor:    s.journal,
		Timer:      e.timer,
		Log:        s.log,
	}
	e.market = execution.NewMarketExecutor(env)
	e.stop = execution.NewStopExecutor(env)
	e.moo = execution.NewMarketOnOpenExecutor(env)
	e.moc = execution.NewMarketOnCloseExecutor(env)

	e.handler = execution.NewHandler(e.timer, e.state, delay, s.log)
	e.handler.Register(orders.Market, e.market)
	e.handler.Register(orders.Stop, e.stop)
	e.handler.Register(orders.MarketOnOpen, e.moo)
	e.handler.Register(orders.MarketOnClose, e.moc)

	e.broker = broker.NewBacktest(s.RunID, e.handler, e.portfolio)
	return e, nil
}

// subscribe registers listeners in the order they must see each time
// event: delayed order acceptance first, then the strategy, then the
// executors, and the portfolio mark last at the close.
func (s *Session) subscribe(ctx context.Context, e *engine, strat strategies.Strategy) {
	sc := e.scheduler
	sc.Subscribe(events.SingleTimeTrigger(e.state), e.state)

	senv := &strategies.Env{
		Broker: e.broker,
		Data:   e.data,
		Orders: orders.NewFactory(e.portfolio, e.data),
		Log:    s.log.With(zap.String("strategy", strat.Name())),
	}
	onTick := events.ListenerFunc(func(events.Event) error {
		return strat.OnTick(ctx, senv)
	})
	if e.freq.Intraday() {
		sc.Subscribe(events.PeriodicTrigger(e.state, e.freq), onTick)
	} else {
		sc.Subscribe(events.BeforeMarketOpenTrigger(e.state, StrategyLead), onTick)
	}

	atOpen := events.MarketOpenTrigger(e.state)
	sc.Subscribe(atOpen, execution.Listener(e.moo))
	sc.Subscribe(atOpen, execution.Listener(e.market))

	atClose := events.MarketCloseTrigger(e.state)
	sc.Subscribe(atClose, execution.Listener(e.stop))
	sc.Subscribe(atClose, execution.Listener(e.moc))
	sc.Subscribe(atClose, events.ListenerFunc(func(events.Event) error {
		return e.portfolio.Update()
	}))

	if e.freq.Intraday() {
		bar := events.PeriodicTrigger(e.state, e.freq)
		sc.Subscribe(bar, execution.Listener(e.market))
		sc.Subscribe(bar, execution.Listener(e.stop))
	}
}

// Run replays the configured period through strat. Transactions reach the
// journal as they are booked; trades, the NAV series and the run summary
// are written once the run ends.
func (s *Session) Run(ctx context.Context, strat strategies.Strategy) (*Result, error) {
	if strat == nil {
		return nil, errors.New("backtest: strategy is required")
	}
	e, err := s.build()
	if err != nil {
		return nil, err
	}
	s.subscribe(ctx, e, strat)

	flow := events.NewTimeFlowController(e.manager, e.scheduler, e.timer, e.end, s.log)

	s.log.Info("backtest started",
		zap.String("strategy", strat.Name()),
		zap.Stringer("frequency", e.freq),
		zap.Time("start", e.start),
		zap.Time("end", e.end))
	began := time.Now()

	if err := flow.Run(ctx); err != nil {
		return nil, fmt.Errorf("run %s: %w", s.RunID, err)
	}

	res := &Result{
		RunRecord: journal.RunRecord{
			RunID:       s.RunID,
			Created:     began,
			Strategy:    strat.Name(),
			Instruments: s.instruments(),
			Frequency:   e.freq.String(),
			Start:       e.start,
			End:         e.end,
		},
		Account:    e.broker.GetAccount(),
		Portfolio:  e.portfolio,
		OpenOrders: e.broker.OpenOrders(),
	}
	res.Summarize(e.portfolio)

	if err := s.export(res); err != nil {
		return nil, err
	}

	s.log.Info("backtest finished",
		zap.Float64("final_nav", res.FinalNAV),
		zap.Int("transactions", res.Transactions),
		zap.Int("trades", res.Trades),
		zap.Int("open_orders", len(res.OpenOrders)),
		zap.Duration("elapsed", time.Since(began)))
	return res, nil
}

func (s *Session) export(res *Result) error {
	for _, t := range res.Portfolio.Trades() {
		if err := s.journal.RecordTrade(t); err != nil {
			return fmt.Errorf("journal trade: %w", err)
		}
	}
	for _, n := range res.Portfolio.NAVSeries() {
		if err := s.journal.RecordNAV(n); err != nil {
			return fmt.Errorf("journal nav: %w", err)
		}
	}
	if r, ok := s.journal.(journal.RunRecorder); ok {
		if err := r.RecordRun(res.RunRecord); err != nil {
			return fmt.Errorf("journal run: %w", err)
		}
	}
	if path := s.cfg.Journal.OrgPath; path != "" {
		if err := res.WriteOrg(path); err != nil {
			return fmt.Errorf("write org: %w", err)
		}
	}
	return nil
}

func (s *Session) instruments() string {
	tickers := make([]string, 0, len(s.cfg.Data))
	for _, d := range s.cfg.Data {
		tickers = append(tickers, d.Ticker)
	}
	return strings.Join(tickers, ",")
}
