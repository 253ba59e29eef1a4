// Package journal records what happens during a run: every fill, every
// realized trade and the NAV series.
package journal

import (
	"time"

	"github.com/rustyeddy/tradesim/portfolio"
)

type Journal interface {
	RecordTransaction(portfolio.Transaction) error
	RecordTrade(portfolio.Trade) error
	RecordNAV(portfolio.NAVSample) error
	Close() error
}

// RunRecorder is implemented by journals that keep a row per run.
type RunRecorder interface {
	RecordRun(RunRecord) error
}

// RunRecord summarizes one finished run.
type RunRecord struct {
	RunID       string
	Created     time.Time
	Strategy    string
	Instruments string
	Frequency   string
	Start       time.Time
	End         time.Time

	InitialCash  float64
	FinalNAV     float64
	Transactions int
	Trades       int
	Wins         int
	Losses       int
	RealizedPnL  float64
}

// Summarize fills the ledger totals of r from a finished portfolio.
func (r *RunRecord) Summarize(p *portfolio.Portfolio) {
	r.InitialCash = p.InitialCash()
	r.FinalNAV = p.NetLiquidation()
	r.Transactions = len(p.Transactions())
	r.Trades = 0
	r.Wins, r.Losses = 0, 0
	r.RealizedPnL = 0
	for _, t := range p.Trades() {
		r.Trades++
		r.RealizedPnL += t.PnL
		switch {
		case t.PnL > 0:
			r.Wins++
		case t.PnL < 0:
			r.Losses++
		}
	}
}

// Memory keeps everything in slices. It is handy for tests and for callers
// that post-process a run in the same process.
type Memory struct {
	Transactions []portfolio.Transaction
	Trades       []portfolio.Trade
	NAV          []portfolio.NAVSample
	Runs         []RunRecord
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordTransaction(t portfolio.Transaction) error {
	m.Transactions = append(m.Transactions, t)
	return nil
}

func (m *Memory) RecordTrade(t portfolio.Trade) error {
	m.Trades = append(m.Trades, t)
	return nil
}

func (m *Memory) RecordNAV(s portfolio.NAVSample) error {
	m.NAV = append(m.NAV, s)
	return nil
}

func (m *Memory) RecordRun(r RunRecord) error {
	m.Runs = append(m.Runs, r)
	return nil
}

func (m *Memory) Close() error { return nil }

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTransaction(portfolio.Transaction) error { return nil }
func (Nop) RecordTrade(portfolio.Trade) error             { return nil }
func (Nop) RecordNAV(portfolio.NAVSample) error           { return nil }
func (Nop) Close() error                                  { return nil }
