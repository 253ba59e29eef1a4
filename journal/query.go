package journal

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/portfolio"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `run_id, created, strategy, instruments, frequency, start_time, end_time,
	initial_cash, final_nav, transactions, trades, wins, losses, realized_pnl`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var r RunRecord
	err := s.Scan(
		&r.RunID, &r.Created, &r.Strategy, &r.Instruments, &r.Frequency, &r.Start, &r.End,
		&r.InitialCash, &r.FinalNAV, &r.Transactions, &r.Trades, &r.Wins, &r.Losses, &r.RealizedPnL,
	)
	return r, err
}

// GetRun returns the summary row of a run.
func (j *SQLiteJournal) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	return r, err
}

// ListRuns returns every run, newest first.
func (j *SQLiteJournal) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func instrument(ticker, class string) (market.Instrument, error) {
	c, err := market.ParseAssetClass(class)
	if err != nil {
		return market.Instrument{}, err
	}
	return market.NewInstrument(ticker, c), nil
}

// ListTransactions returns the transactions of a run in booking order.
func (j *SQLiteJournal) ListTransactions(runID string) ([]portfolio.Transaction, error) {
	rows, err := j.db.Query(`
		SELECT time, instrument, asset_class, quantity, price, commission
		FROM transactions
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.Transaction
	for rows.Next() {
		var (
			t             portfolio.Transaction
			ticker, class string
		)
		if err := rows.Scan(&t.Time, &ticker, &class, &t.Quantity, &t.Price, &t.Commission); err != nil {
			return nil, err
		}
		if t.Instrument, err = instrument(ticker, class); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTrades returns the realized trades of a run in booking order.
func (j *SQLiteJournal) ListTrades(runID string) ([]portfolio.Trade, error) {
	rows, err := j.db.Query(`
		SELECT instrument, asset_class, entry_time, entry_price, exit_time, exit_price, quantity, pnl
		FROM trades
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.Trade
	for rows.Next() {
		var (
			t             portfolio.Trade
			ticker, class string
		)
		if err := rows.Scan(&ticker, &class, &t.EntryTime, &t.EntryPrice, &t.ExitTime, &t.ExitPrice, &t.Quantity, &t.PnL); err != nil {
			return nil, err
		}
		if t.Instrument, err = instrument(ticker, class); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListNAV returns the NAV series of a run in time order.
func (j *SQLiteJournal) ListNAV(runID string) ([]portfolio.NAVSample, error) {
	rows, err := j.db.Query(`
		SELECT time, net_liquidation, cash, gross_exposure, leverage
		FROM nav
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.NAVSample
	for rows.Next() {
		var s portfolio.NAVSample
		if err := rows.Scan(&s.Time, &s.NetLiquidation, &s.Cash, &s.GrossExposure, &s.Leverage); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
