package journal

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/tradesim/portfolio"
)

// SQLiteJournal writes every record of one run, tagged with its run id,
// into a SQLite database shared by many runs.
type SQLiteJournal struct {
	db    *sql.DB
	runID string
	txSeq int
	trSeq int
}

// NewSQLite opens (creating if needed) the database at path. Several
// journals may share one file; writers wait on each other instead of
// failing with "database is locked".
func NewSQLite(path, runID string) (*SQLiteJournal, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteJournal{db: db, runID: runID}, nil
}

// RunID is the id every row of this journal is written under.
func (j *SQLiteJournal) RunID() string { return j.runID }

func (j *SQLiteJournal) RecordTransaction(t portfolio.Transaction) error {
	j.txSeq++
	_, err := j.db.Exec(`
		INSERT INTO transactions
		(run_id, seq, time, instrument, asset_class, quantity, price, commission)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, j.txSeq, t.Time, t.Instrument.Ticker, t.Instrument.Class.String(),
		t.Quantity, t.Price, t.Commission,
	)
	return err
}

func (j *SQLiteJournal) RecordTrade(t portfolio.Trade) error {
	j.trSeq++
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, seq, instrument, asset_class, entry_time, entry_price, exit_time, exit_price, quantity, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, j.trSeq, t.Instrument.Ticker, t.Instrument.Class.String(),
		t.EntryTime, t.EntryPrice, t.ExitTime, t.ExitPrice, t.Quantity, t.PnL,
	)
	return err
}

func (j *SQLiteJournal) RecordNAV(s portfolio.NAVSample) error {
	_, err := j.db.Exec(`
		INSERT INTO nav
		(run_id, time, net_liquidation, cash, gross_exposure, leverage)
		VALUES (?, ?, ?, ?, ?, ?)`,
		j.runID, s.Time, s.NetLiquidation, s.Cash, s.GrossExposure, s.Leverage,
	)
	return err
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, strategy, instruments, frequency, start_time, end_time,
		 initial_cash, final_nav, transactions, trades, wins, losses, realized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Instruments, r.Frequency, r.Start, r.End,
		r.InitialCash, r.FinalNAV, r.Transactions, r.Trades, r.Wins, r.Losses, r.RealizedPnL,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
