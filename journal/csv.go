package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/tradesim/portfolio"
)

const (
	TransactionsFile = "transactions.csv"
	TradesFile       = "trades.csv"
	NAVFile          = "nav.csv"
)

var (
	transactionHeader = []string{"time", "instrument", "quantity", "price", "commission"}
	tradeHeader       = []string{"instrument", "entry_time", "entry_price", "exit_time", "exit_price", "quantity", "pnl"}
	navHeader         = []string{"time", "net_liquidation", "cash", "gross_exposure", "leverage"}
)

type CSVJournal struct {
	txns   *csv.Writer
	trades *csv.Writer
	nav    *csv.Writer
	files  []*os.File
}

// NewCSV creates dir and one CSV file per record type inside it.
func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	j := &CSVJournal{}
	open := func(name string, header []string) (*csv.Writer, error) {
		fh, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, fh)
		w := csv.NewWriter(fh)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.txns, err = open(TransactionsFile, transactionHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	if j.trades, err = open(TradesFile, tradeHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	if j.nav, err = open(NAVFile, navHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordTransaction(t portfolio.Transaction) error {
	return write(j.txns, []string{
		t.Time.Format(time.RFC3339),
		t.Instrument.Ticker,
		f(t.Quantity),
		f(t.Price),
		f(t.Commission),
	})
}

func (j *CSVJournal) RecordTrade(t portfolio.Trade) error {
	return write(j.trades, []string{
		t.Instrument.Ticker,
		t.EntryTime.Format(time.RFC3339),
		f(t.EntryPrice),
		t.ExitTime.Format(time.RFC3339),
		f(t.ExitPrice),
		f(t.Quantity),
		f(t.PnL),
	})
}

func (j *CSVJournal) RecordNAV(s portfolio.NAVSample) error {
	return write(j.nav, []string{
		s.Time.Format(time.RFC3339),
		f(s.NetLiquidation),
		f(s.Cash),
		f(s.GrossExposure),
		f(s.Leverage),
	})
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.txns, j.trades, j.nav} {
		w.Flush()
		if err := w.Error(); err != nil {
			j.closeFiles()
			return err
		}
	}
	return j.closeFiles()
}

func (j *CSVJournal) closeFiles() error {
	var first error
	for _, fh := range j.files {
		if err := fh.Close(); err != nil && first == nil {
			first = err
		}
	}
	j.files = nil
	return first
}

func write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
