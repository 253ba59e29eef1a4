package backtest

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/data"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
)

// LoadSource reads every configured data file into one in-memory source.
// Files with finer bars than the run are aggregated, and missing
// in-session bars are reported as warnings.
func LoadSource(cfg *config.Config, log *zap.Logger) (*data.MemorySource, error) {
	if log == nil {
		log = zap.NewNop()
	}
	freq, err := cfg.Run.ParseFrequency()
	if err != nil {
		return nil, fmt.Errorf("run.frequency: %w", err)
	}
	cal, err := cfg.Market.Calendar()
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}

	src := data.NewMemorySource()
	for _, d := range cfg.Data {
		inst, err := d.Instrument()
		if err != nil {
			return nil, err
		}
		from, err := d.ParseFrequency(freq)
		if err != nil {
			return nil, fmt.Errorf("data %s: %w", d.Ticker, err)
		}
		bars, err := data.LoadCSVFile(d.Path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", d.Ticker, err)
		}
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
		if bars, err = data.Aggregate(bars, from, freq, cal, 1); err != nil {
			return nil, fmt.Errorf("data %s: %w", d.Ticker, err)
		}
		src.Add(inst, freq, bars)

		if gaps := data.GapReport(bars, freq, cal); gaps.Missing > 0 {
			log.Warn("missing bars",
				zap.Stringer("instrument", inst),
				zap.Int("expected", gaps.Expected),
				zap.Int("missing", gaps.Missing),
				zap.Int("gaps", len(gaps.Gaps)),
				zap.Int("longest", gaps.Longest))
		}
		log.Debug("data loaded",
			zap.Stringer("instrument", inst),
			zap.String("path", d.Path),
			zap.Int("bars", len(bars)))
	}
	return src, nil
}

// StrategyInstrument resolves the strategy ticker against the data list.
// An empty ticker picks the first data entry.
func StrategyInstrument(cfg *config.Config) (market.Instrument, error) {
	if len(cfg.Data) == 0 {
		return market.Instrument{}, fmt.Errorf("no data configured")
	}
	if cfg.Strategy.Instrument == "" {
		return cfg.Data[0].Instrument()
	}
	for _, d := range cfg.Data {
		if d.Ticker == cfg.Strategy.Instrument {
			return d.Instrument()
		}
	}
	return market.Instrument{}, fmt.Errorf("strategy instrument %q has no data", cfg.Strategy.Instrument)
}

// OpenJournal creates the journal selected by jc. runID tags SQLite rows.
func OpenJournal(jc config.JournalConfig, runID string) (journal.Journal, error) {
	switch jc.Type {
	case "", "none":
		return journal.Nop{}, nil
	case "csv":
		j, err := journal.NewCSV(jc.Dir)
		if err != nil {
			return nil, fmt.Errorf("open csv journal: %w", err)
		}
		return j, nil
	case "sqlite":
		j, err := journal.NewSQLite(jc.DBPath, runID)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", jc.Type)
	}
}
