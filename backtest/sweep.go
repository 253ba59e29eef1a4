package backtest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/data"
	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/strategies"
)

// EMAGrid expands fast x slow periods into strategy settings, skipping
// pairs where fast is not below slow.
func EMAGrid(base config.StrategyConfig, fast, slow []int) []config.StrategyConfig {
	var out []config.StrategyConfig
	for _, f := range fast {
		for _, s := range slow {
			if f >= s {
				continue
			}
			v := base
			v.Fast, v.Slow = f, s
			out = append(out, v)
		}
	}
	return out
}

// Sweep runs one session per strategy variant, at most limit at a time.
// Each run gets its own copy of base, its own journal and its own engine;
// only the read-only source is shared. CSV journals go to a per run sub
// directory and the org report, if configured, holds one entry per run.
// Results follow the order of variants. The first failing run cancels the
// rest.
func Sweep(ctx context.Context, base *config.Config, src data.PriceSource, variants []config.StrategyConfig, limit int, log *zap.Logger) ([]*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]*Result, len(variants))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, v := range variants {
		i, v := i, v // per-iteration copies (go directive < 1.22)
		cfg := base.Clone()
		cfg.Strategy = v
		cfg.Journal.OrgPath = ""
		runID := id.New()
		if cfg.Journal.Type == "csv" {
			cfg.Journal.Dir = filepath.Join(base.Journal.Dir, runID)
		}

		g.Go(func() error {
			res, err := runOne(ctx, cfg, src, runID, log)
			if err != nil {
				return fmt.Errorf("variant %d (%s): %w", i, v.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if path := base.Journal.OrgPath; path != "" {
		recs := make([]journal.RunRecord, len(results))
		for i, r := range results {
			recs[i] = r.RunRecord
		}
		if err := journal.WriteOrgFile(path, recs); err != nil {
			return nil, fmt.Errorf("write org: %w", err)
		}
	}
	return results, nil
}

func runOne(ctx context.Context, cfg *config.Config, src data.PriceSource, runID string, log *zap.Logger) (res *Result, err error) {
	inst, err := StrategyInstrument(cfg)
	if err != nil {
		return nil, err
	}
	strat, err := strategies.ByName(cfg.Strategy, inst)
	if err != nil {
		return nil, err
	}

	j, err := OpenJournal(cfg.Journal, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := j.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close journal: %w", cerr)
		}
	}()

	return newSession(cfg, src, j, runID, log).Run(ctx, strat)
}
