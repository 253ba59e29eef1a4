package cmd

import (
	"context"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "tradesim",
	Short: "A discrete-event backtesting engine for bar data",
	Long: `Tradesim replays historical price bars through a simulated market clock.

It provides tools for:
  - Backtesting strategies with market, stop, market-on-open and
    market-on-close orders
  - Commission and slippage models with volume caps
  - Parameter sweeps over strategy settings
  - Journals of every fill, trade and NAV sample (CSV, SQLite, org-mode)`,
	SilenceUsage: true,
}

var logLevel string

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels a running backtest.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the config log level (debug, info, warn, error)")
}

// newLogger builds the logger for cfg, honoring --log-level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(level)
}
