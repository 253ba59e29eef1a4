package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest from a config file",
	Long: `Run one backtest using settings from a configuration file.

The config names the period, the market calendar, the bar files, the
execution models, the strategy and where the journal goes.

Example:
  tradesim run -f backtest.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	src, err := backtest.LoadSource(cfg, log)
	if err != nil {
		return err
	}
	inst, err := backtest.StrategyInstrument(cfg)
	if err != nil {
		return err
	}
	strat, err := strategies.ByName(cfg.Strategy, inst)
	if err != nil {
		return err
	}

	j, err := backtest.OpenJournal(cfg.Journal, id.New())
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer closeJournal(j, &err)

	fmt.Printf("Running backtest with config: %s\n", runConfigPath)
	fmt.Printf("  Period: %s to %s (%s)\n", cfg.Run.Start, cfg.Run.End, cfg.Run.Frequency)
	fmt.Printf("  Strategy: %s on %s\n", strat.Name(), inst)
	fmt.Println()

	s := backtest.NewSession(cfg, src, j, log)
	res, err := s.Run(cmd.Context(), strat)
	if err != nil {
		return err
	}

	printResult(res)
	switch cfg.Journal.Type {
	case "csv":
		fmt.Printf("\nResults saved to: %s\n", cfg.Journal.Dir)
	case "sqlite":
		fmt.Printf("\nResults saved to: %s (run %s)\n", cfg.Journal.DBPath, res.RunID)
	}
	if cfg.Journal.OrgPath != "" {
		fmt.Printf("Report: %s\n", cfg.Journal.OrgPath)
	}
	return nil
}

// closeJournal closes j and reports its error through err unless err is
// already set.
func closeJournal(j journal.Journal, err *error) {
	if cerr := j.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close journal: %w", cerr)
	}
}

func printResult(res *backtest.Result) {
	fmt.Printf("Final Results (run %s):\n", res.RunID)
	fmt.Printf("  Cash: $%.2f\n", res.Account.Cash)
	fmt.Printf("  NAV: $%.2f\n", res.FinalNAV)
	fmt.Printf("  Profit/Loss: $%.2f\n", res.FinalNAV-res.InitialCash)
	fmt.Printf("  Transactions: %d\n", res.Transactions)
	fmt.Printf("  Trades: %d (wins %d, losses %d, realized $%.2f)\n", res.Trades, res.Wins, res.Losses, res.RealizedPnL)
	fmt.Printf("  Open positions: %d, open orders: %d\n", res.Account.OpenPositions, len(res.OpenOrders))
}
