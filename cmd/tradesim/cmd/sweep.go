package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run an EMA cross parameter sweep",
	Long: `Run one backtest per fast/slow EMA pair, several at a time.

Every run uses its own copy of the config. CSV journals are written to a
sub directory per run id; SQLite journals share the database and are told
apart by run id.

Example:
  tradesim sweep -f backtest.yaml --fast 5,10,20 --slow 30,50 -j 4`,
	RunE: runSweep,
}

var (
	sweepConfigPath string
	sweepFast       []int
	sweepSlow       []int
	sweepJobs       int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVarP(&sweepConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	sweepCmd.Flags().IntSliceVar(&sweepFast, "fast", []int{5, 10, 20}, "fast EMA periods")
	sweepCmd.Flags().IntSliceVar(&sweepSlow, "slow", []int{30, 50, 100}, "slow EMA periods")
	sweepCmd.Flags().IntVarP(&sweepJobs, "jobs", "j", 0, "concurrent runs (0 = GOMAXPROCS)")
	sweepCmd.MarkFlagRequired("config")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(sweepConfigPath)
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

	base := cfg.Strategy
	base.Name = "ema-cross"
	variants := backtest.EMAGrid(base, sweepFast, sweepSlow)
	if len(variants) == 0 {
		return fmt.Errorf("no fast/slow pair with fast < slow")
	}

	fmt.Printf("Sweeping %d variants from %s\n\n", len(variants), sweepConfigPath)
	results, err := backtest.Sweep(cmd.Context(), cfg, src, variants, sweepJobs, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTRATEGY\tNAV\tP/L\tTRADES\tWINS\tLOSSES")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%d\t%d\t%d\n",
			r.RunID, r.Strategy, r.FinalNAV, r.FinalNAV-r.InitialCash, r.Trades, r.Wins, r.Losses)
	}
	return w.Flush()
}
