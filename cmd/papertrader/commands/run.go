package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate one trading day",
	Long: `Collects market data, classifies the regime, evaluates the signals and
applies exits and entries for one trading date. Replaying a date is safe.

Example:
  papertrader run
  papertrader run --date 2025-01-15`,
	RunE: runRun,
}

var runDate string

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDate, "date", "", "trading date YYYY-MM-DD (default: today in schedule.timezone)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date := a.runner.Today()
	if runDate != "" {
		if date, err = model.ParseDate(runDate); err != nil {
			return &model.ValidationError{Field: "date", Reason: err.Error()}
		}
	}

	rep, err := a.runner.Run(cmd.Context(), date)
	if err != nil {
		return err
	}
	if rep.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is not a trading day\n", model.FormatDate(date))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s (%.1f%%), %d signals, %d opened, %d closed, %d deferred\n",
		rep.RunID, rep.Match.Regime, rep.Match.Confidence*100, len(rep.Events),
		len(rep.Step.Opened), len(rep.Step.Closed), len(rep.Step.Missing))
	return nil
}
