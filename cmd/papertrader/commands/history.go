package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show daily metrics and the run audit",
	Long: `Prints the daily metrics snapshots, newest first, and the most recent runs.

Example:
  papertrader history --limit 20`,
	RunE: runHistory,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 30, "number of days to show (0 = all)")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	hist, err := st.MetricsHistory(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	runs, err := st.Runs(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tREGIME\tCONF\tTRADES\tW/L\tWIN RATE\tAVG RET\tTOTAL P&L\tOPEN")
	for _, m := range hist {
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%d\t%d/%d\t%.1f%%\t%+.2f%%\t%+.2f\t%d\n",
			model.FormatDate(m.Date), m.Regime, m.RegimeConfidence*100, m.TotalTrades, m.Wins, m.Losses,
			m.WinRate*100, m.AvgReturn*100, m.TotalPnL, m.OpenPositions)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tDATE\tSTARTED\tDURATION\tREGIME\tENTERED\tKILLED\tCLOSED\tMISSING")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.RunID, model.FormatDate(r.Date), r.StartedAt.Format("2006-01-02 15:04:05Z07:00"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), r.Regime, r.Entered, r.Killed, r.Closed, r.Missing)
	}
	return w.Flush()
}
