package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List paper positions",
	Long: `Lists positions from the store.

Example:
  papertrader positions --status OPEN`,
	RunE: runPositions,
}

var positionsStatus string

func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().StringVar(&positionsStatus, "status", "", "filter by status (OPEN|CLOSED)")
}

func runPositions(cmd *cobra.Command, _ []string) error {
	var status model.PositionStatus
	if positionsStatus != "" {
		st, err := model.ParsePositionStatus(positionsStatus)
		if err != nil {
			return &model.ValidationError{Field: "status", Reason: err.Error()}
		}
		status = st
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	positions, err := st.Positions(cmd.Context(), status)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIGNAL\tTICKER\tSHARES\tENTRY\tENTRY PX\tTARGET EXIT\tSTATUS\tEXIT\tEXIT PX\tP&L\tP&L %")
	for _, p := range positions {
		exit, exitPx, pnl, pnlPct := "-", "-", "-", "-"
		if p.ExitDate != nil {
			exit = model.FormatDate(*p.ExitDate)
			exitPx = fmt.Sprintf("%.2f", *p.ExitPrice)
			pnl = fmt.Sprintf("%+.2f", *p.PnL)
			pnlPct = fmt.Sprintf("%+.2f%%", *p.PnLPct*100)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%.2f\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.SignalName, p.Ticker, p.Shares, model.FormatDate(p.EntryDate), p.EntryPrice,
			model.FormatDate(p.TargetExitDate), p.Status, exit, exitPx, pnl, pnlPct)
	}
	return w.Flush()
}
