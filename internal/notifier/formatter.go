package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// Summary is everything the daily report shows.
type Summary struct {
	RunID    string
	Date     time.Time
	Match    model.RegimeMatch
	Events   []model.SignalEvent
	Opened   []model.Position
	Closed   []model.Position
	Deferred []string // entries or exits waiting for a price
	Skipped  []string // entries that bought no shares
	Metrics  model.DailyMetrics
}

const topRegimes = 3

// FormatDailyReport formats the daily run summary as a Telegram HTML message.
func FormatDailyReport(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>Paper Trading</b> | %s\n\n", model.FormatDate(s.Date))

	fmt.Fprintf(&b, "🧭 <b>Regime:</b> %s (%s)\n", s.Match.Regime, s.Match.Regime.Group())
	fmt.Fprintf(&b, "   Confidence: %.1f%%\n", s.Match.Confidence*100)
	for i, r := range s.Match.Ranking {
		if i == 0 {
			continue
		}
		if i > topRegimes {
			break
		}
		fmt.Fprintf(&b, "   %d. %s %.1f%%\n", i+1, r.Regime, r.Confidence*100)
	}
	b.WriteString("\n")

	b.WriteString("📡 <b>Signals:</b>\n")
	if len(s.Events) == 0 {
		b.WriteString("  none fired\n")
	}
	for _, ev := range s.Events {
		status := "✅ ENTERED"
		switch {
		case ev.IsKilled:
			status = "🚫 KILLED"
		case ev.IsBoosted:
			status = "🚀 BOOSTED"
		}
		fmt.Fprintf(&b, "  %s %s→%s mom %+.2f%% size %.1f%%\n",
			status, ev.TriggerTicker, ev.TargetTicker, ev.TriggerMomentum*100, ev.PositionSizePct*100)
		if ev.IsKilled {
			fmt.Fprintf(&b, "     %s\n", html.EscapeString(ev.KillReason))
		}
	}

	if len(s.Opened) > 0 {
		b.WriteString("\n🟢 <b>Entries:</b>\n")
		for _, p := range s.Opened {
			fmt.Fprintf(&b, "  %s %d @ %.2f, exit %s\n", p.Ticker, p.Shares, p.EntryPrice, model.FormatDate(p.TargetExitDate))
		}
	}
	if len(s.Closed) > 0 {
		b.WriteString("\n🔴 <b>Exits:</b>\n")
		for _, p := range s.Closed {
			fmt.Fprintf(&b, "  %s %d @ %.2f, P&amp;L %+.2f (%+.2f%%)\n", p.Ticker, p.Shares, deref(p.ExitPrice), deref(p.PnL), deref(p.PnLPct)*100)
		}
	}
	if len(s.Deferred) > 0 {
		b.WriteString("\n⏳ <b>Waiting for prices:</b>\n")
		for _, d := range s.Deferred {
			fmt.Fprintf(&b, "  %s\n", html.EscapeString(d))
		}
	}
	if len(s.Skipped) > 0 {
		b.WriteString("\n⚠️ <b>Skipped:</b>\n")
		for _, d := range s.Skipped {
			fmt.Fprintf(&b, "  %s\n", html.EscapeString(d))
		}
	}

	b.WriteString("\n")
	b.WriteString(formatMetrics(s.Metrics))
	return b.String()
}

func formatMetrics(m model.DailyMetrics) string {
	var b strings.Builder
	b.WriteString("📈 <b>Performance:</b>\n")
	fmt.Fprintf(&b, "  Trades: %d (W %d / L %d), win rate %.1f%%\n", m.TotalTrades, m.Wins, m.Losses, m.WinRate*100)
	fmt.Fprintf(&b, "  Total P&amp;L: %+.2f, avg return %+.2f%%\n", m.TotalPnL, m.AvgReturn*100)
	fmt.Fprintf(&b, "  Open positions: %d\n", m.OpenPositions)
	return b.String()
}

// FormatPositions formats open positions for the /positions command.
func FormatPositions(positions []model.Position) string {
	var b strings.Builder
	b.WriteString("📦 <b>Open positions</b>\n\n")
	if len(positions) == 0 {
		b.WriteString("none\n")
		return b.String()
	}
	for _, p := range positions {
		boost := ""
		if p.IsBoosted {
			boost = " 🚀"
		}
		fmt.Fprintf(&b, "#%d %s %s%s\n", p.ID, p.SignalName, p.Ticker, boost)
		fmt.Fprintf(&b, "   %d @ %.2f since %s, exit %s\n", p.Shares, p.EntryPrice,
			model.FormatDate(p.EntryDate), model.FormatDate(p.TargetExitDate))
	}
	return b.String()
}

// FormatStatus formats the latest metrics snapshot for the /status command.
func FormatStatus(m model.DailyMetrics, ok bool) string {
	if !ok {
		return "No runs recorded yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🧭 <b>Status</b> | %s\n", model.FormatDate(m.Date))
	fmt.Fprintf(&b, "Regime: %s (%.1f%%)\n\n", m.Regime, m.RegimeConfidence*100)
	b.WriteString(formatMetrics(m))
	return b.String()
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
