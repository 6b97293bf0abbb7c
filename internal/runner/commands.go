package runner

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/briancarter456546/paper-trading-system/internal/model"
	"github.com/briancarter456546/paper-trading-system/internal/notifier"
)

const helpText = "Commands:\n• /status  latest metrics\n• /positions  open positions\n• /run  evaluate today"

// HandleCommand answers a Telegram command. It implements notifier.CommandHandler.
func (r *Runner) HandleCommand(ctx context.Context, command string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	cmd, _, _ = strings.Cut(cmd, "@") // /status@botname in group chats

	switch strings.ToLower(cmd) {
	case "/status":
		hist, err := r.Store.MetricsHistory(ctx, 1)
		if err != nil {
			return r.commandError(cmd, err)
		}
		if len(hist) == 0 {
			return notifier.FormatStatus(model.DailyMetrics{}, false)
		}
		return notifier.FormatStatus(hist[0], true)
	case "/positions":
		open, err := r.Store.Positions(ctx, model.StatusOpen)
		if err != nil {
			return r.commandError(cmd, err)
		}
		return notifier.FormatPositions(open)
	case "/run":
		rep, err := r.Run(ctx, r.Today())
		if err != nil {
			return r.commandError(cmd, err)
		}
		if rep.Skipped {
			return fmt.Sprintf("%s is not a trading day.", model.FormatDate(rep.Date))
		}
		// the report itself was already sent by Run
		return ""
	default:
		return helpText
	}
}

func (r *Runner) commandError(cmd string, err error) string {
	r.log.Error().Err(err).Str("command", cmd).Msg("command failed")
	return fmt.Sprintf("❌ %s failed: %s", cmd, html.EscapeString(err.Error()))
}
