package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/briancarter456546/paper-trading-system/internal/api"
	"github.com/briancarter456546/paper-trading-system/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily scheduler, status API and Telegram bot",
	Long: `Runs until SIGINT/SIGTERM:
- the daily cron job (schedule.daily_cron in schedule.timezone)
- the status API on server.addr (/healthz, /metrics, /api/...)
- Telegram long polling for /status, /positions and /run when configured

Set RUN_ON_START=true to evaluate today immediately.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(ctx, a.runner, a.loc, a.log)
	if err := sched.RegisterDaily(a.cfg.Schedule.DailyCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := api.New(api.Config{
		Addr:     a.cfg.Server.Addr,
		Store:    a.store,
		Registry: a.metrics.Registry,
		Log:      a.log,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.telegram != nil {
		g.Go(func() error {
			a.telegram.StartPolling(ctx, a.runner.HandleCommand)
			return nil
		})
		a.log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		a.log.Info().Msg("RUN_ON_START enabled, executing daily task now")
		go sched.RunNow()
	}

	a.log.Info().Msg("papertrader is running, press Ctrl+C to stop")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info().Msg("papertrader stopped")
	return nil
}
