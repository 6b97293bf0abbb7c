package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/briancarter456546/paper-trading-system/internal/calendar"
	"github.com/briancarter456546/paper-trading-system/internal/collector"
	"github.com/briancarter456546/paper-trading-system/internal/config"
	"github.com/briancarter456546/paper-trading-system/internal/lifecycle"
	"github.com/briancarter456546/paper-trading-system/internal/logging"
	"github.com/briancarter456546/paper-trading-system/internal/metrics"
	"github.com/briancarter456546/paper-trading-system/internal/notifier"
	"github.com/briancarter456546/paper-trading-system/internal/portfolio"
	"github.com/briancarter456546/paper-trading-system/internal/regime"
	"github.com/briancarter456546/paper-trading-system/internal/runner"
	"github.com/briancarter456546/paper-trading-system/internal/store"
	"github.com/briancarter456546/paper-trading-system/internal/strategy"
)

// app is the wired application shared by the commands.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    *store.Store
	metrics  *metrics.Metrics
	telegram *notifier.TelegramNotifier // nil when not configured
	runner   *runner.Runner
	loc      *time.Location
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(config.Path(configFile))
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format), nil
}

// openStore loads config and opens the database only, for read-only commands.
func openStore() (*store.Store, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Database.SQLitePath, log)
}

func newApp() (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log.Info().Stringer("config", cfg).Msg("configuration loaded")

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	cal, err := calendar.New(cfg.Calendar.Name)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	closures, err := cfg.ClosureDates()
	if err != nil {
		return nil, err
	}
	if len(closures) > 0 {
		cal = cal.WithClosures(closures...)
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	col := collector.NewCollector(fetcher, cal, collector.Options{
		LookbackDays:    cfg.DataSource.LookbackDays,
		BreakerFailures: cfg.DataSource.BreakerFailures,
		BreakerTimeout:  cfg.DataSource.BreakerTimeout,
	}, log)

	fp, err := regime.LoadFingerprints(cfg.Classifier.Fingerprints)
	if err != nil {
		return nil, err
	}
	params, err := regime.DefaultParams().WithOverrides(cfg.Classifier.Weights, cfg.Classifier.Scales)
	if err != nil {
		return nil, err
	}
	cls, err := regime.NewClassifier(fp, params, log)
	if err != nil {
		return nil, err
	}

	pm, err := portfolio.NewManager(cfg.Trading.InitialCapital, cfg.Trading.Compound)
	if err != nil {
		return nil, err
	}
	eng, err := lifecycle.NewEngine(lifecycle.Config{
		Slippage: cfg.Trading.Slippage,
		HoldDays: cfg.Trading.HoldDays,
	}, cal, pm, log)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database.SQLitePath, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, store: st, metrics: metrics.New(), loc: loc}
	var n notifier.Notifier = notifier.LogNotifier{Log: log}
	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = a.telegram
	}

	a.runner, err = runner.New(runner.Deps{
		Collector:  col,
		Classifier: cls,
		Evaluator:  strategy.NewEvaluator(cfg.Trading.Threshold),
		Engine:     eng,
		Store:      st,
		Calendar:   cal,
		Notifier:   n,
		Metrics:    a.metrics,
	}, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	a.runner.Location = loc
	return a, nil
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.DataSource.Provider {
	case "fmp":
		return collector.NewFMPFetcher(cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.RequestsPerSec), nil
	case "static":
		return collector.LoadStaticFetcher(cfg.DataSource.StaticPath)
	default:
		return collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.RequestsPerSec), nil
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
