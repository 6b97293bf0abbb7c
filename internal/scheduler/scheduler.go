package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/briancarter456546/paper-trading-system/internal/model"
	"github.com/briancarter456546/paper-trading-system/internal/runner"
)

// DailyRunner runs the pipeline for one trading date.
type DailyRunner interface {
	Run(ctx context.Context, date time.Time) (*runner.Report, error)
}

// Scheduler manages the cron task.
type Scheduler struct {
	Cron   *cron.Cron
	Runner DailyRunner
	Ctx    context.Context
	loc    *time.Location
	log    zerolog.Logger
	now    func() time.Time
}

// NewScheduler creates a Scheduler evaluating cron specs (with seconds) in loc.
// A daily run still in progress when the next one fires is skipped.
func NewScheduler(ctx context.Context, r DailyRunner, loc *time.Location, log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Runner: r,
		Ctx:    ctx,
		loc:    loc,
		log:    log,
		now:    time.Now,
	}
}

// RegisterDaily registers the daily run.
func (s *Scheduler) RegisterDaily(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.dailyTask); err != nil {
		return model.NewConfigError("schedule.daily_cron", "register daily task: %w", err)
	}
	s.log.Info().Str("spec", spec).Str("tz", s.loc.String()).Msg("daily task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes the daily task immediately (RUN_ON_START, manual trigger).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	date := runner.TradeDate(s.now(), s.loc)
	s.log.Info().Str("date", model.FormatDate(date)).Msg("running daily task")
	if _, err := s.Runner.Run(s.Ctx, date); err != nil {
		// the runner logs and counts the failure; the next tick retries
		s.log.Error().Err(err).Str("date", model.FormatDate(date)).Msg("daily task failed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(fields(keysAndValues)).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(fields(keysAndValues)).Msg("cron: " + msg)
}

func fields(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
