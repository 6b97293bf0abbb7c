// Package runner performs one paper-trading pass for a trading date.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/briancarter456546/paper-trading-system/internal/calendar"
	"github.com/briancarter456546/paper-trading-system/internal/collector"
	"github.com/briancarter456546/paper-trading-system/internal/lifecycle"
	"github.com/briancarter456546/paper-trading-system/internal/metrics"
	"github.com/briancarter456546/paper-trading-system/internal/model"
	"github.com/briancarter456546/paper-trading-system/internal/notifier"
	"github.com/briancarter456546/paper-trading-system/internal/regime"
	"github.com/briancarter456546/paper-trading-system/internal/store"
	"github.com/briancarter456546/paper-trading-system/internal/strategy"
)

// Deps are the collaborators of a Runner. Notifier and Metrics are optional.
type Deps struct {
	Collector  *collector.Collector
	Classifier *regime.Classifier
	Evaluator  strategy.Evaluator
	Engine     *lifecycle.Engine
	Store      *store.Store
	Calendar   calendar.Calendar
	Notifier   notifier.Notifier
	Metrics    *metrics.Metrics
}

// Runner runs the daily pipeline: collect, classify, evaluate, then apply
// the lifecycle and persist everything in one transaction.
type Runner struct {
	Deps
	Location *time.Location // trading-date timezone for Today
	log      zerolog.Logger
	mu       sync.Mutex
	now      func() time.Time
}

// New creates a Runner.
func New(d Deps, log zerolog.Logger) (*Runner, error) {
	if d.Collector == nil || d.Classifier == nil || d.Engine == nil || d.Store == nil || d.Calendar == nil {
		return nil, errors.New("runner: collector, classifier, engine, store and calendar are required")
	}
	if d.Notifier == nil {
		d.Notifier = notifier.LogNotifier{Log: log}
	}
	return &Runner{
		Deps:     d,
		Location: collector.NewYork(),
		log:      log.With().Str("component", "runner").Logger(),
		now:      time.Now,
	}, nil
}

// Report is the outcome of one Run.
type Report struct {
	RunID   string
	Date    time.Time
	Skipped bool // not a trading day
	Match   model.RegimeMatch
	Events  []model.SignalEvent
	Logged  int // events newly written to the signal log
	Step    *lifecycle.StepResult
	Text    string
}

// Today returns the current trading date in the runner's timezone.
func (r *Runner) Today() time.Time {
	return TradeDate(r.now(), r.Location)
}

// TradeDate is the calendar date of t in loc as a UTC-midnight value.
func TradeDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Run evaluates date. Runs are serialized; replaying the latest date is a no-op
// apart from recomputing metrics, and a date earlier than the latest run fails
// with a StateError.
func (r *Runner) Run(ctx context.Context, date time.Time) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	date = model.Day(date)
	rep := &Report{RunID: uuid.NewString(), Date: date}
	log := r.log.With().Str("run_id", rep.RunID).Str("date", model.FormatDate(date)).Logger()
	started := r.now()

	err := r.run(ctx, log, rep, started)
	elapsed := r.now().Sub(started)
	switch {
	case err != nil:
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("run failed")
		r.observeRun(metrics.ResultError, elapsed)
		return nil, err
	case rep.Skipped:
		log.Info().Msg("not a trading day, nothing to do")
		r.observeRun(metrics.ResultSkipped, elapsed)
		return rep, nil
	}

	log.Info().
		Str("regime", string(rep.Match.Regime)).
		Float64("confidence", rep.Match.Confidence).
		Int("signals", len(rep.Events)).
		Int("opened", len(rep.Step.Opened)).
		Int("closed", len(rep.Step.Closed)).
		Int("missing", len(rep.Step.Missing)).
		Dur("elapsed", elapsed).
		Msg("run complete")

	if err := r.Notifier.Notify(ctx, rep.Text); err != nil {
		log.Error().Err(err).Msg("send daily report")
	}
	r.observeRun(metrics.ResultOK, elapsed)
	if r.Metrics != nil {
		r.Metrics.ObserveRegime(rep.Match)
		r.Metrics.ObserveLifecycle(len(rep.Step.Opened), len(rep.Step.Closed), len(rep.Step.Missing), rep.Step.Metrics)
	}
	return rep, nil
}

func (r *Runner) run(ctx context.Context, log zerolog.Logger, rep *Report, started time.Time) error {
	if !r.Calendar.IsTradingDay(rep.Date) {
		rep.Skipped = true
		return nil
	}
	// cheap check before fetching; repeated inside the transaction
	latest, ok, err := r.Store.LatestRunDate(ctx)
	if err != nil {
		return fmt.Errorf("latest run: %w", err)
	}
	if err := checkOrder(rep.Date, latest, ok); err != nil {
		return err
	}

	snap, err := r.Collector.Collect(ctx, rep.Date)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	log.Debug().Interface("factors", snap.Factors).Interface("momenta", snap.Momenta).Msg("inputs collected")

	if rep.Match, err = r.Classifier.Classify(snap.Factors); err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	if rep.Events, err = r.Evaluator.Evaluate(snap.Momenta); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	var logged []model.SignalEvent
	err = r.Store.InTx(ctx, func(tx *store.Tx) error {
		latest, ok, err := tx.LatestRunDate(ctx)
		if err != nil {
			return fmt.Errorf("latest run: %w", err)
		}
		if err := checkOrder(rep.Date, latest, ok); err != nil {
			return err
		}
		for _, ev := range rep.Events {
			inserted, err := tx.LogSignal(ctx, rep.Date, ev, rep.Match.Regime)
			if err != nil {
				return fmt.Errorf("log signal %s: %w", ev.Name, err)
			}
			if inserted {
				logged = append(logged, ev)
			}
		}
		step, err := r.Engine.Step(ctx, tx, lifecycle.Day{Date: rep.Date, Events: rep.Events, Match: rep.Match, Prices: snap})
		if err != nil {
			return err
		}
		if err := tx.UpsertDailyMetrics(ctx, step.Metrics); err != nil {
			return err
		}
		rep.Step = step
		return tx.RecordRun(ctx, model.RunRecord{
			RunID:      rep.RunID,
			Date:       rep.Date,
			StartedAt:  started,
			FinishedAt: r.now(),
			Regime:     rep.Match.Regime,
			Confidence: rep.Match.Confidence,
			Entered:    len(step.Opened),
			Killed:     countKilled(rep.Events),
			Closed:     len(step.Closed),
			Missing:    len(step.Missing),
		})
	})
	if err != nil {
		rep.Step = nil
		return err
	}

	rep.Logged = len(logged)
	if r.Metrics != nil {
		r.Metrics.ObserveSignals(logged)
	}
	rep.Text = notifier.FormatDailyReport(summary(rep))
	return nil
}

func checkOrder(date, latest time.Time, ok bool) error {
	if ok && date.Before(latest) {
		return &model.StateError{Reason: fmt.Sprintf("run date %s is before the latest run %s",
			model.FormatDate(date), model.FormatDate(latest))}
	}
	return nil
}

func countKilled(events []model.SignalEvent) int {
	n := 0
	for _, ev := range events {
		if ev.Action == model.ActionKilled {
			n++
		}
	}
	return n
}

func summary(rep *Report) notifier.Summary {
	s := notifier.Summary{
		RunID:   rep.RunID,
		Date:    rep.Date,
		Match:   rep.Match,
		Events:  rep.Events,
		Opened:  rep.Step.Opened,
		Closed:  rep.Step.Closed,
		Metrics: rep.Step.Metrics,
	}
	for _, m := range rep.Step.Missing {
		s.Deferred = append(s.Deferred, describe(m))
	}
	for _, m := range rep.Step.Skipped {
		s.Skipped = append(s.Skipped, describe(m))
	}
	return s
}

func describe(s lifecycle.Skip) string {
	if s.PositionID != 0 {
		return fmt.Sprintf("exit #%d %s: %s", s.PositionID, s.Ticker, s.Reason)
	}
	return fmt.Sprintf("entry %s %s: %s", s.Signal, s.Ticker, s.Reason)
}

func (r *Runner) observeRun(result string, elapsed time.Duration) {
	if r.Metrics != nil {
		r.Metrics.ObserveRun(result, elapsed, r.now())
	}
}
