// Package lifecycle opens, holds and closes paper positions.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/briancarter456546/paper-trading-system/internal/calendar"
	"github.com/briancarter456546/paper-trading-system/internal/model"
	"github.com/briancarter456546/paper-trading-system/internal/portfolio"
)

// Defaults for Config.
const (
	DefaultSlippage = 0.0005
	DefaultHoldDays = 5
)

// Ledger is the position store the engine reads and mutates.
type Ledger interface {
	OpenPositions(ctx context.Context) ([]model.Position, error)
	AllPositions(ctx context.Context) ([]model.Position, error)
	HasPosition(ctx context.Context, entryDate time.Time, signal model.SignalName) (bool, error)
	// InsertPosition stores p as OPEN and returns its id.
	InsertPosition(ctx context.Context, p *model.Position) (int64, error)
	// ClosePosition persists the exit fields of a position that was OPEN.
	ClosePosition(ctx context.Context, p *model.Position) error
}

// PriceBook looks up daily closes before slippage.
// A missing close is reported as *model.DataUnavailableError.
type PriceBook interface {
	Close(ticker string, date time.Time) (float64, error)
}

// Config holds the execution parameters.
type Config struct {
	Slippage float64
	HoldDays int
}

// Validate checks the execution parameters.
func (c Config) Validate() error {
	if c.Slippage < 0 || c.Slippage >= 1 || math.IsNaN(c.Slippage) {
		return model.NewConfigError("trading.slippage", "must be in [0, 1), got %v", c.Slippage)
	}
	if c.HoldDays < 1 {
		return model.NewConfigError("trading.hold_days", "must be at least 1, got %d", c.HoldDays)
	}
	return nil
}

// Day is everything the engine needs for one trading date.
type Day struct {
	Date   time.Time
	Events []model.SignalEvent
	Match  model.RegimeMatch
	Prices PriceBook
}

// Skip records an entry or exit that did not happen today.
type Skip struct {
	PositionID int64 // 0 for entries
	Signal     model.SignalName
	Ticker     string
	Reason     string
}

// StepResult reports what one Step did.
type StepResult struct {
	Opened  []model.Position
	Closed  []model.Position
	Skipped []Skip // entries that will not be retried
	Missing []Skip // prices not yet available; retried on the next run
	Metrics model.DailyMetrics
}

// Engine applies the daily lifecycle: exits first, then entries, then metrics.
type Engine struct {
	cfg       Config
	cal       calendar.Calendar
	portfolio *portfolio.Manager
	log       zerolog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg Config, cal calendar.Calendar, pm *portfolio.Manager, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cal == nil || pm == nil {
		return nil, errors.New("lifecycle: calendar and portfolio are required")
	}
	return &Engine{
		cfg:       cfg,
		cal:       cal,
		portfolio: pm,
		log:       log.With().Str("component", "lifecycle").Logger(),
	}, nil
}

// Step runs one trading day against ledger. A DataUnavailableError for a single
// position is recorded in the result; any other error aborts the step and the
// caller is expected to roll back.
func (e *Engine) Step(ctx context.Context, ledger Ledger, day Day) (*StepResult, error) {
	date := model.Day(day.Date)
	if !e.cal.IsTradingDay(date) {
		return nil, &model.ValidationError{Field: "date", Reason: fmt.Sprintf("%s is not a trading day", model.FormatDate(date))}
	}
	res := &StepResult{}

	if err := e.closeDue(ctx, ledger, date, day.Prices, res); err != nil {
		return nil, err
	}
	if err := e.openEntries(ctx, ledger, date, day, res); err != nil {
		return nil, err
	}

	all, err := ledger.AllPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	res.Metrics = portfolio.Summarize(date, all, day.Match)
	return res, nil
}

func (e *Engine) closeDue(ctx context.Context, ledger Ledger, date time.Time, prices PriceBook, res *StepResult) error {
	open, err := ledger.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("list open positions: %w", err)
	}
	for i := range open {
		p := open[i]
		if !p.Due(date) {
			continue
		}
		px, err := prices.Close(p.Ticker, date)
		if err != nil {
			if errors.Is(err, model.ErrDataUnavailable) {
				e.log.Warn().Err(err).Int64("position", p.ID).Str("ticker", p.Ticker).Msg("exit deferred")
				res.Missing = append(res.Missing, Skip{PositionID: p.ID, Signal: p.SignalName, Ticker: p.Ticker, Reason: err.Error()})
				continue
			}
			return fmt.Errorf("exit price %s: %w", p.Ticker, err)
		}
		if err := p.Close(date, px*(1-e.cfg.Slippage)); err != nil {
			return err
		}
		if err := ledger.ClosePosition(ctx, &p); err != nil {
			return fmt.Errorf("close position %d: %w", p.ID, err)
		}
		e.log.Info().
			Int64("position", p.ID).
			Str("ticker", p.Ticker).
			Float64("exit_price", *p.ExitPrice).
			Float64("pnl", *p.PnL).
			Msg("position closed")
		res.Closed = append(res.Closed, p)
	}
	return nil
}

func (e *Engine) openEntries(ctx context.Context, ledger Ledger, date time.Time, day Day, res *StepResult) error {
	var value float64
	valued := false

	for _, ev := range day.Events {
		if ev.Action != model.ActionEntered {
			continue
		}
		exists, err := ledger.HasPosition(ctx, date, ev.Name)
		if err != nil {
			return fmt.Errorf("check position %s: %w", ev.Name, err)
		}
		if exists {
			e.log.Debug().Str("signal", string(ev.Name)).Msg("entry already recorded")
			continue
		}

		px, err := day.Prices.Close(ev.TargetTicker, date)
		if err != nil {
			if errors.Is(err, model.ErrDataUnavailable) {
				e.log.Warn().Err(err).Str("signal", string(ev.Name)).Msg("entry deferred")
				res.Missing = append(res.Missing, Skip{Signal: ev.Name, Ticker: ev.TargetTicker, Reason: err.Error()})
				continue
			}
			return fmt.Errorf("entry price %s: %w", ev.TargetTicker, err)
		}

		if !valued {
			all, err := ledger.AllPositions(ctx)
			if err != nil {
				return fmt.Errorf("list positions: %w", err)
			}
			value = e.portfolio.Value(all)
			valued = true
		}

		entry := px * (1 + e.cfg.Slippage)
		shares := portfolio.Shares(value, ev.PositionSizePct, entry)
		if shares == 0 {
			reason := fmt.Sprintf("%.2f%% of %.2f buys no share at %.2f", ev.PositionSizePct*100, value, entry)
			e.log.Warn().Str("signal", string(ev.Name)).Msg("entry skipped: " + reason)
			res.Skipped = append(res.Skipped, Skip{Signal: ev.Name, Ticker: ev.TargetTicker, Reason: reason})
			continue
		}

		p := model.Position{
			SignalName:      ev.Name,
			Ticker:          ev.TargetTicker,
			EntryDate:       date,
			EntryPrice:      entry,
			Shares:          shares,
			PositionSizePct: ev.PositionSizePct,
			IsBoosted:       ev.IsBoosted,
			RegimeAtEntry:   day.Match.Regime,
			TargetExitDate:  e.cal.AddTradingDays(date, e.cfg.HoldDays),
			Status:          model.StatusOpen,
		}
		if p.ID, err = ledger.InsertPosition(ctx, &p); err != nil {
			return fmt.Errorf("insert position %s: %w", ev.Name, err)
		}
		e.log.Info().
			Int64("position", p.ID).
			Str("signal", string(p.SignalName)).
			Str("ticker", p.Ticker).
			Float64("entry_price", p.EntryPrice).
			Int64("shares", p.Shares).
			Str("target_exit", model.FormatDate(p.TargetExitDate)).
			Msg("position opened")
		res.Opened = append(res.Opened, p)
	}
	return nil
}
