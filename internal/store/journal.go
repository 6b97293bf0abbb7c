package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// SignalRecord is one row of the signal log.
type SignalRecord struct {
	Date   time.Time
	Event  model.SignalEvent
	Regime model.Regime
}

type signalRow struct {
	Date            string         `db:"date"`
	SignalName      string         `db:"signal_name"`
	TriggerTicker   string         `db:"trigger_ticker"`
	TargetTicker    string         `db:"target_ticker"`
	TriggerMomentum float64        `db:"trigger_momentum"`
	IsKilled        bool           `db:"is_killed"`
	KillReason      sql.NullString `db:"kill_reason"`
	IsBoosted       bool           `db:"is_boosted"`
	PositionSizePct float64        `db:"position_size_pct"`
	Regime          sql.NullString `db:"regime"`
	Action          string         `db:"action"`
}

// LogSignal appends ev to the signal log. A second event for the same date and
// signal is ignored; the return value reports whether a row was written.
func (t *Tx) LogSignal(ctx context.Context, date time.Time, ev model.SignalEvent, regime model.Regime) (bool, error) {
	res, err := t.q.ExecContext(ctx, `INSERT OR IGNORE INTO signals_log
		(date, signal_name, trigger_ticker, target_ticker, trigger_momentum,
		 is_killed, kill_reason, is_boosted, position_size_pct, regime, action)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		model.FormatDate(date), string(ev.Name), ev.TriggerTicker, ev.TargetTicker, ev.TriggerMomentum,
		ev.IsKilled, sql.NullString{String: ev.KillReason, Valid: ev.KillReason != ""}, ev.IsBoosted,
		ev.PositionSizePct, string(regime), string(ev.Action),
	)
	if err != nil {
		return false, fmt.Errorf("log signal %s: %w", ev.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Signals returns the signal log for one date, or every date when date is zero.
func (s *Store) Signals(ctx context.Context, date time.Time) ([]SignalRecord, error) {
	query := `SELECT date, signal_name, trigger_ticker, target_ticker, trigger_momentum,
		is_killed, kill_reason, is_boosted, position_size_pct, regime, action FROM signals_log`
	var args []any
	if !date.IsZero() {
		query += " WHERE date = ?"
		args = append(args, model.FormatDate(date))
	}
	query += " ORDER BY date, id"

	var rows []signalRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select signals: %w", err)
	}
	out := make([]SignalRecord, 0, len(rows))
	for _, r := range rows {
		d, err := model.ParseDate(r.Date)
		if err != nil {
			return nil, err
		}
		name, err := model.ParseSignalName(r.SignalName)
		if err != nil {
			return nil, err
		}
		action, err := model.ParseAction(r.Action)
		if err != nil {
			return nil, err
		}
		out = append(out, SignalRecord{
			Date:   d,
			Regime: model.Regime(r.Regime.String),
			Event: model.SignalEvent{
				Name:            name,
				TriggerTicker:   r.TriggerTicker,
				TargetTicker:    r.TargetTicker,
				TriggerMomentum: r.TriggerMomentum,
				IsKilled:        r.IsKilled,
				KillReason:      r.KillReason.String,
				IsBoosted:       r.IsBoosted,
				PositionSizePct: r.PositionSizePct,
				Action:          action,
			},
		})
	}
	return out, nil
}

type metricsRow struct {
	Date             string          `db:"date"`
	TotalTrades      int             `db:"total_trades"`
	Wins             int             `db:"wins"`
	Losses           int             `db:"losses"`
	WinRate          float64         `db:"win_rate"`
	AvgReturn        float64         `db:"avg_return"`
	AvgWin           float64         `db:"avg_win"`
	AvgLoss          float64         `db:"avg_loss"`
	TotalPnL         float64         `db:"total_pnl"`
	OpenPositions    int             `db:"open_positions"`
	Regime           sql.NullString  `db:"regime"`
	RegimeConfidence sql.NullFloat64 `db:"regime_confidence"`
}

func (r metricsRow) toModel() (model.DailyMetrics, error) {
	d, err := model.ParseDate(r.Date)
	if err != nil {
		return model.DailyMetrics{}, err
	}
	return model.DailyMetrics{
		Date:             d,
		TotalTrades:      r.TotalTrades,
		Wins:             r.Wins,
		Losses:           r.Losses,
		WinRate:          r.WinRate,
		AvgReturn:        r.AvgReturn,
		AvgWin:           r.AvgWin,
		AvgLoss:          r.AvgLoss,
		TotalPnL:         r.TotalPnL,
		OpenPositions:    r.OpenPositions,
		Regime:           model.Regime(r.Regime.String),
		RegimeConfidence: r.RegimeConfidence.Float64,
	}, nil
}

// UpsertDailyMetrics writes the snapshot for m.Date, replacing an earlier one.
func (t *Tx) UpsertDailyMetrics(ctx context.Context, m model.DailyMetrics) error {
	_, err := t.q.ExecContext(ctx, `INSERT INTO daily_metrics
		(date, total_trades, wins, losses, win_rate, avg_return, avg_win, avg_loss,
		 total_pnl, open_positions, regime, regime_confidence)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (date) DO UPDATE SET
			total_trades = excluded.total_trades,
			wins = excluded.wins,
			losses = excluded.losses,
			win_rate = excluded.win_rate,
			avg_return = excluded.avg_return,
			avg_win = excluded.avg_win,
			avg_loss = excluded.avg_loss,
			total_pnl = excluded.total_pnl,
			open_positions = excluded.open_positions,
			regime = excluded.regime,
			regime_confidence = excluded.regime_confidence`,
		model.FormatDate(m.Date), m.TotalTrades, m.Wins, m.Losses, m.WinRate, m.AvgReturn,
		m.AvgWin, m.AvgLoss, m.TotalPnL, m.OpenPositions, string(m.Regime), m.RegimeConfidence,
	)
	if err != nil {
		return fmt.Errorf("upsert daily metrics: %w", err)
	}
	return nil
}

const metricsColumns = `date, total_trades, wins, losses, win_rate, avg_return, avg_win, avg_loss,
	total_pnl, open_positions, regime, regime_confidence`

// MetricsHistory returns up to limit snapshots, newest first. limit <= 0 returns all.
func (s *Store) MetricsHistory(ctx context.Context, limit int) ([]model.DailyMetrics, error) {
	query := "SELECT " + metricsColumns + " FROM daily_metrics ORDER BY date DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var rows []metricsRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select daily metrics: %w", err)
	}
	out := make([]model.DailyMetrics, 0, len(rows))
	for _, r := range rows {
		m, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// DailyMetrics returns the snapshot for date. ok is false when none exists.
func (s *Store) DailyMetrics(ctx context.Context, date time.Time) (m model.DailyMetrics, ok bool, err error) {
	var row metricsRow
	err = s.db.GetContext(ctx, &row, "SELECT "+metricsColumns+" FROM daily_metrics WHERE date = ?", model.FormatDate(date))
	if errors.Is(err, sql.ErrNoRows) {
		return m, false, nil
	}
	if err != nil {
		return m, false, fmt.Errorf("get daily metrics: %w", err)
	}
	m, err = row.toModel()
	return m, err == nil, err
}

// LatestRunDate returns the most recent run date. ok is false before the first run.
func (t *Tx) LatestRunDate(ctx context.Context) (time.Time, bool, error) {
	return latestRunDate(ctx, t.q)
}

// LatestRunDate returns the most recent run date outside a transaction.
func (s *Store) LatestRunDate(ctx context.Context) (time.Time, bool, error) {
	return latestRunDate(ctx, s.db)
}

func latestRunDate(ctx context.Context, q sqlx.QueryerContext) (time.Time, bool, error) {
	var d sql.NullString
	if err := sqlx.GetContext(ctx, q, &d, `SELECT MAX(date) FROM runs`); err != nil {
		return time.Time{}, false, fmt.Errorf("latest run: %w", err)
	}
	if !d.Valid {
		return time.Time{}, false, nil
	}
	t, err := model.ParseDate(d.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

type runRow struct {
	RunID      string          `db:"run_id"`
	Date       string          `db:"date"`
	StartedAt  string          `db:"started_at"`
	FinishedAt string          `db:"finished_at"`
	Regime     sql.NullString  `db:"regime"`
	Confidence sql.NullFloat64 `db:"confidence"`
	Entered    int             `db:"entered"`
	Killed     int             `db:"killed"`
	Closed     int             `db:"closed"`
	Missing    int             `db:"missing"`
}

// RecordRun appends the audit row of a run. The table keeps one row per
// invocation, so replaying a date adds a row under a new run ID.
func (t *Tx) RecordRun(ctx context.Context, r model.RunRecord) error {
	_, err := t.q.ExecContext(ctx, `INSERT INTO runs
		(run_id, date, started_at, finished_at, regime, confidence, entered, killed, closed, missing)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.RunID, model.FormatDate(r.Date), r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.FinishedAt.UTC().Format(time.RFC3339Nano), string(r.Regime), r.Confidence,
		r.Entered, r.Killed, r.Closed, r.Missing,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns up to limit run records, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `SELECT run_id, date, started_at, finished_at, regime,
		confidence, entered, killed, closed, missing FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	out := make([]model.RunRecord, 0, len(rows))
	for _, r := range rows {
		d, err := model.ParseDate(r.Date)
		if err != nil {
			return nil, err
		}
		started, err := time.Parse(time.RFC3339Nano, r.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", r.RunID, err)
		}
		finished, err := time.Parse(time.RFC3339Nano, r.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: finished_at: %w", r.RunID, err)
		}
		var regime model.Regime
		if r.Regime.Valid && r.Regime.String != "" {
			if regime, err = model.ParseRegime(r.Regime.String); err != nil {
				return nil, fmt.Errorf("run %s: %w", r.RunID, err)
			}
		}
		out = append(out, model.RunRecord{
			RunID:      r.RunID,
			Date:       d,
			StartedAt:  started,
			FinishedAt: finished,
			Regime:     regime,
			Confidence: r.Confidence.Float64,
			Entered:    r.Entered,
			Killed:     r.Killed,
			Closed:     r.Closed,
			Missing:    r.Missing,
		})
	}
	return out, nil
}
