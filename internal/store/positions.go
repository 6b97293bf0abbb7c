package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

const positionColumns = `id, signal_name, ticker, entry_date, entry_price, shares, position_size_pct,
	is_boosted, regime_at_entry, target_exit_date, status, exit_date, exit_price, pnl, pnl_pct`

type positionRow struct {
	ID              int64           `db:"id"`
	SignalName      string          `db:"signal_name"`
	Ticker          string          `db:"ticker"`
	EntryDate       string          `db:"entry_date"`
	EntryPrice      float64         `db:"entry_price"`
	Shares          int64           `db:"shares"`
	PositionSizePct float64         `db:"position_size_pct"`
	IsBoosted       bool            `db:"is_boosted"`
	RegimeAtEntry   string          `db:"regime_at_entry"`
	TargetExitDate  string          `db:"target_exit_date"`
	Status          string          `db:"status"`
	ExitDate        sql.NullString  `db:"exit_date"`
	ExitPrice       sql.NullFloat64 `db:"exit_price"`
	PnL             sql.NullFloat64 `db:"pnl"`
	PnLPct          sql.NullFloat64 `db:"pnl_pct"`
}

func (r positionRow) toModel() (model.Position, error) {
	p := model.Position{
		ID:              r.ID,
		Ticker:          r.Ticker,
		EntryPrice:      r.EntryPrice,
		Shares:          r.Shares,
		PositionSizePct: r.PositionSizePct,
		IsBoosted:       r.IsBoosted,
	}
	var err error
	if p.RegimeAtEntry, err = model.ParseRegime(r.RegimeAtEntry); err != nil {
		return p, fmt.Errorf("position %d: %w", r.ID, err)
	}
	if p.SignalName, err = model.ParseSignalName(r.SignalName); err != nil {
		return p, fmt.Errorf("position %d: %w", r.ID, err)
	}
	if p.Status, err = model.ParsePositionStatus(r.Status); err != nil {
		return p, fmt.Errorf("position %d: %w", r.ID, err)
	}
	if p.EntryDate, err = model.ParseDate(r.EntryDate); err != nil {
		return p, fmt.Errorf("position %d: %w", r.ID, err)
	}
	if p.TargetExitDate, err = model.ParseDate(r.TargetExitDate); err != nil {
		return p, fmt.Errorf("position %d: %w", r.ID, err)
	}
	if r.ExitDate.Valid {
		d, err := model.ParseDate(r.ExitDate.String)
		if err != nil {
			return p, fmt.Errorf("position %d: %w", r.ID, err)
		}
		p.ExitDate = &d
	}
	p.ExitPrice = nullFloat(r.ExitPrice)
	p.PnL = nullFloat(r.PnL)
	p.PnLPct = nullFloat(r.PnLPct)
	return p, nil
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func selectPositions(ctx context.Context, q sqlx.QueryerContext, where string, args ...any) ([]model.Position, error) {
	var rows []positionRow
	query := "SELECT " + positionColumns + " FROM positions " + where + " ORDER BY entry_date, id"
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select positions: %w", err)
	}
	out := make([]model.Position, 0, len(rows))
	for _, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// OpenPositions returns every OPEN position.
func (t *Tx) OpenPositions(ctx context.Context) ([]model.Position, error) {
	return selectPositions(ctx, t.q, "WHERE status = ?", string(model.StatusOpen))
}

// AllPositions returns every position regardless of status.
func (t *Tx) AllPositions(ctx context.Context) ([]model.Position, error) {
	return selectPositions(ctx, t.q, "")
}

// HasPosition reports whether signal already opened a position on entryDate.
func (t *Tx) HasPosition(ctx context.Context, entryDate time.Time, signal model.SignalName) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, t.q, &n,
		`SELECT COUNT(*) FROM positions WHERE entry_date = ? AND signal_name = ?`,
		model.FormatDate(entryDate), string(signal))
	if err != nil {
		return false, fmt.Errorf("count positions: %w", err)
	}
	return n > 0, nil
}

// InsertPosition stores a new OPEN position.
func (t *Tx) InsertPosition(ctx context.Context, p *model.Position) (int64, error) {
	if p.Status != model.StatusOpen {
		return 0, &model.StateError{From: p.Status, To: model.StatusOpen, Reason: "only open positions can be inserted"}
	}
	res, err := t.q.ExecContext(ctx, `INSERT INTO positions
		(signal_name, ticker, entry_date, entry_price, shares, position_size_pct,
		 is_boosted, regime_at_entry, target_exit_date, status)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		string(p.SignalName), p.Ticker, model.FormatDate(p.EntryDate), p.EntryPrice, p.Shares,
		p.PositionSizePct, p.IsBoosted, string(p.RegimeAtEntry), model.FormatDate(p.TargetExitDate),
		string(model.StatusOpen),
	)
	if err != nil {
		return 0, fmt.Errorf("insert position: %w", err)
	}
	return res.LastInsertId()
}

// ClosePosition writes the exit fields. Only an OPEN row can be closed.
func (t *Tx) ClosePosition(ctx context.Context, p *model.Position) error {
	if p.Status != model.StatusClosed || p.ExitDate == nil || p.ExitPrice == nil || p.PnL == nil || p.PnLPct == nil {
		return &model.StateError{PositionID: p.ID, From: p.Status, To: model.StatusClosed, Reason: "exit fields not set"}
	}
	res, err := t.q.ExecContext(ctx, `UPDATE positions
		SET status = ?, exit_date = ?, exit_price = ?, pnl = ?, pnl_pct = ?
		WHERE id = ? AND status = ?`,
		string(model.StatusClosed), model.FormatDate(*p.ExitDate), *p.ExitPrice, *p.PnL, *p.PnLPct,
		p.ID, string(model.StatusOpen),
	)
	if err != nil {
		return fmt.Errorf("close position %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &model.StateError{PositionID: p.ID, From: model.StatusClosed, To: model.StatusClosed, Reason: "position is not open"}
	}
	return nil
}

// Positions lists positions, optionally filtered by status.
func (s *Store) Positions(ctx context.Context, status model.PositionStatus) ([]model.Position, error) {
	if status == "" {
		return selectPositions(ctx, s.db, "")
	}
	return selectPositions(ctx, s.db, "WHERE status = ?", string(status))
}
