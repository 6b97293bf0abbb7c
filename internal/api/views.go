package api

import (
	"time"

	"github.com/briancarter456546/paper-trading-system/internal/model"
	"github.com/briancarter456546/paper-trading-system/internal/store"
)

type positionView struct {
	ID              int64    `json:"id"`
	SignalName      string   `json:"signal_name"`
	Ticker          string   `json:"ticker"`
	EntryDate       string   `json:"entry_date"`
	EntryPrice      float64  `json:"entry_price"`
	Shares          int64    `json:"shares"`
	PositionSizePct float64  `json:"position_size_pct"`
	IsBoosted       bool     `json:"is_boosted"`
	RegimeAtEntry   string   `json:"regime_at_entry"`
	TargetExitDate  string   `json:"target_exit_date"`
	Status          string   `json:"status"`
	ExitDate        *string  `json:"exit_date,omitempty"`
	ExitPrice       *float64 `json:"exit_price,omitempty"`
	PnL             *float64 `json:"pnl,omitempty"`
	PnLPct          *float64 `json:"pnl_pct,omitempty"`
}

func newPositionView(p model.Position) positionView {
	v := positionView{
		ID:              p.ID,
		SignalName:      string(p.SignalName),
		Ticker:          p.Ticker,
		EntryDate:       model.FormatDate(p.EntryDate),
		EntryPrice:      p.EntryPrice,
		Shares:          p.Shares,
		PositionSizePct: p.PositionSizePct,
		IsBoosted:       p.IsBoosted,
		RegimeAtEntry:   string(p.RegimeAtEntry),
		TargetExitDate:  model.FormatDate(p.TargetExitDate),
		Status:          string(p.Status),
		ExitPrice:       p.ExitPrice,
		PnL:             p.PnL,
		PnLPct:          p.PnLPct,
	}
	if p.ExitDate != nil {
		d := model.FormatDate(*p.ExitDate)
		v.ExitDate = &d
	}
	return v
}

type metricsView struct {
	Date             string  `json:"date"`
	TotalTrades      int     `json:"total_trades"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	WinRate          float64 `json:"win_rate"`
	AvgReturn        float64 `json:"avg_return"`
	AvgWin           float64 `json:"avg_win"`
	AvgLoss          float64 `json:"avg_loss"`
	TotalPnL         float64 `json:"total_pnl"`
	OpenPositions    int     `json:"open_positions"`
	Regime           string  `json:"regime"`
	RegimeConfidence float64 `json:"regime_confidence"`
}

func newMetricsView(m model.DailyMetrics) metricsView {
	return metricsView{
		Date:             model.FormatDate(m.Date),
		TotalTrades:      m.TotalTrades,
		Wins:             m.Wins,
		Losses:           m.Losses,
		WinRate:          m.WinRate,
		AvgReturn:        m.AvgReturn,
		AvgWin:           m.AvgWin,
		AvgLoss:          m.AvgLoss,
		TotalPnL:         m.TotalPnL,
		OpenPositions:    m.OpenPositions,
		Regime:           string(m.Regime),
		RegimeConfidence: m.RegimeConfidence,
	}
}

type signalView struct {
	Date            string  `json:"date"`
	SignalName      string  `json:"signal_name"`
	TriggerTicker   string  `json:"trigger_ticker"`
	TargetTicker    string  `json:"target_ticker"`
	TriggerMomentum float64 `json:"trigger_momentum"`
	IsKilled        bool    `json:"is_killed"`
	KillReason      string  `json:"kill_reason,omitempty"`
	IsBoosted       bool    `json:"is_boosted"`
	PositionSizePct float64 `json:"position_size_pct"`
	Regime          string  `json:"regime"`
	Action          string  `json:"action"`
}

func newSignalView(r store.SignalRecord) signalView {
	return signalView{
		Date:            model.FormatDate(r.Date),
		SignalName:      string(r.Event.Name),
		TriggerTicker:   r.Event.TriggerTicker,
		TargetTicker:    r.Event.TargetTicker,
		TriggerMomentum: r.Event.TriggerMomentum,
		IsKilled:        r.Event.IsKilled,
		KillReason:      r.Event.KillReason,
		IsBoosted:       r.Event.IsBoosted,
		PositionSizePct: r.Event.PositionSizePct,
		Regime:          string(r.Regime),
		Action:          string(r.Event.Action),
	}
}

type runView struct {
	RunID      string    `json:"run_id"`
	Date       string    `json:"date"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Regime     string    `json:"regime"`
	Confidence float64   `json:"confidence"`
	Entered    int       `json:"entered"`
	Killed     int       `json:"killed"`
	Closed     int       `json:"closed"`
	Missing    int       `json:"missing"`
}

func newRunView(r model.RunRecord) runView {
	return runView{
		RunID:      r.RunID,
		Date:       model.FormatDate(r.Date),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Regime:     string(r.Regime),
		Confidence: r.Confidence,
		Entered:    r.Entered,
		Killed:     r.Killed,
		Closed:     r.Closed,
		Missing:    r.Missing,
	}
}
