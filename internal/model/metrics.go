package model

import "time"

// DailyMetrics is the cumulative performance snapshot written once per run date.
type DailyMetrics struct {
	Date             time.Time
	TotalTrades      int
	Wins             int
	Losses           int
	WinRate          float64 // wins / total_trades, 0 when no trades
	AvgReturn        float64 // mean pnl_pct
	AvgWin           float64
	AvgLoss          float64
	TotalPnL         float64
	OpenPositions    int
	Regime           Regime
	RegimeConfidence float64
}

// RunRecord is the audit row of one daily invocation.
type RunRecord struct {
	RunID      string
	Date       time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Regime     Regime
	Confidence float64
	Entered    int
	Killed     int
	Closed     int
	Missing    int
}
