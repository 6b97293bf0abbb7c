package model

import (
	"fmt"
	"time"
)

// PositionStatus is the lifecycle state of a paper position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

// ParsePositionStatus validates a status string.
func ParsePositionStatus(s string) (PositionStatus, error) {
	switch PositionStatus(s) {
	case StatusOpen, StatusClosed:
		return PositionStatus(s), nil
	}
	return "", fmt.Errorf("unknown position status %q", s)
}

// Position is a paper trade opened by an ENTERED signal.
// Exit fields are set exactly once, by Close.
type Position struct {
	ID              int64
	SignalName      SignalName
	Ticker          string
	EntryDate       time.Time
	EntryPrice      float64
	Shares          int64
	PositionSizePct float64
	IsBoosted       bool
	RegimeAtEntry   Regime
	TargetExitDate  time.Time
	Status          PositionStatus
	ExitDate        *time.Time
	ExitPrice       *float64
	PnL             *float64
	PnLPct          *float64
}

// Due reports whether an open position must be closed on date.
func (p *Position) Due(date time.Time) bool {
	return p.Status == StatusOpen && !date.Before(p.TargetExitDate)
}

// Close transitions the position to CLOSED at the given slippage-adjusted exit price.
func (p *Position) Close(date time.Time, exitPrice float64) error {
	if p.Status != StatusOpen {
		return &StateError{PositionID: p.ID, From: p.Status, To: StatusClosed}
	}
	if date.Before(p.TargetExitDate) {
		return &StateError{
			PositionID: p.ID, From: p.Status, To: StatusClosed,
			Reason: fmt.Sprintf("exit %s before target %s", FormatDate(date), FormatDate(p.TargetExitDate)),
		}
	}
	pnl := float64(p.Shares) * (exitPrice - p.EntryPrice)
	pnlPct := exitPrice/p.EntryPrice - 1
	exitDate := date
	p.Status = StatusClosed
	p.ExitDate = &exitDate
	p.ExitPrice = &exitPrice
	p.PnL = &pnl
	p.PnLPct = &pnlPct
	return nil
}
