package portfolio

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// DefaultInitialCapital is the paper account size.
const DefaultInitialCapital = 100000.0

// Manager sizes entries against the paper account.
type Manager struct {
	initialCapital float64
	compound       bool
}

// NewManager creates a Manager. With compound set, realized P&L is added to the
// account value used for sizing; otherwise every entry is sized on initial capital.
func NewManager(initialCapital float64, compound bool) (*Manager, error) {
	if !(initialCapital > 0) || math.IsInf(initialCapital, 0) {
		return nil, model.NewConfigError("trading.initial_capital", "must be positive, got %v", initialCapital)
	}
	return &Manager{initialCapital: initialCapital, compound: compound}, nil
}

// InitialCapital returns the configured account size.
func (m *Manager) InitialCapital() float64 { return m.initialCapital }

// Value returns the portfolio value used for sizing new entries.
func (m *Manager) Value(positions []model.Position) float64 {
	if !m.compound {
		return m.initialCapital
	}
	return m.initialCapital + RealizedPnL(positions)
}

const epsilon = 0x1p-52

// Shares returns floor(value * sizePct / entryPrice). A non-positive price yields 0.
func Shares(value, sizePct, entryPrice float64) int64 {
	if !(entryPrice > 0) || !(value > 0) || !(sizePct > 0) {
		return 0
	}
	r := value * sizePct / entryPrice
	// snap only rounding noise of a few ulps to the integer it represents
	if n := math.Round(r); n > 0 && math.Abs(r-n) <= 4*epsilon*n {
		return int64(n)
	}
	return int64(math.Floor(r))
}

// RealizedPnL sums the P&L of closed positions.
func RealizedPnL(positions []model.Position) float64 {
	var pnls []float64
	for _, p := range positions {
		if p.Status == model.StatusClosed && p.PnL != nil {
			pnls = append(pnls, *p.PnL)
		}
	}
	return floats.Sum(pnls)
}

// Summarize folds every closed position into the cumulative metrics for date.
// Open positions are only counted. A trade with pnl > 0 is a win, anything else a loss.
func Summarize(date time.Time, positions []model.Position, match model.RegimeMatch) model.DailyMetrics {
	m := model.DailyMetrics{
		Date:             model.Day(date),
		Regime:           match.Regime,
		RegimeConfidence: match.Confidence,
	}

	var returns, winReturns, lossReturns, pnls []float64
	for _, p := range positions {
		switch p.Status {
		case model.StatusOpen:
			m.OpenPositions++
			continue
		case model.StatusClosed:
		default:
			continue
		}
		if p.PnL == nil || p.PnLPct == nil {
			continue
		}
		m.TotalTrades++
		pnls = append(pnls, *p.PnL)
		returns = append(returns, *p.PnLPct)
		if *p.PnL > 0 {
			m.Wins++
			winReturns = append(winReturns, *p.PnLPct)
		} else {
			m.Losses++
			lossReturns = append(lossReturns, *p.PnLPct)
		}
	}

	if m.TotalTrades == 0 {
		return m
	}
	m.WinRate = float64(m.Wins) / float64(m.TotalTrades)
	m.TotalPnL = floats.Sum(pnls)
	m.AvgReturn = stat.Mean(returns, nil)
	if len(winReturns) > 0 {
		m.AvgWin = stat.Mean(winReturns, nil)
	}
	if len(lossReturns) > 0 {
		m.AvgLoss = stat.Mean(lossReturns, nil)
	}
	return m
}
