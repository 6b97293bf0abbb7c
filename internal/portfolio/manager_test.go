package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

func closed(pnl, pnlPct float64) model.Position {
	return model.Position{Status: model.StatusClosed, PnL: &pnl, PnLPct: &pnlPct}
}

func TestShares(t *testing.T) {
	tests := []struct {
		name               string
		value, size, price float64
		want               int64
	}{
		{"base size", 100000, 0.01, 100.05, 9},
		{"boosted exact", 100000, 0.015, 150, 10},
		{"just below integer", 99999.999995, 0.01, 100, 9},
		{"one ulp below integer", math.Nextafter(10, 0), 1, 1, 10},
		{"price above budget", 100000, 0.01, 1500, 0},
		{"zero price", 100000, 0.01, 0, 0},
		{"negative value", -5, 0.01, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Shares(tt.value, tt.size, tt.price))
		})
	}
}

func TestManager_Value(t *testing.T) {
	positions := []model.Position{closed(250, 0.02), closed(-50, -0.01), {Status: model.StatusOpen}}

	flat, err := NewManager(DefaultInitialCapital, false)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, flat.Value(positions))

	comp, err := NewManager(DefaultInitialCapital, true)
	require.NoError(t, err)
	assert.Equal(t, 100200.0, comp.Value(positions))

	_, err = NewManager(0, false)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestSummarize(t *testing.T) {
	date := time.Date(2025, 1, 22, 15, 0, 0, 0, time.UTC)
	match := model.RegimeMatch{Regime: model.RegimeGoldilocks, Confidence: 0.8}
	positions := []model.Position{
		closed(100, 0.04),
		closed(50, 0.02),
		closed(0, 0),
		closed(-30, -0.03),
		{Status: model.StatusOpen},
		{Status: model.StatusOpen},
	}

	m := Summarize(date, positions, match)
	assert.Equal(t, time.Date(2025, 1, 22, 0, 0, 0, 0, time.UTC), m.Date)
	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.Wins)
	assert.Equal(t, 2, m.Losses, "zero pnl counts as a loss")
	assert.Equal(t, 0.5, m.WinRate)
	assert.InDelta(t, 120.0, m.TotalPnL, 1e-9)
	assert.InDelta(t, 0.0075, m.AvgReturn, 1e-12)
	assert.InDelta(t, 0.03, m.AvgWin, 1e-12)
	assert.InDelta(t, -0.015, m.AvgLoss, 1e-12)
	assert.Equal(t, 2, m.OpenPositions)
	assert.Equal(t, model.RegimeGoldilocks, m.Regime)
	assert.Equal(t, 0.8, m.RegimeConfidence)
}

func TestSummarize_NoTrades(t *testing.T) {
	m := Summarize(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), nil, model.RegimeMatch{Regime: model.RegimeRiskOnGrowth})
	assert.Zero(t, m.TotalTrades)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.TotalPnL)
}

func TestSummarize_OrderIndependent(t *testing.T) {
	a := []model.Position{closed(10, 0.01), closed(-5, -0.02), closed(7, 0.005)}
	b := []model.Position{a[2], a[0], a[1]}
	date := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	ma := Summarize(date, a, model.RegimeMatch{})
	mb := Summarize(date, b, model.RegimeMatch{})
	assert.Equal(t, ma.TotalTrades, mb.TotalTrades)
	assert.InDelta(t, ma.TotalPnL, mb.TotalPnL, 1e-12)
	assert.InDelta(t, ma.AvgReturn, mb.AvgReturn, 1e-12)
}
