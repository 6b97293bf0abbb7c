package runner

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briancarter456546/paper-trading-system/internal/calendar"
	"github.com/briancarter456546/paper-trading-system/internal/calculator"
	"github.com/briancarter456546/paper-trading-system/internal/collector"
	"github.com/briancarter456546/paper-trading-system/internal/lifecycle"
	"github.com/briancarter456546/paper-trading-system/internal/model"
	"github.com/briancarter456546/paper-trading-system/internal/portfolio"
	"github.com/briancarter456546/paper-trading-system/internal/regime"
	"github.com/briancarter456546/paper-trading-system/internal/store"
	"github.com/briancarter456546/paper-trading-system/internal/strategy"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type captureNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (c *captureNotifier) Notify(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

// market builds weekday bars from 2024-06-03 to 2025-02-28. Factor series wander,
// triggers and targets sit flat at a base price unless overridden per date.
type market struct {
	dates     []time.Time
	base      map[string]float64
	overrides map[string]map[time.Time]float64
}

func newMarket() *market {
	m := &market{
		base: map[string]float64{
			"JNK": 100, "ANGL": 100, "HYG": 100, "UUP": 100, "PLTM": 100,
			"IWM": 200, "COPX": 40, "MDY": 500,
		},
		overrides: map[string]map[time.Time]float64{},
	}
	cal := calendar.Weekdays()
	for d := day(2024, 6, 3); !d.After(day(2025, 2, 28)); d = d.AddDate(0, 0, 1) {
		if cal.IsTradingDay(d) {
			m.dates = append(m.dates, d)
		}
	}
	return m
}

func (m *market) set(sym string, d time.Time, px float64) {
	if m.overrides[sym] == nil {
		m.overrides[sym] = map[time.Time]float64{}
	}
	m.overrides[sym][d] = px
}

func (m *market) fetcher() *collector.StaticFetcher {
	f := &collector.StaticFetcher{Bars: map[string][]model.Bar{}, Errs: map[string]error{}}
	for k, sym := range calculator.FactorSymbols {
		for i, d := range m.dates {
			x := float64(i)
			px := (50 + 10*float64(k)) * (1 + 0.0005*x + 0.02*math.Sin(x/float64(3+k)))
			if sym == "^VIX" {
				px = 16 + 3*math.Sin(x/4)
			}
			f.Bars[sym] = append(f.Bars[sym], model.Bar{Time: d, Close: px})
		}
	}
	for sym, base := range m.base {
		for _, d := range m.dates {
			px := base
			if o, ok := m.overrides[sym][d]; ok {
				px = o
			}
			f.Bars[sym] = append(f.Bars[sym], model.Bar{Time: d, Close: px})
		}
	}
	return f
}

type fixture struct {
	runner   *Runner
	store    *store.Store
	fetcher  *collector.StaticFetcher
	notifier *captureNotifier
}

func newFixture(t *testing.T, m *market) *fixture {
	t.Helper()
	log := zerolog.Nop()
	cal := calendar.Weekdays()

	st, err := store.Open(filepath.Join(t.TempDir(), "paper.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	fp, err := regime.LoadFingerprints("../../configs/regime_fingerprints.yaml")
	require.NoError(t, err)
	cls, err := regime.NewClassifier(fp, regime.DefaultParams(), log)
	require.NoError(t, err)

	pm, err := portfolio.NewManager(portfolio.DefaultInitialCapital, false)
	require.NoError(t, err)
	eng, err := lifecycle.NewEngine(lifecycle.Config{Slippage: lifecycle.DefaultSlippage, HoldDays: lifecycle.DefaultHoldDays}, cal, pm, log)
	require.NoError(t, err)

	f := m.fetcher()
	n := &captureNotifier{}
	r, err := New(Deps{
		Collector:  collector.NewCollector(f, cal, collector.Options{LookbackDays: 400}, log),
		Classifier: cls,
		Evaluator:  strategy.NewEvaluator(strategy.DefaultThreshold),
		Engine:     eng,
		Store:      st,
		Calendar:   cal,
		Notifier:   n,
	}, log)
	require.NoError(t, err)
	return &fixture{runner: r, store: st, fetcher: f, notifier: n}
}

// boostedMarket fires JNK_IWM on 2025-01-15 with UUP below and PLTM above the threshold.
func boostedMarket() *market {
	m := newMarket()
	m.set("JNK", day(2025, 1, 15), 101.6)
	m.set("UUP", day(2025, 1, 15), 101)
	m.set("PLTM", day(2025, 1, 15), 102)
	m.set("IWM", day(2025, 1, 22), 210)
	return m
}

func TestRun_EntryThenExit(t *testing.T) {
	fx := newFixture(t, boostedMarket())
	ctx := context.Background()

	rep, err := fx.runner.Run(ctx, day(2025, 1, 15))
	require.NoError(t, err)
	require.Len(t, rep.Events, 1)
	ev := rep.Events[0]
	assert.Equal(t, model.SignalJnkIwm, ev.Name)
	assert.True(t, ev.IsBoosted)
	assert.Equal(t, 0.015, ev.PositionSizePct)
	assert.Equal(t, model.ActionEntered, ev.Action)
	assert.Contains(t, model.Regimes, rep.Match.Regime)
	assert.Equal(t, 1, rep.Logged)

	require.Len(t, rep.Step.Opened, 1)
	assert.Equal(t, int64(7), rep.Step.Opened[0].Shares)
	assert.Equal(t, day(2025, 1, 22), rep.Step.Opened[0].TargetExitDate)

	for _, d := range []time.Time{day(2025, 1, 16), day(2025, 1, 17), day(2025, 1, 20), day(2025, 1, 21)} {
		rep, err = fx.runner.Run(ctx, d)
		require.NoError(t, err)
		assert.Empty(t, rep.Events)
		assert.Empty(t, rep.Step.Closed)
	}

	rep, err = fx.runner.Run(ctx, day(2025, 1, 22))
	require.NoError(t, err)
	require.Len(t, rep.Step.Closed, 1)

	slip := lifecycle.DefaultSlippage
	entry, exit := 200*(1+slip), 210*(1-slip)
	closed, err := fx.store.Positions(ctx, model.StatusClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	p := closed[0]
	assert.Equal(t, day(2025, 1, 22), *p.ExitDate)
	assert.InDelta(t, 7*(exit-entry), *p.PnL, 1e-9)
	assert.InDelta(t, exit/entry-1, *p.PnLPct, 1e-12)

	m, ok, err := fx.store.DailyMetrics(ctx, day(2025, 1, 22))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, m.TotalTrades)
	assert.Equal(t, 1, m.Wins)
	assert.Equal(t, 0, m.OpenPositions)

	runs, err := fx.store.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 6)
	assert.Len(t, fx.notifier.texts, 6)
	assert.Contains(t, fx.notifier.texts[0], "JNK→IWM")
}

func TestRun_ReplayIsIdempotent(t *testing.T) {
	fx := newFixture(t, boostedMarket())
	ctx := context.Background()

	first, err := fx.runner.Run(ctx, day(2025, 1, 15))
	require.NoError(t, err)
	second, err := fx.runner.Run(ctx, day(2025, 1, 15))
	require.NoError(t, err)

	assert.Equal(t, 0, second.Logged)
	assert.Empty(t, second.Step.Opened)
	assert.Equal(t, first.Step.Metrics, second.Step.Metrics)
	assert.Equal(t, first.Match, second.Match)

	all, err := fx.store.Positions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	sigs, err := fx.store.Signals(ctx, day(2025, 1, 15))
	require.NoError(t, err)
	assert.Len(t, sigs, 1)
	hist, err := fx.store.MetricsHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	// runs is an audit log of invocations
	runs, err := fx.store.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, runs[0].Date, runs[1].Date)
	assert.NotEqual(t, runs[0].RunID, runs[1].RunID)
	assert.ElementsMatch(t, []string{first.RunID, second.RunID}, []string{runs[0].RunID, runs[1].RunID})
}

func TestRun_RejectsEarlierDate(t *testing.T) {
	fx := newFixture(t, boostedMarket())
	ctx := context.Background()

	_, err := fx.runner.Run(ctx, day(2025, 1, 16))
	require.NoError(t, err)

	_, err = fx.runner.Run(ctx, day(2025, 1, 15))
	require.ErrorIs(t, err, model.ErrState)

	all, err := fx.store.Positions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
	runs, err := fx.store.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRun_KillSwitch(t *testing.T) {
	m := boostedMarket()
	m.set("UUP", day(2025, 1, 15), 102)
	fx := newFixture(t, m)
	ctx := context.Background()

	rep, err := fx.runner.Run(ctx, day(2025, 1, 15))
	require.NoError(t, err)
	require.Len(t, rep.Events, 1)
	assert.Equal(t, model.ActionKilled, rep.Events[0].Action)
	assert.Empty(t, rep.Step.Opened)

	all, err := fx.store.Positions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	sigs, err := fx.store.Signals(ctx, day(2025, 1, 15))
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.True(t, sigs[0].Event.IsKilled)
	assert.Equal(t, rep.Match.Regime, sigs[0].Regime)
}

func TestRun_NonTradingDay(t *testing.T) {
	fx := newFixture(t, boostedMarket())
	ctx := context.Background()

	rep, err := fx.runner.Run(ctx, day(2025, 1, 18))
	require.NoError(t, err)
	assert.True(t, rep.Skipped)

	runs, err := fx.store.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Empty(t, fx.notifier.texts)
}

func TestRun_MissingInputAbortsWithoutWrites(t *testing.T) {
	fx := newFixture(t, boostedMarket())
	fx.fetcher.Errs["UUP"] = errors.New("upstream down")
	ctx := context.Background()

	_, err := fx.runner.Run(ctx, day(2025, 1, 15))
	require.ErrorIs(t, err, model.ErrDataUnavailable)

	runs, err := fx.store.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	sigs, err := fx.store.Signals(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestRun_MissingTargetIsDeferred(t *testing.T) {
	fx := newFixture(t, boostedMarket())
	fx.fetcher.Errs["IWM"] = errors.New("upstream down")
	ctx := context.Background()

	rep, err := fx.runner.Run(ctx, day(2025, 1, 15))
	require.NoError(t, err)
	assert.Empty(t, rep.Step.Opened)
	require.Len(t, rep.Step.Missing, 1)
	assert.Contains(t, rep.Text, "IWM")

	// the price shows up later the same day: the replay opens the position
	delete(fx.fetcher.Errs, "IWM")
	rep, err = fx.runner.Run(ctx, day(2025, 1, 15))
	require.NoError(t, err)
	assert.Len(t, rep.Step.Opened, 1)
}

func TestHandleCommand(t *testing.T) {
	fx := newFixture(t, boostedMarket())
	fx.runner.now = func() time.Time { return time.Date(2025, 1, 15, 21, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	assert.Equal(t, "No runs recorded yet.", fx.runner.HandleCommand(ctx, "/status"))
	assert.Contains(t, fx.runner.HandleCommand(ctx, "/positions"), "none")
	assert.Equal(t, helpText, fx.runner.HandleCommand(ctx, "hello"))

	assert.Empty(t, fx.runner.HandleCommand(ctx, "/run"))
	require.Len(t, fx.notifier.texts, 1)

	assert.Contains(t, fx.runner.HandleCommand(ctx, "/status@paperbot"), "2025-01-15")
	assert.Contains(t, fx.runner.HandleCommand(ctx, "/positions"), "JNK_IWM IWM")

	fx.runner.now = func() time.Time { return time.Date(2025, 1, 18, 15, 0, 0, 0, time.UTC) }
	assert.Contains(t, fx.runner.HandleCommand(ctx, "/run"), "not a trading day")
}

func TestTradeDate(t *testing.T) {
	ny := collector.NewYork()
	// 01:00 UTC on the 16th is still the 15th in New York
	assert.Equal(t, day(2025, 1, 15), TradeDate(time.Date(2025, 1, 16, 1, 0, 0, 0, time.UTC), ny))
	assert.Equal(t, day(2025, 1, 16), TradeDate(time.Date(2025, 1, 16, 14, 0, 0, 0, time.UTC), ny))
}
