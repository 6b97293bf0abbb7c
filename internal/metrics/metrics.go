// Package metrics exposes run and portfolio gauges to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// Run results.
const (
	ResultOK      = "ok"
	ResultSkipped = "skipped"
	ResultError   = "error"
)

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	lastRun          prometheus.Gauge
	signals          *prometheus.CounterVec
	positionsOpened  prometheus.Counter
	positionsClosed  prometheus.Counter
	pricesMissing    prometheus.Counter
	openPositions    prometheus.Gauge
	totalTrades      prometheus.Gauge
	totalPnL         prometheus.Gauge
	winRate          prometheus.Gauge
	regimeConfidence *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrader_runs_total",
			Help: "Daily runs by result",
		}, []string{"result"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "papertrader_run_duration_seconds",
			Help:    "Wall time of a daily run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "papertrader_last_run_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrader_signals_total",
			Help: "Fired signals by name and action",
		}, []string{"signal", "action"}),
		positionsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "papertrader_positions_opened_total",
			Help: "Paper positions opened",
		}),
		positionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "papertrader_positions_closed_total",
			Help: "Paper positions closed",
		}),
		pricesMissing: f.NewCounter(prometheus.CounterOpts{
			Name: "papertrader_prices_missing_total",
			Help: "Entries or exits deferred for lack of a close",
		}),
		openPositions: f.NewGauge(prometheus.GaugeOpts{
			Name: "papertrader_open_positions",
			Help: "Currently open paper positions",
		}),
		totalTrades: f.NewGauge(prometheus.GaugeOpts{
			Name: "papertrader_closed_trades",
			Help: "Closed paper trades to date",
		}),
		totalPnL: f.NewGauge(prometheus.GaugeOpts{
			Name: "papertrader_realized_pnl",
			Help: "Cumulative realized P&L in account currency",
		}),
		winRate: f.NewGauge(prometheus.GaugeOpts{
			Name: "papertrader_win_rate",
			Help: "Fraction of closed trades with positive P&L",
		}),
		regimeConfidence: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "papertrader_regime_confidence",
			Help: "Classifier confidence per regime for the last run",
		}, []string{"regime", "group"}),
	}
}

// ObserveRun records the outcome and duration of a run.
func (m *Metrics) ObserveRun(result string, elapsed time.Duration, finished time.Time) {
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	if result == ResultOK {
		m.lastRun.Set(float64(finished.Unix()))
	}
}

// ObserveSignals counts newly logged signal events.
func (m *Metrics) ObserveSignals(events []model.SignalEvent) {
	for _, ev := range events {
		m.signals.WithLabelValues(string(ev.Name), string(ev.Action)).Inc()
	}
}

// ObserveLifecycle records position changes and the cumulative snapshot.
func (m *Metrics) ObserveLifecycle(opened, closed, missing int, dm model.DailyMetrics) {
	m.positionsOpened.Add(float64(opened))
	m.positionsClosed.Add(float64(closed))
	m.pricesMissing.Add(float64(missing))
	m.openPositions.Set(float64(dm.OpenPositions))
	m.totalTrades.Set(float64(dm.TotalTrades))
	m.totalPnL.Set(dm.TotalPnL)
	m.winRate.Set(dm.WinRate)
}

// ObserveRegime publishes the confidence of every regime.
func (m *Metrics) ObserveRegime(match model.RegimeMatch) {
	m.regimeConfidence.Reset()
	for _, s := range match.Ranking {
		m.regimeConfidence.WithLabelValues(string(s.Regime), string(s.Regime.Group())).Set(s.Confidence)
	}
}
