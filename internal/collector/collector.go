package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/briancarter456546/paper-trading-system/internal/calculator"
	"github.com/briancarter456546/paper-trading-system/internal/calendar"
	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// Signal tickers: triggers feed momentum, targets are traded.
var (
	TriggerSymbols = []string{"JNK", "ANGL", "HYG", "UUP", "PLTM"}
	TargetSymbols  = []string{"IWM", "COPX", "MDY"}
)

// AllSymbols is every series a daily snapshot fetches.
func AllSymbols() []string {
	out := make([]string, 0, len(calculator.FactorSymbols)+len(TriggerSymbols)+len(TargetSymbols))
	out = append(out, calculator.FactorSymbols...)
	out = append(out, TriggerSymbols...)
	out = append(out, TargetSymbols...)
	return out
}

// Options configures a Collector.
type Options struct {
	// LookbackDays is the calendar-day history window fetched per symbol.
	LookbackDays int
	// BreakerFailures trips the circuit after this many consecutive fetch failures.
	BreakerFailures uint32
	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration
}

// Collector orchestrates data fetching and factor computation.
type Collector struct {
	Fetcher  Fetcher
	Calendar calendar.Calendar
	opts     Options
	breaker  *gobreaker.CircuitBreaker
	log      zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, cal calendar.Calendar, opts Options, log zerolog.Logger) *Collector {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 400
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 3
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}
	log = log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger()
	failures := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    fetcher.Name(),
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("fetch circuit state changed")
		},
	})
	return &Collector{Fetcher: fetcher, Calendar: cal, opts: opts, breaker: breaker, log: log}
}

// Snapshot is the market data view for one evaluation date. Bars never extend past Date.
type Snapshot struct {
	Date     time.Time
	Series   map[string][]model.Bar
	Factors  model.FactorVector
	Momenta  map[string]float64
	Missing  map[string]error // symbols whose fetch failed
	Calendar calendar.Calendar
}

// Collect fetches every symbol up to date and computes the factor vector and trigger momenta.
// Missing factor or trigger data is fatal for the run; missing target data is recorded in Missing
// and surfaces later as a per-position DataUnavailableError.
func (c *Collector) Collect(ctx context.Context, date time.Time) (*Snapshot, error) {
	date = model.Day(date)
	from := date.AddDate(0, 0, -c.opts.LookbackDays)

	snap := &Snapshot{
		Date:     date,
		Series:   make(map[string][]model.Bar),
		Momenta:  make(map[string]float64),
		Missing:  make(map[string]error),
		Calendar: c.Calendar,
	}

	for _, sym := range AllSymbols() {
		bars, err := c.fetch(ctx, sym, from, date)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn().Err(err).Str("symbol", sym).Msg("fetch failed")
			snap.Missing[sym] = err
			continue
		}
		snap.Series[sym] = bars
		c.log.Debug().Str("symbol", sym).Int("bars", len(bars)).Msg("fetched")
	}

	aligned, err := snap.aligned(calculator.FactorSymbols)
	if err != nil {
		return nil, err
	}
	if snap.Factors, err = calculator.ComputeFactors(aligned); err != nil {
		return nil, fmt.Errorf("compute factors: %w", err)
	}

	for _, sym := range TriggerSymbols {
		closes, err := snap.closesThrough(sym)
		if err != nil {
			return nil, err
		}
		m, err := calculator.Momentum(closes, calculator.MomentumLookback)
		if err != nil {
			return nil, &model.DataUnavailableError{Ticker: sym, Date: date, Reason: err.Error()}
		}
		snap.Momenta[sym] = m
	}

	return snap, nil
}

func (c *Collector) fetch(ctx context.Context, sym string, from, to time.Time) ([]model.Bar, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.Fetcher.FetchDailyCloses(ctx, sym, from, to)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &model.DataUnavailableError{Ticker: sym, Date: to, Reason: err.Error()}
		}
		return nil, err
	}
	return out.([]model.Bar), nil
}

// Close returns the close of ticker on date. It implements the lifecycle price book.
func (s *Snapshot) Close(ticker string, date time.Time) (float64, error) {
	date = model.Day(date)
	if err, ok := s.Missing[ticker]; ok {
		return 0, &model.DataUnavailableError{Ticker: ticker, Date: date, Reason: err.Error()}
	}
	bars := s.Series[ticker]
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Time.Before(date) })
	if i < len(bars) && bars[i].Time.Equal(date) {
		return bars[i].Close, nil
	}
	return 0, &model.DataUnavailableError{Ticker: ticker, Date: date, Reason: "no close for date"}
}

// closesThrough returns the closes of sym, requiring the last bar to be on the snapshot date.
func (s *Snapshot) closesThrough(sym string) ([]float64, error) {
	if err, ok := s.Missing[sym]; ok {
		return nil, &model.DataUnavailableError{Ticker: sym, Date: s.Date, Reason: err.Error()}
	}
	bars := s.Series[sym]
	if len(bars) == 0 || !bars[len(bars)-1].Time.Equal(s.Date) {
		return nil, &model.DataUnavailableError{Ticker: sym, Date: s.Date, Reason: "latest close not published"}
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes, nil
}

// aligned returns the closes of syms restricted to dates present in every series.
func (s *Snapshot) aligned(syms []string) (map[string][]float64, error) {
	counts := make(map[time.Time]int)
	for _, sym := range syms {
		if _, err := s.closesThrough(sym); err != nil {
			return nil, err
		}
		for _, b := range s.Series[sym] {
			counts[b.Time]++
		}
	}
	out := make(map[string][]float64, len(syms))
	for _, sym := range syms {
		var closes []float64
		for _, b := range s.Series[sym] {
			if counts[b.Time] == len(syms) {
				closes = append(closes, b.Close)
			}
		}
		out[sym] = closes
	}
	return out, nil
}
