package collector

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// Fetcher defines the interface for fetching daily adjusted closes.
type Fetcher interface {
	// FetchDailyCloses returns bars dated within [from, to], oldest first.
	FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error)
	Name() string
}

// StaticFetcher serves fixed bars for development and tests.
type StaticFetcher struct {
	Bars map[string][]model.Bar
	// Errs forces a fetch error for a symbol.
	Errs map[string]error
}

func (s *StaticFetcher) Name() string { return "static" }

func (s *StaticFetcher) FetchDailyCloses(_ context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	if err := s.Errs[symbol]; err != nil {
		return nil, err
	}
	var out []model.Bar
	for _, b := range s.Bars[symbol] {
		if b.Time.Before(from) || b.Time.After(to) {
			continue
		}
		out = append(out, b)
	}
	sortBars(out)
	return out, nil
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

func sortBars(bars []model.Bar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
}

var newYork = loadNewYork()

func loadNewYork() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*60*60)
}

// NewYork is the exchange time zone used to date bars and runs.
func NewYork() *time.Location { return newYork }
