package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPFetcher implements Fetcher using the Financial Modeling Prep historical price API.
type FMPFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
}

// NewFMPFetcher creates a new fetcher with optional proxy support.
func NewFMPFetcher(apiKey, proxyURL string, rps float64) *FMPFetcher {
	return &FMPFetcher{
		BaseURL: fmpBaseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (f *FMPFetcher) Name() string { return "fmp" }

// fmpBar is one entry of the historical-price-full response.
type fmpBar struct {
	Date     string   `json:"date"`
	Close    float64  `json:"close"`
	AdjClose *float64 `json:"adjClose"`
}

func (f *FMPFetcher) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	q := url.Values{}
	q.Set("from", model.FormatDate(from))
	q.Set("to", model.FormatDate(to))
	q.Set("apikey", f.APIKey)
	endpoint := fmt.Sprintf("%s/historical-price-full/%s?%s", f.BaseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fmp fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fmp %s: status %d, body: %s", symbol, resp.StatusCode, string(body))
	}

	var payload struct {
		Symbol     string   `json:"symbol"`
		Historical []fmpBar `json:"historical"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fmp decode: %w", err)
	}
	if len(payload.Historical) == 0 {
		return nil, fmt.Errorf("fmp %s: no historical data", symbol)
	}

	bars := make([]model.Bar, 0, len(payload.Historical))
	for _, h := range payload.Historical {
		day, err := model.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("fmp %s: %w", symbol, err)
		}
		c := h.Close
		if h.AdjClose != nil && *h.AdjClose > 0 {
			c = *h.AdjClose
		}
		if c == 0 {
			continue
		}
		bars = append(bars, model.Bar{Time: day, Close: c})
	}
	// Ensure chronological order
	sortBars(bars)
	return bars, nil
}
