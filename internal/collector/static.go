package collector

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// LoadStaticFetcher reads closes from a YAML or JSON file of the form
//
//	SPY:
//	  2025-01-14: 581.2
//	  2025-01-15: 590.1
func LoadStaticFetcher(path string) (*StaticFetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewConfigError(path, "read static bars: %w", err)
	}
	var raw map[string]map[string]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, model.NewConfigError(path, "parse static bars: %w", err)
	}

	f := &StaticFetcher{Bars: make(map[string][]model.Bar, len(raw))}
	for sym, closes := range raw {
		bars := make([]model.Bar, 0, len(closes))
		for ds, px := range closes {
			d, err := model.ParseDate(ds)
			if err != nil {
				return nil, model.NewConfigError(path, "%s: %w", sym, err)
			}
			if px <= 0 {
				return nil, model.NewConfigError(path, "%s %s: close must be positive", sym, ds)
			}
			bars = append(bars, model.Bar{Time: d, Close: px})
		}
		sortBars(bars)
		f.Bars[sym] = bars
	}
	return f, nil
}
