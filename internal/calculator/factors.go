package calculator

import (
	"fmt"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// Regime input symbols.
const (
	SymbolSPY = "SPY"
	SymbolTLT = "TLT"
	SymbolIAU = "IAU"
	SymbolDBC = "DBC"
	SymbolVIX = "^VIX"
)

// FactorSymbols are the series needed to compute a FactorVector.
var FactorSymbols = []string{SymbolSPY, SymbolTLT, SymbolIAU, SymbolDBC, SymbolVIX}

const (
	// MinFactorHistory is the fewest aligned closes accepted for factor computation.
	MinFactorHistory = 60
	rocWindow        = 50
	corrWindow       = 20
	emaPeriod        = 200
)

// ComputeFactors builds the daily FactorVector from date-aligned close series.
// Every series must have the same length and end on the evaluation date.
func ComputeFactors(closes map[string][]float64) (model.FactorVector, error) {
	var v model.FactorVector

	n := -1
	for _, sym := range FactorSymbols {
		s, ok := closes[sym]
		if !ok || len(s) == 0 {
			return v, &model.DataUnavailableError{Ticker: sym, Reason: "series missing"}
		}
		if n >= 0 && len(s) != n {
			return v, fmt.Errorf("factor series %s has %d closes, want %d", sym, len(s), n)
		}
		n = len(s)
	}
	if n < MinFactorHistory {
		return v, &model.DataUnavailableError{
			Ticker: SymbolSPY,
			Reason: fmt.Sprintf("need %d aligned closes, got %d", MinFactorHistory, n),
		}
	}

	spy, tlt, iau, dbc, vix := closes[SymbolSPY], closes[SymbolTLT], closes[SymbolIAU], closes[SymbolDBC], closes[SymbolVIX]

	var err error
	rocs := []struct {
		f      model.Factor
		series []float64
	}{
		{model.SpyRoc50, spy},
		{model.TltRoc50, tlt},
		{model.IauRoc50, iau},
		{model.DbcRoc50, dbc},
	}
	for _, r := range rocs {
		if v[r.f], err = RateOfChange(r.series, rocWindow); err != nil {
			return v, fmt.Errorf("%s: %w", r.f, err)
		}
	}

	v[model.VixLevel] = vix[n-1]
	if v[model.VixChange5], err = RateOfChange(vix, 5); err != nil {
		return v, fmt.Errorf("%s: %w", model.VixChange5, err)
	}
	if v[model.VixChange20], err = RateOfChange(vix, 20); err != nil {
		return v, fmt.Errorf("%s: %w", model.VixChange20, err)
	}

	spyRet, tltRet, iauRet := Returns(spy), Returns(tlt), Returns(iau)
	v[model.SpyTltCorr] = Correlation(spyRet, tltRet, corrWindow)
	v[model.IauSpyCorr] = Correlation(iauRet, spyRet, corrWindow)

	ema := EMA(spy, emaPeriod)
	v[model.SpyVs200EMA] = (spy[n-1]/ema - 1) * 100

	return v, nil
}
