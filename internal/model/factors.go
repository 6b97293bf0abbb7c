package model

import (
	"fmt"
	"math"
)

// FactorCount is the number of market factors in a FactorVector.
const FactorCount = 10

// Factor indexes into a FactorVector.
type Factor int

const (
	SpyRoc50 Factor = iota
	TltRoc50
	IauRoc50
	DbcRoc50
	VixLevel
	VixChange5
	VixChange20
	SpyTltCorr
	IauSpyCorr
	SpyVs200EMA
)

var factorNames = [FactorCount]string{
	"spy_roc_50",
	"tlt_roc_50",
	"iau_roc_50",
	"dbc_roc_50",
	"vix_level",
	"vix_change_5",
	"vix_change_20",
	"spy_tlt_corr",
	"iau_spy_corr",
	"spy_vs_200ema",
}

func (f Factor) String() string {
	if f < 0 || int(f) >= FactorCount {
		return fmt.Sprintf("factor(%d)", int(f))
	}
	return factorNames[f]
}

// FactorNames returns the factor names in vector order.
func FactorNames() []string {
	out := make([]string, FactorCount)
	copy(out, factorNames[:])
	return out
}

// ParseFactor maps a factor name to its index.
func ParseFactor(name string) (Factor, bool) {
	for i, n := range factorNames {
		if n == name {
			return Factor(i), true
		}
	}
	return 0, false
}

// FactorVector is the ordered tuple of the ten daily market factors.
// Momentum and VIX change factors are percentages, correlations are in [-1, 1].
type FactorVector [FactorCount]float64

// Get returns the value of factor f.
func (v FactorVector) Get(f Factor) float64 { return v[f] }

// Slice returns a copy of the vector as a slice.
func (v FactorVector) Slice() []float64 {
	out := make([]float64, FactorCount)
	copy(out, v[:])
	return out
}

// Map returns the vector keyed by factor name.
func (v FactorVector) Map() map[string]float64 {
	out := make(map[string]float64, FactorCount)
	for i, n := range factorNames {
		out[n] = v[i]
	}
	return out
}

// Validate rejects vectors with NaN or infinite components.
func (v FactorVector) Validate() error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &ValidationError{Field: factorNames[i], Reason: fmt.Sprintf("non-finite value %v", x)}
		}
	}
	return nil
}
