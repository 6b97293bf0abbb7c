package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// Returns converts closes to simple period returns.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			out[i-1] = closes[i]/closes[i-1] - 1
		}
	}
	return out
}

// Correlation is the Pearson correlation of the last window points of x and y.
// A constant series yields NaN, which the classifier rejects downstream.
func Correlation(x, y []float64, window int) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return math.NaN()
	}
	if window > 0 && len(x) > window {
		x = x[len(x)-window:]
		y = y[len(y)-window:]
	}
	return stat.Correlation(x, y, nil)
}

// EMA returns the latest exponential moving average of closes with
// alpha = 2/(period+1), seeded with the first close so every bar contributes.
// Padding with period-1 copies of the first close makes the SMA seed equal to it.
func EMA(closes []float64, period int) float64 {
	if len(closes) == 0 {
		return math.NaN()
	}
	if period < 1 {
		period = 1
	}
	padded := make([]float64, period-1, len(closes)+period-1)
	for i := range padded {
		padded[i] = closes[0]
	}
	padded = append(padded, closes...)
	ema := talib.Ema(padded, period)
	return ema[len(ema)-1]
}
