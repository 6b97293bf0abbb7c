package calculator

import (
	"errors"
	"fmt"
)

// MomentumLookback is the signal momentum window in trading days.
const MomentumLookback = 10

// ErrInsufficientData is returned when a series is too short for a calculation.
var ErrInsufficientData = errors.New("not enough data")

// Momentum returns close(t)/close(t-lookback) - 1 over the last lookback+1 closes.
func Momentum(closes []float64, lookback int) (float64, error) {
	if lookback <= 0 {
		return 0, errors.New("lookback must be positive")
	}
	n := len(closes)
	if n < lookback+1 {
		return 0, fmt.Errorf("momentum(%d) over %d closes: %w", lookback, n, ErrInsufficientData)
	}
	past := closes[n-1-lookback]
	if past == 0 {
		return 0, errors.New("momentum: zero base price")
	}
	return closes[n-1]/past - 1, nil
}

// RateOfChange returns the percentage change between the last close and the close `back` positions earlier.
func RateOfChange(closes []float64, back int) (float64, error) {
	n := len(closes)
	if back <= 0 || n < back {
		return 0, fmt.Errorf("rate of change(%d) over %d closes: %w", back, n, ErrInsufficientData)
	}
	base := closes[n-back]
	if base == 0 {
		return 0, errors.New("rate of change: zero base price")
	}
	return (closes[n-1]/base - 1) * 100, nil
}
