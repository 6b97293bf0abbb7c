package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestNYSE_Holidays2025(t *testing.T) {
	cal := NYSE()
	closed := []time.Time{
		d(2025, 1, 1),
		d(2025, 1, 20),
		d(2025, 2, 17),
		d(2025, 4, 18),
		d(2025, 5, 26),
		d(2025, 6, 19),
		d(2025, 7, 4),
		d(2025, 9, 1),
		d(2025, 11, 27),
		d(2025, 12, 25),
	}
	for _, day := range closed {
		assert.False(t, cal.IsTradingDay(day), "%s should be a holiday", day.Format("2006-01-02"))
	}
	assert.True(t, cal.IsTradingDay(d(2025, 1, 21)))
	assert.False(t, cal.IsTradingDay(d(2025, 1, 18)), "saturday")
}

func TestNYSE_ObservedRules(t *testing.T) {
	cal := NYSE()
	// 2021-07-04 was a Sunday, observed Monday 2021-07-05.
	assert.False(t, cal.IsTradingDay(d(2021, 7, 5)))
	// 2022-12-25 was a Sunday, observed Monday 2022-12-26.
	assert.False(t, cal.IsTradingDay(d(2022, 12, 26)))
	// 2022-01-01 was a Saturday and is not observed on Friday 2021-12-31.
	assert.True(t, cal.IsTradingDay(d(2021, 12, 31)))
	// Juneteenth only from 2022.
	assert.True(t, cal.IsTradingDay(d(2021, 6, 18)))
	assert.False(t, cal.IsTradingDay(d(2026, 6, 19)))
	// Good Friday 2024.
	assert.False(t, cal.IsTradingDay(d(2024, 3, 29)))
}

func TestAddTradingDays(t *testing.T) {
	tests := []struct {
		name string
		cal  Calendar
		from time.Time
		n    int
		want time.Time
	}{
		{"weekdays plain week", Weekdays(), d(2025, 1, 15), 5, d(2025, 1, 22)},
		{"nyse skips MLK day", NYSE(), d(2025, 1, 15), 5, d(2025, 1, 23)},
		{"friday entry", Weekdays(), d(2025, 1, 17), 5, d(2025, 1, 24)},
		{"thanksgiving week", NYSE(), d(2025, 11, 24), 5, d(2025, 12, 2)},
		{"one day over weekend", NYSE(), d(2025, 1, 17), 1, d(2025, 1, 21)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cal.AddTradingDays(tt.from, tt.n)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.n, tt.cal.TradingDaysBetween(tt.from, got))
		})
	}
}

func TestAddTradingDays_TruncatesTime(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	from := time.Date(2025, 1, 15, 16, 30, 0, 0, ny)
	assert.Equal(t, d(2025, 1, 22), Weekdays().AddTradingDays(from, 5))
}

func TestWithClosures(t *testing.T) {
	// 2025-01-09 national day of mourning.
	cal := NYSE().WithClosures(d(2025, 1, 9))
	assert.False(t, cal.IsTradingDay(d(2025, 1, 9)))
	assert.True(t, NYSE().IsTradingDay(d(2025, 1, 9)), "base calendar is not mutated")
	assert.Equal(t, d(2025, 1, 15), cal.AddTradingDays(d(2025, 1, 7), 5))
}

func TestNew(t *testing.T) {
	cal, err := New("weekdays")
	require.NoError(t, err)
	assert.Equal(t, "weekdays", cal.Name())

	cal, err = New("")
	require.NoError(t, err)
	assert.Equal(t, "nyse", cal.Name())

	_, err = New("lse")
	assert.Error(t, err)
}
