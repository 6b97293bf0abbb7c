// Package calendar provides the trading-day calendars used for holding periods.
package calendar

import (
	"fmt"
	"time"
)

// Calendar answers trading-day questions for whole dates. Times are truncated to their date.
type Calendar interface {
	Name() string
	IsTradingDay(d time.Time) bool
	// AddTradingDays returns the n-th trading day after d (n >= 1).
	AddTradingDays(d time.Time, n int) time.Time
	// TradingDaysBetween counts trading days in (from, to].
	TradingDaysBetween(from, to time.Time) int
}

// Rules is a weekend-aware calendar with a holiday predicate and explicit closures.
type Rules struct {
	name     string
	holiday  func(time.Time) bool
	closures map[time.Time]struct{}
}

// Weekdays returns a calendar where every Monday-Friday is a trading day.
func Weekdays() *Rules {
	return &Rules{name: "weekdays", holiday: func(time.Time) bool { return false }}
}

// NYSE returns the New York Stock Exchange calendar (full-day closures only).
func NYSE() *Rules {
	return &Rules{name: "nyse", holiday: isNYSEHoliday}
}

// New returns the calendar registered under name.
func New(name string) (*Rules, error) {
	switch name {
	case "", "nyse":
		return NYSE(), nil
	case "weekdays":
		return Weekdays(), nil
	}
	return nil, fmt.Errorf("unknown calendar %q", name)
}

// WithClosures adds unscheduled full-day closures (e.g. national days of mourning).
func (r *Rules) WithClosures(dates ...time.Time) *Rules {
	out := &Rules{name: r.name, holiday: r.holiday, closures: make(map[time.Time]struct{}, len(r.closures)+len(dates))}
	for d := range r.closures {
		out.closures[d] = struct{}{}
	}
	for _, d := range dates {
		out.closures[dateOf(d)] = struct{}{}
	}
	return out
}

func (r *Rules) Name() string { return r.name }

func (r *Rules) IsTradingDay(d time.Time) bool {
	d = dateOf(d)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if _, closed := r.closures[d]; closed {
		return false
	}
	return !r.holiday(d)
}

func (r *Rules) AddTradingDays(d time.Time, n int) time.Time {
	d = dateOf(d)
	for n > 0 {
		d = d.AddDate(0, 0, 1)
		if r.IsTradingDay(d) {
			n--
		}
	}
	return d
}

func (r *Rules) TradingDaysBetween(from, to time.Time) int {
	from, to = dateOf(from), dateOf(to)
	count := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if r.IsTradingDay(d) {
			count++
		}
	}
	return count
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
