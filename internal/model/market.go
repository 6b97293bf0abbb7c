package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of a trading date.
const DateLayout = "2006-01-02"

// Bar is one daily close for a symbol. Close is the split/dividend adjusted close.
type Bar struct {
	Time  time.Time
	Close float64
}

// Day truncates t to its calendar date at UTC midnight, keeping the wall-clock date of t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
