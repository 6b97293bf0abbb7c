package model

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every typed error below matches exactly one of them with errors.Is.
var (
	ErrConfig          = errors.New("config error")
	ErrValidation      = errors.New("validation error")
	ErrDataUnavailable = errors.New("data unavailable")
	ErrState           = errors.New("illegal state transition")
)

// ConfigError reports a bad or missing configuration or fingerprint source.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() []error { return []error{ErrConfig, e.Err} }

// NewConfigError builds a ConfigError from a formatted reason.
func NewConfigError(source, format string, args ...any) *ConfigError {
	return &ConfigError{Source: source, Err: fmt.Errorf(format, args...)}
}

// ValidationError reports malformed input such as a NaN factor.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DataUnavailableError reports a missing price. It is recoverable on a later run.
type DataUnavailableError struct {
	Ticker string
	Date   time.Time
	Reason string
}

func (e *DataUnavailableError) Error() string {
	msg := fmt.Sprintf("no data for %s", e.Ticker)
	if !e.Date.IsZero() {
		msg += " on " + FormatDate(e.Date)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

// StateError reports an illegal position transition. It indicates a logic defect.
type StateError struct {
	PositionID int64
	From       PositionStatus
	To         PositionStatus
	Reason     string
}

func (e *StateError) Error() string {
	if e.PositionID == 0 && e.From == "" {
		return "illegal state: " + e.Reason
	}
	msg := fmt.Sprintf("position %d: %s -> %s", e.PositionID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *StateError) Is(target error) bool { return target == ErrState }
