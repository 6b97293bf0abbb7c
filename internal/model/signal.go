package model

import "fmt"

// SignalName identifies one of the three base signals.
type SignalName string

const (
	SignalJnkIwm   SignalName = "JNK_IWM"
	SignalAnglCopx SignalName = "ANGL_COPX"
	SignalHygMdy   SignalName = "HYG_MDY"
)

// ParseSignalName validates a signal name.
func ParseSignalName(s string) (SignalName, error) {
	switch SignalName(s) {
	case SignalJnkIwm, SignalAnglCopx, SignalHygMdy:
		return SignalName(s), nil
	}
	return "", fmt.Errorf("unknown signal %q", s)
}

// Action is what the system did with a fired signal.
type Action string

const (
	ActionEntered Action = "ENTERED"
	ActionKilled  Action = "KILLED"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionEntered, ActionKilled:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// SignalEvent is one fired signal for a trading day.
type SignalEvent struct {
	Name            SignalName
	TriggerTicker   string
	TargetTicker    string
	TriggerMomentum float64
	IsKilled        bool
	KillReason      string
	IsBoosted       bool
	PositionSizePct float64 // fraction of portfolio value, 0.01 = 1%
	Action          Action
}
