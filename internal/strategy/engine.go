package strategy

import (
	"fmt"
	"math"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// DefaultThreshold is the trigger momentum a signal must strictly exceed.
const DefaultThreshold = 0.015

// Base and boosted position sizes, as a fraction of portfolio value.
const (
	BaseSize    = 0.01
	BoostedSize = 0.015
)

// Signal filter tickers.
const (
	KillTicker    = "UUP"
	BoosterTicker = "PLTM"
)

// Rule describes one base signal: trigger, target and which filters apply.
type Rule struct {
	Name       model.SignalName
	Trigger    string
	Target     string
	KillSwitch bool // UUP momentum above threshold kills the signal
	Booster    bool // PLTM momentum above threshold boosts the size
}

// Signals is the fixed signal table, in evaluation order.
var Signals = []Rule{
	{Name: model.SignalJnkIwm, Trigger: "JNK", Target: "IWM", KillSwitch: true, Booster: true},
	{Name: model.SignalAnglCopx, Trigger: "ANGL", Target: "COPX"},
	{Name: model.SignalHygMdy, Trigger: "HYG", Target: "MDY", KillSwitch: true},
}

// RequiredTickers lists every ticker whose momentum Evaluate reads.
func RequiredTickers() []string {
	return []string{"JNK", "ANGL", "HYG", KillTicker, BoosterTicker}
}

// Evaluator turns trigger momenta into signal events. It is pure and holds no state.
type Evaluator struct {
	Threshold float64
}

// NewEvaluator creates an evaluator; a non-positive threshold selects DefaultThreshold.
func NewEvaluator(threshold float64) Evaluator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Evaluator{Threshold: threshold}
}

// Evaluate applies the default evaluator.
func Evaluate(momenta map[string]float64) ([]model.SignalEvent, error) {
	return NewEvaluator(DefaultThreshold).Evaluate(momenta)
}

// Evaluate returns one event per firing signal, in Signals order.
// Signals whose trigger does not exceed the threshold produce no event.
func (e Evaluator) Evaluate(momenta map[string]float64) ([]model.SignalEvent, error) {
	for _, t := range RequiredTickers() {
		m, ok := momenta[t]
		if !ok {
			return nil, &model.ValidationError{Field: t + " momentum", Reason: "missing"}
		}
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, &model.ValidationError{Field: t + " momentum", Reason: fmt.Sprintf("non-finite value %v", m)}
		}
	}

	killed := momenta[KillTicker] > e.Threshold
	boosted := momenta[BoosterTicker] > e.Threshold

	var events []model.SignalEvent
	for _, rule := range Signals {
		m := momenta[rule.Trigger]
		if !(m > e.Threshold) {
			continue
		}
		ev := model.SignalEvent{
			Name:            rule.Name,
			TriggerTicker:   rule.Trigger,
			TargetTicker:    rule.Target,
			TriggerMomentum: m,
			PositionSizePct: BaseSize,
			Action:          model.ActionEntered,
		}
		switch {
		case rule.KillSwitch && killed:
			ev.IsKilled = true
			ev.Action = model.ActionKilled
			ev.KillReason = fmt.Sprintf("%s momentum %.2f%% > threshold", KillTicker, momenta[KillTicker]*100)
		case rule.Booster && boosted:
			ev.IsBoosted = true
			ev.PositionSizePct = BoostedSize
		}
		events = append(events, ev)
	}
	return events, nil
}
