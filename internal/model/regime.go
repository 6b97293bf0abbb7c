package model

import "fmt"

// Regime is one of the eight fixed market-condition classes.
type Regime string

const (
	RegimeRiskOffLiquidation  Regime = "RISK_OFF_LIQUIDATION"
	RegimeRiskOffDeflationary Regime = "RISK_OFF_DEFLATIONARY"
	RegimeRiskOffStagflation  Regime = "RISK_OFF_STAGFLATION"
	RegimeRiskOnGrowth        Regime = "RISK_ON_GROWTH"
	RegimeRiskOnInflation     Regime = "RISK_ON_INFLATION"
	RegimeGoldilocks          Regime = "GOLDILOCKS"
	RegimeChoppyTransitional  Regime = "CHOPPY_TRANSITIONAL"
	RegimeDebasementRally     Regime = "DEBASEMENT_RALLY"
)

// Regimes lists all regimes in lexicographic order.
var Regimes = []Regime{
	RegimeChoppyTransitional,
	RegimeDebasementRally,
	RegimeGoldilocks,
	RegimeRiskOffDeflationary,
	RegimeRiskOffLiquidation,
	RegimeRiskOffStagflation,
	RegimeRiskOnGrowth,
	RegimeRiskOnInflation,
}

// RegimeGroup is the coarse risk bucket of a regime.
type RegimeGroup string

const (
	GroupRiskOff      RegimeGroup = "RISK_OFF"
	GroupRiskOn       RegimeGroup = "RISK_ON"
	GroupTransitional RegimeGroup = "TRANSITIONAL"
)

// ParseRegime validates a regime name.
func ParseRegime(s string) (Regime, error) {
	for _, r := range Regimes {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown regime %q", s)
}

// Group returns the risk bucket of r.
func (r Regime) Group() RegimeGroup {
	switch r {
	case RegimeRiskOffLiquidation, RegimeRiskOffDeflationary, RegimeRiskOffStagflation:
		return GroupRiskOff
	case RegimeRiskOnGrowth, RegimeRiskOnInflation, RegimeGoldilocks:
		return GroupRiskOn
	default:
		return GroupTransitional
	}
}

// RegimeScore is one regime's confidence for the day.
type RegimeScore struct {
	Regime     Regime
	Distance   float64
	Confidence float64
}

// RegimeMatch is the classifier's verdict for one trading day.
type RegimeMatch struct {
	Regime     Regime
	Confidence float64 // (0, 1]
	Distance   float64
	Ranking    []RegimeScore // best first
}
