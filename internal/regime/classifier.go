package regime

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// Params holds the per-factor weights and scales of the distance metric.
// Scales put factors with different units on a comparable footing.
type Params struct {
	Weights model.FactorVector
	Scales  model.FactorVector
}

// DefaultParams returns equal weights and unit-typical scales.
func DefaultParams() Params {
	p := Params{
		Scales: model.FactorVector{
			model.SpyRoc50:    5,
			model.TltRoc50:    5,
			model.IauRoc50:    5,
			model.DbcRoc50:    5,
			model.VixLevel:    5,
			model.VixChange5:  15,
			model.VixChange20: 15,
			model.SpyTltCorr:  0.5,
			model.IauSpyCorr:  0.5,
			model.SpyVs200EMA: 5,
		},
	}
	for i := range p.Weights {
		p.Weights[i] = 1
	}
	return p
}

// WithOverrides returns p with weights and scales replaced by name.
func (p Params) WithOverrides(weights, scales map[string]float64) (Params, error) {
	for name, w := range weights {
		f, ok := model.ParseFactor(name)
		if !ok {
			return p, model.NewConfigError("classifier.weights", "unknown factor %q", name)
		}
		p.Weights[f] = w
	}
	for name, s := range scales {
		f, ok := model.ParseFactor(name)
		if !ok {
			return p, model.NewConfigError("classifier.scales", "unknown factor %q", name)
		}
		p.Scales[f] = s
	}
	return p, p.Validate()
}

// Validate requires every weight and scale to be positive and finite.
func (p Params) Validate() error {
	for i := 0; i < model.FactorCount; i++ {
		f := model.Factor(i)
		if w := p.Weights[i]; !(w > 0) || math.IsInf(w, 0) {
			return model.NewConfigError("classifier.weights", "%s must be positive, got %v", f, w)
		}
		if s := p.Scales[i]; !(s > 0) || math.IsInf(s, 0) {
			return model.NewConfigError("classifier.scales", "%s must be positive, got %v", f, s)
		}
	}
	return nil
}

// Classifier matches a factor vector to the nearest regime fingerprint.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	fingerprints *Fingerprints
	weights      []float64
	scales       []float64
	weightSum    float64
	log          zerolog.Logger
}

// NewClassifier creates a classifier over fp using the distance parameters p.
func NewClassifier(fp *Fingerprints, p Params, log zerolog.Logger) (*Classifier, error) {
	if fp == nil || fp.Len() == 0 {
		return nil, model.NewConfigError("fingerprints", "empty fingerprint set")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{
		fingerprints: fp,
		weights:      p.Weights.Slice(),
		scales:       p.Scales.Slice(),
		weightSum:    floats.Sum(p.Weights[:]),
		log:          log.With().Str("component", "regime").Logger(),
	}, nil
}

// Distance is the normalized weighted Euclidean distance between x and ref:
// sqrt(sum(w*((x-ref)/s)^2) / sum(w)).
func (c *Classifier) Distance(x, ref model.FactorVector) float64 {
	d := make([]float64, model.FactorCount)
	floats.SubTo(d, x[:], ref[:])
	floats.Div(d, c.scales)
	floats.Mul(d, d)
	return math.Sqrt(floats.Dot(c.weights, d) / c.weightSum)
}

// Confidence maps a distance to (0, 1]; it is 1 at distance 0 and strictly decreasing.
func Confidence(distance float64) float64 {
	return 1 / (1 + distance)
}

// Classify returns the regime whose fingerprint is nearest to current.
// Ties go to the lexicographically smaller regime name.
func (c *Classifier) Classify(current model.FactorVector) (model.RegimeMatch, error) {
	if err := current.Validate(); err != nil {
		return model.RegimeMatch{}, err
	}

	all := c.fingerprints.All()
	ranking := make([]model.RegimeScore, len(all))
	for i, fp := range all {
		d := c.Distance(current, fp.Reference)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return model.RegimeMatch{}, &model.ValidationError{
				Field:  "factor vector",
				Reason: fmt.Sprintf("distance to %s is not finite", fp.Regime),
			}
		}
		ranking[i] = model.RegimeScore{Regime: fp.Regime, Distance: d, Confidence: Confidence(d)}
	}
	// fingerprints are sorted by name, so a stable sort keeps ties in name order
	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].Distance < ranking[j].Distance })

	best := ranking[0]
	c.log.Debug().
		Str("regime", string(best.Regime)).
		Float64("confidence", best.Confidence).
		Float64("distance", best.Distance).
		Msg("classified")

	return model.RegimeMatch{
		Regime:     best.Regime,
		Confidence: best.Confidence,
		Distance:   best.Distance,
		Ranking:    ranking,
	}, nil
}
