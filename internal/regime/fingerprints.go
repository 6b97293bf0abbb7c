package regime

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// Fingerprint is the reference factor vector of one regime.
type Fingerprint struct {
	Regime    model.Regime
	Reference model.FactorVector
}

// Fingerprints is the immutable set of regime references, one per regime, sorted by name.
type Fingerprints struct {
	list []Fingerprint
}

// fingerprintFile is the on-disk layout. JSON is valid YAML, so both formats load.
type fingerprintFile struct {
	Regimes map[string]map[string]float64 `yaml:"regimes"`
}

// LoadFingerprints reads and validates the fingerprint file at path.
func LoadFingerprints(path string) (*Fingerprints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ConfigError{Source: path, Err: err}
	}
	return ParseFingerprints(path, data)
}

// ParseFingerprints decodes fingerprint data; source names the origin in errors.
func ParseFingerprints(source string, data []byte) (*Fingerprints, error) {
	var f fingerprintFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &model.ConfigError{Source: source, Err: err}
	}
	if len(f.Regimes) == 0 {
		return nil, model.NewConfigError(source, "no regimes defined")
	}

	refs := make(map[model.Regime]model.FactorVector, len(f.Regimes))
	for name, factors := range f.Regimes {
		r, err := model.ParseRegime(name)
		if err != nil {
			return nil, &model.ConfigError{Source: source, Err: err}
		}
		v, err := parseReference(factors)
		if err != nil {
			return nil, model.NewConfigError(source, "regime %s: %v", name, err)
		}
		refs[r] = v
	}
	fp, err := NewFingerprints(refs)
	if err != nil {
		return nil, &model.ConfigError{Source: source, Err: err}
	}
	return fp, nil
}

func parseReference(factors map[string]float64) (model.FactorVector, error) {
	var v model.FactorVector
	seen := make(map[model.Factor]bool, model.FactorCount)
	for name, x := range factors {
		f, ok := model.ParseFactor(name)
		if !ok {
			return v, fmt.Errorf("unknown factor %q", name)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return v, fmt.Errorf("factor %s is not finite", name)
		}
		v[f] = x
		seen[f] = true
	}
	if len(seen) != model.FactorCount {
		var missing []string
		for _, n := range model.FactorNames() {
			f, _ := model.ParseFactor(n)
			if !seen[f] {
				missing = append(missing, n)
			}
		}
		return v, fmt.Errorf("missing factors: %s", strings.Join(missing, ", "))
	}
	return v, nil
}

// NewFingerprints builds a fingerprint set. Every regime must be present exactly once.
func NewFingerprints(refs map[model.Regime]model.FactorVector) (*Fingerprints, error) {
	if len(refs) != len(model.Regimes) {
		return nil, fmt.Errorf("want %d regimes, got %d", len(model.Regimes), len(refs))
	}
	list := make([]Fingerprint, 0, len(refs))
	for _, r := range model.Regimes {
		v, ok := refs[r]
		if !ok {
			return nil, fmt.Errorf("regime %s missing", r)
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("regime %s: %w", r, err)
		}
		list = append(list, Fingerprint{Regime: r, Reference: v})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Regime < list[j].Regime })
	return &Fingerprints{list: list}, nil
}

// Len returns the number of fingerprints.
func (f *Fingerprints) Len() int { return len(f.list) }

// All returns a copy of the fingerprints, sorted by regime name.
func (f *Fingerprints) All() []Fingerprint {
	out := make([]Fingerprint, len(f.list))
	copy(out, f.list)
	return out
}

// Reference returns the reference vector of r.
func (f *Fingerprints) Reference(r model.Regime) (model.FactorVector, bool) {
	for _, fp := range f.list {
		if fp.Regime == r {
			return fp.Reference, true
		}
	}
	return model.FactorVector{}, false
}
