package regime

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// syntheticRefs places each regime on its own axis so distances are easy to reason about.
func syntheticRefs() map[model.Regime]model.FactorVector {
	refs := make(map[model.Regime]model.FactorVector, len(model.Regimes))
	for i, r := range model.Regimes {
		var v model.FactorVector
		v[i] = 10
		refs[r] = v
	}
	return refs
}

func newTestClassifier(t *testing.T, refs map[model.Regime]model.FactorVector) *Classifier {
	t.Helper()
	fp, err := NewFingerprints(refs)
	require.NoError(t, err)
	c, err := NewClassifier(fp, unitParams(), zerolog.Nop())
	require.NoError(t, err)
	return c
}

func unitParams() Params {
	p := DefaultParams()
	for i := range p.Scales {
		p.Scales[i] = 1
	}
	return p
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFingerprints_ShippedFile(t *testing.T) {
	fp, err := LoadFingerprints(filepath.Join("..", "..", "configs", "regime_fingerprints.yaml"))
	require.NoError(t, err)
	assert.Equal(t, len(model.Regimes), fp.Len())

	all := fp.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Regime, all[i].Regime)
	}
	ref, ok := fp.Reference(model.RegimeGoldilocks)
	require.True(t, ok)
	assert.Equal(t, 12.5, ref[model.VixLevel])
}

func TestLoadFingerprints_JSON(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"regimes": {`)
	for i, r := range model.Regimes {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`"` + string(r) + `": {`)
		for j, n := range model.FactorNames() {
			if j > 0 {
				b.WriteString(",")
			}
			b.WriteString(`"` + n + `": 1.5`)
		}
		b.WriteString("}")
	}
	b.WriteString("}}")

	fp, err := LoadFingerprints(writeFile(t, "fp.json", b.String()))
	require.NoError(t, err)
	assert.Equal(t, 8, fp.Len())
}

func TestLoadFingerprints_Errors(t *testing.T) {
	full := func(skipRegime model.Regime, extra string, dropFactor string) string {
		var b strings.Builder
		b.WriteString("regimes:\n")
		for _, r := range model.Regimes {
			if r == skipRegime {
				continue
			}
			b.WriteString("  " + string(r) + ":\n")
			for _, n := range model.FactorNames() {
				if n == dropFactor {
					continue
				}
				b.WriteString("    " + n + ": 1\n")
			}
			b.WriteString(extra)
		}
		return b.String()
	}

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"malformed", "regimes: [", ""},
		{"empty", "regimes: {}\n", "no regimes"},
		{"missing regime", full(model.RegimeGoldilocks, "", ""), "want 8 regimes"},
		{"unknown regime", full("", "", "") + "  BULL_MARKET:\n    spy_roc_50: 1\n", "unknown regime"},
		{"missing factor", full("", "", "vix_level"), "missing factors: vix_level"},
		{"unknown factor", full("", "    moon_phase: 1\n", ""), "unknown factor"},
		{"nan", strings.Replace(full("", "", ""), "vix_level: 1", "vix_level: .nan", 1), "not finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFingerprints(writeFile(t, "fp.yaml", tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrConfig)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}

	_, err := LoadFingerprints(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestClassify_ExactMatch(t *testing.T) {
	refs := syntheticRefs()
	c := newTestClassifier(t, refs)

	for _, r := range model.Regimes {
		m, err := c.Classify(refs[r])
		require.NoError(t, err)
		assert.Equal(t, r, m.Regime)
		assert.Equal(t, 1.0, m.Confidence)
		assert.Equal(t, 0.0, m.Distance)
		assert.Len(t, m.Ranking, len(model.Regimes))
	}
}

func TestClassify_TieBreaksByName(t *testing.T) {
	c := newTestClassifier(t, syntheticRefs())

	// the origin is equidistant from every axis-aligned reference
	m, err := c.Classify(model.FactorVector{})
	require.NoError(t, err)
	assert.Equal(t, model.Regimes[0], m.Regime)
	assert.Equal(t, model.RegimeChoppyTransitional, m.Regime)
	for i := 1; i < len(m.Ranking); i++ {
		assert.Less(t, m.Ranking[i-1].Regime, m.Ranking[i].Regime)
	}
}

func TestClassify_RejectsNonFinite(t *testing.T) {
	c := newTestClassifier(t, syntheticRefs())

	for _, x := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		var v model.FactorVector
		v[model.SpyTltCorr] = x
		_, err := c.Classify(v)
		assert.ErrorIs(t, err, model.ErrValidation)
	}

	// finite but far enough out that the squared distance overflows
	var v model.FactorVector
	v[model.VixLevel] = 1e200
	_, err := c.Classify(v)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "not finite")
}

func TestClassify_ConfidenceRangeAndRanking(t *testing.T) {
	fp, err := LoadFingerprints(filepath.Join("..", "..", "configs", "regime_fingerprints.yaml"))
	require.NoError(t, err)
	c, err := NewClassifier(fp, DefaultParams(), zerolog.Nop())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var v model.FactorVector
		for j := range v {
			v[j] = rng.NormFloat64() * 20
		}
		m, err := c.Classify(v)
		require.NoError(t, err)

		_, ok := fp.Reference(m.Regime)
		assert.True(t, ok)
		assert.Greater(t, m.Confidence, 0.0)
		assert.LessOrEqual(t, m.Confidence, 1.0)
		assert.Equal(t, m.Ranking[0].Regime, m.Regime)
		for k := 1; k < len(m.Ranking); k++ {
			assert.LessOrEqual(t, m.Ranking[k].Confidence, m.Ranking[k-1].Confidence)
		}
	}
}

func TestClassify_ConfidenceDecreasesWithDistance(t *testing.T) {
	refs := syntheticRefs()
	c := newTestClassifier(t, refs)
	ref := refs[model.RegimeGoldilocks]

	prev := 2.0
	for step := 0; step < 20; step++ {
		v := ref
		v[model.SpyVs200EMA] += float64(step) * 0.25
		d := c.Distance(v, ref)
		conf := Confidence(d)
		assert.LessOrEqual(t, conf, prev)
		prev = conf
	}
}

func TestDistance_WeightsAndScales(t *testing.T) {
	fp, err := NewFingerprints(syntheticRefs())
	require.NoError(t, err)

	p := unitParams()
	c, err := NewClassifier(fp, p, zerolog.Nop())
	require.NoError(t, err)

	var a, b model.FactorVector
	b[0] = 3
	b[1] = 4
	// sqrt((9+16)/10)
	assert.InDelta(t, math.Sqrt(2.5), c.Distance(a, b), 1e-12)

	p.Weights[0] = 0
	_, err = NewClassifier(fp, p, zerolog.Nop())
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestParams_WithOverrides(t *testing.T) {
	p, err := DefaultParams().WithOverrides(
		map[string]float64{"vix_level": 2},
		map[string]float64{"spy_tlt_corr": 0.25},
	)
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Weights[model.VixLevel])
	assert.Equal(t, 0.25, p.Scales[model.SpyTltCorr])

	_, err = DefaultParams().WithOverrides(map[string]float64{"moon_phase": 1}, nil)
	assert.ErrorIs(t, err, model.ErrConfig)

	_, err = DefaultParams().WithOverrides(nil, map[string]float64{"vix_level": -1})
	assert.ErrorIs(t, err, model.ErrConfig)
}
