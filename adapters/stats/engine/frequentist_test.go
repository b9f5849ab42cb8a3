package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/design"
	"github.com/axekar/Demodigi/domain/effects"
	"github.com/axekar/Demodigi/domain/stats"
	"github.com/axekar/Demodigi/internal/testkit"
	"github.com/axekar/Demodigi/ports"
)

func frequentistConfig() Config {
	return Config{
		Strategy: Frequentist,
		Family:   effects.Continuous,
		Level:    0.95,
		Alpha:    0.05,
	}
}

func mustEngine(t *testing.T, cfg Config) ports.Analyzer {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestNew_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown strategy", func(c *Config) { c.Strategy = "fisherian" }},
		{"unknown family", func(c *Config) { c.Family = "poisson" }},
		{"level out of range", func(c *Config) { c.Level = 1 }},
		{"alpha out of range", func(c *Config) { c.Alpha = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := frequentistConfig()
			tc.mutate(&cfg)
			_, err := New(cfg)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}

func TestFrequentist_DetectsStrongEffect(t *testing.T) {
	d := testkit.TwoByTwo(t)
	// Half a noise sd on 400 participants: roughly five standard
	// errors, detection is essentially certain.
	ds := testkit.SimulatedDataset(t, d, testkit.ContinuousSpec(0.5), 400, 1)

	res, err := mustEngine(t, frequentistConfig()).Analyze(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, string(Frequentist), res.Strategy)

	eff, ok := res.Effect(stats.Term("format", "interactive"))
	require.True(t, ok)
	assert.True(t, eff.Detected)
	assert.True(t, eff.IntervalDefined)
	assert.InDelta(t, 0.5, eff.Estimate, 0.3)
	assert.Less(t, eff.PValue, 0.05)
	assert.Less(t, eff.Lower, eff.Estimate)
	assert.Greater(t, eff.Upper, eff.Estimate)

	// The untouched factor's estimate stays near zero.
	null, ok := res.Effect(stats.Term("support", "mentor"))
	require.True(t, ok)
	assert.InDelta(t, 0, null.Estimate, 0.4)
}

func TestFrequentist_NullCalibration(t *testing.T) {
	if testing.Short() {
		t.Skip("monte carlo")
	}
	d := testkit.TwoByTwo(t)
	eng := mustEngine(t, frequentistConfig())

	// With no true effect the detection rate must track alpha.
	detections := 0
	const trials = 200
	for seed := int64(0); seed < trials; seed++ {
		ds := testkit.SimulatedDataset(t, d, testkit.ContinuousSpec(0), 80, seed)
		res, err := eng.Analyze(context.Background(), ds)
		require.NoError(t, err)
		eff, ok := res.Effect(stats.Term("format", "interactive"))
		require.True(t, ok)
		if eff.Detected {
			detections++
		}
	}
	rate := float64(detections) / trials
	assert.Greater(t, rate, 0.001)
	assert.Less(t, rate, 0.15)
}

func TestFrequentist_InteractionContrast(t *testing.T) {
	d := testkit.TwoByTwo(t)
	spec := testkit.ContinuousSpec(0.3)
	spec.Interactions = []effects.Interaction{
		{FactorA: "format", LevelA: "interactive", FactorB: "support", LevelB: "mentor", Effect: 1},
	}
	ds := testkit.SimulatedDataset(t, d, spec, 400, 1)

	cfg := frequentistConfig()
	cfg.Interactions = [][2]string{{"format", "support"}}
	res, err := mustEngine(t, cfg).Analyze(context.Background(), ds)
	require.NoError(t, err)

	term := stats.InteractionTerm("format", "interactive", "support", "mentor")
	eff, ok := res.Effect(term)
	require.True(t, ok)
	assert.True(t, eff.Detected)
	assert.InDelta(t, 1, eff.Estimate, 0.6)
}

func TestFrequentist_DegenerateVariance(t *testing.T) {
	d := testkit.TwoByTwo(t)
	ds := dataset.New(d)
	for i := 0; i < 8; i++ {
		require.NoError(t, ds.Append(dataset.Participant{
			ID:        string(rune('a' + i)),
			Condition: d.ConditionAt(i % 4),
		}))
		require.NoError(t, ds.SetOutcome(i, 3)) // every outcome identical
	}
	ds.Freeze()

	res, err := mustEngine(t, frequentistConfig()).Analyze(context.Background(), ds)
	require.NoError(t, err)
	for _, eff := range res.Effects {
		assert.False(t, eff.IntervalDefined, "term %s", eff.Term)
		assert.False(t, eff.Detected)
		assert.True(t, math.IsNaN(eff.PValue))
		assert.Equal(t, 0.0, eff.Estimate)
	}
}

func TestAnalyze_Prechecks(t *testing.T) {
	d := testkit.TwoByTwo(t)
	eng := mustEngine(t, frequentistConfig())
	ctx := context.Background()

	t.Run("unfrozen", func(t *testing.T) {
		ds := dataset.New(d)
		_, err := eng.Analyze(ctx, ds)
		assert.True(t, core.IsConfigurationError(err))
	})

	t.Run("empty", func(t *testing.T) {
		ds := dataset.New(d)
		ds.Freeze()
		_, err := eng.Analyze(ctx, ds)
		assert.True(t, core.IsInsufficientDataError(err))
	})

	t.Run("empty condition", func(t *testing.T) {
		ds := dataset.New(d)
		require.NoError(t, ds.Append(dataset.Participant{ID: "a", Condition: d.ConditionAt(0)}))
		require.NoError(t, ds.SetOutcome(0, 1))
		ds.Freeze()
		_, err := eng.Analyze(ctx, ds)
		assert.True(t, core.IsInsufficientDataError(err))
	})

	t.Run("unobserved outcome", func(t *testing.T) {
		ds := dataset.New(d)
		for i := 0; i < 4; i++ {
			require.NoError(t, ds.Append(dataset.Participant{
				ID:        string(rune('a' + i)),
				Condition: d.ConditionAt(i),
			}))
		}
		require.NoError(t, ds.SetOutcome(0, 1))
		ds.Freeze()
		_, err := eng.Analyze(ctx, ds)
		assert.True(t, core.IsInsufficientDataError(err))
	})

	t.Run("non-binary outcome under binary analysis", func(t *testing.T) {
		cfg := frequentistConfig()
		cfg.Family = effects.Binary
		binaryEng := mustEngine(t, cfg)

		ds := dataset.New(d)
		for i := 0; i < 4; i++ {
			require.NoError(t, ds.Append(dataset.Participant{
				ID:        string(rune('a' + i)),
				Condition: d.ConditionAt(i),
			}))
			require.NoError(t, ds.SetOutcome(i, 0.5))
		}
		ds.Freeze()
		_, err := binaryEng.Analyze(ctx, ds)
		assert.True(t, core.IsSchemaMismatchError(err))
	})
}

func TestFrequentist_ThreeLevelFactor(t *testing.T) {
	d, err := design.NewDesign(design.NewFactor("support", "none", "peer", "mentor"))
	require.NoError(t, err)
	spec := effects.Spec{
		Family: effects.Continuous,
		Effects: map[string]map[design.Level]float64{
			"support": {"peer": 0.4, "mentor": 0.8},
		},
		Dispersion: 1,
	}
	ds := testkit.SimulatedDataset(t, d, spec, 300, 2)

	res, err := mustEngine(t, frequentistConfig()).Analyze(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, res.Effects, 2, "one contrast per non-reference level")

	peer, ok := res.Effect(stats.Term("support", "peer"))
	require.True(t, ok)
	assert.InDelta(t, 0.4, peer.Estimate, 0.45)

	mentor, ok := res.Effect(stats.Term("support", "mentor"))
	require.True(t, ok)
	assert.True(t, mentor.Detected)
	assert.InDelta(t, 0.8, mentor.Estimate, 0.45)
}
