// Package testkit holds shared fixtures for the statistical tests:
// small designs, effect specs with known truths, and a deterministic
// way to materialize simulated datasets.
package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axekar/Demodigi/adapters/assign"
	"github.com/axekar/Demodigi/adapters/simulate"
	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/design"
	"github.com/axekar/Demodigi/domain/effects"
	"github.com/axekar/Demodigi/internal/rng"
)

// TwoByTwo is the canonical 2x2 fixture: a format factor and a support
// factor, two levels each.
func TwoByTwo(t *testing.T) *design.Design {
	t.Helper()
	d, err := design.NewDesign(
		design.NewFactor("format", "standard", "interactive"),
		design.NewFactor("support", "none", "mentor"),
	)
	require.NoError(t, err)
	return d
}

// ContinuousSpec puts a latent effect of the given size on the
// interactive format, unit noise, nothing else.
func ContinuousSpec(effect float64) effects.Spec {
	return effects.Spec{
		Family:   effects.Continuous,
		Baseline: 0,
		Effects: map[string]map[design.Level]float64{
			"format": {"interactive": effect},
		},
		Dispersion: 1,
	}
}

// BinarySpec puts a latent log-odds effect of the given size on the
// interactive format around a 50% baseline rate.
func BinarySpec(effect float64) effects.Spec {
	return effects.Spec{
		Family:   effects.Binary,
		Baseline: 0,
		Effects: map[string]map[design.Level]float64{
			"format": {"interactive": effect},
		},
	}
}

// Provider returns a stream provider over the given master seed.
func Provider(seed int64) *rng.Provider {
	return rng.NewProvider(seed)
}

// SimulatedDataset assigns n participants balanced over d, simulates
// outcomes under spec, and returns the frozen result. The same seed
// always yields the same dataset.
func SimulatedDataset(t *testing.T, d *design.Design, spec effects.Spec, n int, seed int64) *dataset.Dataset {
	t.Helper()
	ctx := context.Background()
	p := Provider(seed)

	gen, err := assign.NewGenerator(assign.Config{Policy: assign.Balanced})
	require.NoError(t, err)
	ds, err := gen.Generate(ctx, d, n, p.Stream("assign", 0))
	require.NoError(t, err)

	sim := simulate.NewSimulator(spec)
	require.NoError(t, sim.Run(ctx, ds, p.Source("simulate", 0)))
	ds.Freeze()
	return ds
}
