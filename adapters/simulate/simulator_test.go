package simulate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axekar/Demodigi/adapters/assign"
	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/design"
	"github.com/axekar/Demodigi/domain/effects"
	"github.com/axekar/Demodigi/internal/rng"
)

func fixture(t *testing.T, n int) (*design.Design, *dataset.Dataset) {
	t.Helper()
	d, err := design.NewDesign(
		design.NewFactor("format", "standard", "interactive"),
		design.NewFactor("support", "none", "mentor"),
	)
	require.NoError(t, err)
	gen, err := assign.NewGenerator(assign.Config{Policy: assign.Balanced})
	require.NoError(t, err)
	ds, err := gen.Generate(context.Background(), d, n, rng.NewProvider(1).Stream("assign", 0))
	require.NoError(t, err)
	return d, ds
}

func continuousSpec() effects.Spec {
	return effects.Spec{
		Family: effects.Continuous,
		Effects: map[string]map[design.Level]float64{
			"format": {"interactive": 1},
		},
		Dispersion: 1,
	}
}

func TestRun_Deterministic(t *testing.T) {
	spec := continuousSpec()

	_, a := fixture(t, 40)
	require.NoError(t, NewSimulator(spec).Run(context.Background(), a, rng.NewProvider(1).Source("simulate", 0)))

	_, b := fixture(t, 40)
	require.NoError(t, NewSimulator(spec).Run(context.Background(), b, rng.NewProvider(1).Source("simulate", 0)))

	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.Participant(i).Outcome, b.Participant(i).Outcome, "participant %d", i)
	}
}

func TestRun_PreservesConditions(t *testing.T) {
	_, ds := fixture(t, 20)
	before := make([]string, ds.Len())
	for i := range before {
		before[i] = ds.Participant(i).Condition.Key()
	}

	require.NoError(t, NewSimulator(continuousSpec()).Run(context.Background(), ds, rng.NewProvider(1).Source("simulate", 0)))

	assert.True(t, ds.FullyObserved())
	for i, key := range before {
		assert.Equal(t, key, ds.Participant(i).Condition.Key())
	}
}

func TestRun_Binary(t *testing.T) {
	spec := effects.Spec{
		Family: effects.Binary,
		Effects: map[string]map[design.Level]float64{
			"format": {"interactive": 1},
		},
	}
	_, ds := fixture(t, 100)
	require.NoError(t, NewSimulator(spec).Run(context.Background(), ds, rng.NewProvider(1).Source("simulate", 0)))

	ones := 0
	for i := 0; i < ds.Len(); i++ {
		v := ds.Participant(i).Outcome
		require.Contains(t, []float64{0, 1}, v)
		if v == 1 {
			ones++
		}
	}
	// Success rates sit between 0.5 and 0.73, so an all-zero or
	// all-one draw would be broken.
	assert.Greater(t, ones, 10)
	assert.Less(t, ones, 95)
}

func TestRun_SkipsObserved(t *testing.T) {
	_, ds := fixture(t, 10)
	require.NoError(t, ds.SetOutcome(0, 99))

	require.NoError(t, NewSimulator(continuousSpec()).Run(context.Background(), ds, rng.NewProvider(1).Source("simulate", 0)))
	assert.Equal(t, 99.0, ds.Participant(0).Outcome)
}

func TestRun_FrozenDataset(t *testing.T) {
	_, ds := fixture(t, 10)
	ds.Freeze()
	err := NewSimulator(continuousSpec()).Run(context.Background(), ds, rng.NewProvider(1).Source("simulate", 0))
	assert.True(t, core.IsConfigurationError(err))
}

func TestRun_InvalidSpec(t *testing.T) {
	_, ds := fixture(t, 10)
	spec := continuousSpec()
	spec.Dispersion = 0
	err := NewSimulator(spec).Run(context.Background(), ds, rng.NewProvider(1).Source("simulate", 0))
	assert.True(t, core.IsConfigurationError(err))
}
