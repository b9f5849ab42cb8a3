package design

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axekar/Demodigi/domain/core"
)

func TestNewDesign_EnumeratesFullProduct(t *testing.T) {
	d, err := NewDesign(
		NewFactor("format", "standard", "interactive"),
		NewFactor("support", "none", "peer", "mentor"),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, d.FactorCount())
	assert.Equal(t, 6, d.ConditionCount())
	assert.Equal(t, 3, d.LevelCount("support"))
	assert.Equal(t, "2x3 design, 6 conditions", d.String())

	// Every condition is distinct and the last factor varies fastest.
	seen := make(map[string]struct{})
	for i := 0; i < d.ConditionCount(); i++ {
		key := d.ConditionAt(i).Key()
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate condition %q", key)
		}
		seen[key] = struct{}{}
	}
	assert.Equal(t, "format=standard|support=none", d.ConditionAt(0).Key())
	assert.Equal(t, "format=standard|support=peer", d.ConditionAt(1).Key())
	assert.Equal(t, "format=interactive|support=none", d.ConditionAt(3).Key())
}

func TestNewDesign_Validation(t *testing.T) {
	cases := []struct {
		name    string
		factors []Factor
	}{
		{"no factors", nil},
		{"single level", []Factor{NewFactor("format", "standard")}},
		{"empty name", []Factor{NewFactor("", "a", "b")}},
		{"duplicate name", []Factor{
			NewFactor("format", "a", "b"),
			NewFactor("format", "c", "d"),
		}},
		{"duplicate level", []Factor{NewFactor("format", "a", "a")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDesign(tc.factors...)
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}

func TestDesign_Lookup(t *testing.T) {
	d, err := NewDesign(
		NewFactor("format", "standard", "interactive"),
		NewFactor("support", "none", "mentor"),
	)
	require.NoError(t, err)

	cond, err := d.Lookup(map[string]Level{"format": "interactive", "support": "none"})
	require.NoError(t, err)
	assert.Equal(t, "format=interactive|support=none", cond.Key())
	assert.True(t, d.Contains(cond))

	_, err = d.Lookup(map[string]Level{"format": "interactive"})
	assert.True(t, core.IsSchemaMismatchError(err), "missing factor should mismatch")

	_, err = d.Lookup(map[string]Level{"format": "interactive", "support": "robot"})
	assert.True(t, core.IsSchemaMismatchError(err), "unknown level should mismatch")

	_, err = d.Lookup(map[string]Level{"format": "interactive", "support": "none", "extra": "x"})
	assert.True(t, core.IsSchemaMismatchError(err), "unknown factor should mismatch")
}

func TestFactor_Reference(t *testing.T) {
	f := NewFactor("format", "standard", "interactive")
	assert.Equal(t, Level("standard"), f.Reference())
}

func TestDesign_FactorIsolated(t *testing.T) {
	d, err := NewDesign(NewFactor("format", "standard", "interactive"))
	require.NoError(t, err)

	f := d.Factor(0)
	f.Levels[0] = "mutated"
	assert.Equal(t, Level("standard"), d.Factor(0).Levels[0])
}
