package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axekar/Demodigi/domain/core"
)

func TestRecords_RoundTrip(t *testing.T) {
	d := twoByTwo(t)
	ds := New(d)
	for i, outcome := range []float64{0.5, 1.5, 2.5, 3.5} {
		require.NoError(t, ds.Append(Participant{ID: string(rune('a' + i)), Condition: d.ConditionAt(i)}))
		require.NoError(t, ds.SetOutcome(i, outcome))
	}
	ds.Freeze()

	records, err := ds.Export()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "standard", records[0].Levels["format"])
	assert.Equal(t, "none", records[0].Levels["support"])

	back, err := FromRecords(d, records)
	require.NoError(t, err)
	assert.True(t, back.Frozen())
	require.Equal(t, ds.Len(), back.Len())
	for i := 0; i < ds.Len(); i++ {
		want, got := ds.Participant(i), back.Participant(i)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Condition.Key(), got.Condition.Key())
		assert.Equal(t, want.Outcome, got.Outcome)
		assert.True(t, got.Observed)
	}
}

func TestExport_RequiresObservedOutcomes(t *testing.T) {
	d := twoByTwo(t)
	ds := New(d)
	require.NoError(t, ds.Append(Participant{ID: "P000001", Condition: d.ConditionAt(0)}))

	_, err := ds.Export()
	assert.True(t, core.IsInsufficientDataError(err))
}

func TestFromRecords_SchemaMismatches(t *testing.T) {
	d := twoByTwo(t)

	base := Record{
		ParticipantID: "P000001",
		Levels:        map[string]string{"format": "standard", "support": "none"},
		Outcome:       1,
	}

	t.Run("unknown factor", func(t *testing.T) {
		r := base
		r.Levels = map[string]string{"format": "standard", "duration": "long"}
		_, err := FromRecords(d, []Record{r})
		assert.True(t, core.IsSchemaMismatchError(err))
	})

	t.Run("unknown level", func(t *testing.T) {
		r := base
		r.Levels = map[string]string{"format": "holographic", "support": "none"}
		_, err := FromRecords(d, []Record{r})
		assert.True(t, core.IsSchemaMismatchError(err))
	})

	t.Run("missing factor", func(t *testing.T) {
		r := base
		r.Levels = map[string]string{"format": "standard"}
		_, err := FromRecords(d, []Record{r})
		assert.True(t, core.IsSchemaMismatchError(err))
	})

	t.Run("duplicate participant", func(t *testing.T) {
		_, err := FromRecords(d, []Record{base, base})
		assert.True(t, core.IsSchemaMismatchError(err))
	})
}
