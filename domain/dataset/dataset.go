package dataset

import (
	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/design"
)

// Participant binds an identifier to the condition it was assigned and,
// once simulated or ingested, an observed outcome. The condition is
// assigned exactly once and never changes.
type Participant struct {
	ID        string
	Condition design.Condition
	Outcome   float64
	Observed  bool
}

// Dataset is the unit of analysis: participants whose conditions are
// all drawn from one design. It is append-only while being generated
// and frozen before analysis; a frozen dataset never changes again.
type Dataset struct {
	design       *design.Design
	participants []Participant
	frozen       bool
}

// New creates an empty, unfrozen dataset over the given design.
func New(d *design.Design) *Dataset {
	return &Dataset{design: d}
}

// Design returns the design the dataset's conditions are drawn from.
func (ds *Dataset) Design() *design.Design {
	return ds.design
}

// Len returns the number of participants.
func (ds *Dataset) Len() int {
	return len(ds.participants)
}

// Frozen reports whether the dataset has been frozen.
func (ds *Dataset) Frozen() bool {
	return ds.frozen
}

// Freeze seals the dataset against further mutation.
func (ds *Dataset) Freeze() {
	ds.frozen = true
}

// Append adds a participant. The participant's condition must belong
// to the dataset's design, and the dataset must not be frozen.
func (ds *Dataset) Append(p Participant) error {
	if ds.frozen {
		return core.NewConfigurationError("cannot append to a frozen dataset")
	}
	if !ds.design.Contains(p.Condition) {
		return core.NewSchemaMismatchError("participant %s has condition %q outside the design", p.ID, p.Condition.Key())
	}
	ds.participants = append(ds.participants, p)
	return nil
}

// Participant returns a copy of the i-th participant.
func (ds *Dataset) Participant(i int) Participant {
	return ds.participants[i]
}

// SetOutcome records the observed outcome for the i-th participant.
// Only the outcome is ever filled in; the condition stays as assigned.
func (ds *Dataset) SetOutcome(i int, value float64) error {
	if ds.frozen {
		return core.NewConfigurationError("cannot set outcomes on a frozen dataset")
	}
	ds.participants[i].Outcome = value
	ds.participants[i].Observed = true
	return nil
}

// FullyObserved reports whether every participant has an outcome.
func (ds *Dataset) FullyObserved() bool {
	for i := range ds.participants {
		if !ds.participants[i].Observed {
			return false
		}
	}
	return true
}

// ConditionCounts returns the participant count for every condition in
// the design, including conditions with zero participants.
func (ds *Dataset) ConditionCounts() map[string]int {
	counts := make(map[string]int, ds.design.ConditionCount())
	for _, c := range ds.design.Conditions() {
		counts[c.Key()] = 0
	}
	for i := range ds.participants {
		counts[ds.participants[i].Condition.Key()]++
	}
	return counts
}

// OutcomesByLevel groups observed outcomes by the participant's level
// of the named factor, marginal over every other factor.
func (ds *Dataset) OutcomesByLevel(factor string) (map[design.Level][]float64, error) {
	fi, ok := ds.design.FactorIndex(factor)
	if !ok {
		return nil, core.NewSchemaMismatchError("unknown factor %q", factor)
	}
	groups := make(map[design.Level][]float64)
	for i := range ds.participants {
		p := &ds.participants[i]
		if !p.Observed {
			continue
		}
		level := p.Condition.Level(fi)
		groups[level] = append(groups[level], p.Outcome)
	}
	return groups, nil
}

// LevelPair indexes a cell in a two-factor cross-tabulation.
type LevelPair struct {
	A design.Level
	B design.Level
}

// OutcomesByLevelPair groups observed outcomes by the participant's
// levels of two named factors, marginal over the rest. Used for
// interaction contrasts.
func (ds *Dataset) OutcomesByLevelPair(factorA, factorB string) (map[LevelPair][]float64, error) {
	ai, ok := ds.design.FactorIndex(factorA)
	if !ok {
		return nil, core.NewSchemaMismatchError("unknown factor %q", factorA)
	}
	bi, ok := ds.design.FactorIndex(factorB)
	if !ok {
		return nil, core.NewSchemaMismatchError("unknown factor %q", factorB)
	}
	cells := make(map[LevelPair][]float64)
	for i := range ds.participants {
		p := &ds.participants[i]
		if !p.Observed {
			continue
		}
		key := LevelPair{A: p.Condition.Level(ai), B: p.Condition.Level(bi)}
		cells[key] = append(cells[key], p.Outcome)
	}
	return cells, nil
}
