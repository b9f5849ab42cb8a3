package dataset

import (
	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/design"
)

// Record is the collaborator-facing schema for one participant: an
// identifier, one level value per factor, and an observed outcome.
// Real datasets arrive as a sequence of records; simulated datasets
// export to the same shape, so analysis cannot tell them apart.
type Record struct {
	ParticipantID string            `json:"participant_id"`
	Levels        map[string]string `json:"levels"`
	Outcome       float64           `json:"outcome"`
}

// Export serializes the dataset into the external record schema. Every
// participant must have an observed outcome.
func (ds *Dataset) Export() ([]Record, error) {
	records := make([]Record, 0, len(ds.participants))
	for i := range ds.participants {
		p := &ds.participants[i]
		if !p.Observed {
			return nil, core.NewInsufficientDataError("participant %s has no observed outcome to export", p.ID)
		}
		levels := make(map[string]string, ds.design.FactorCount())
		for fi := 0; fi < ds.design.FactorCount(); fi++ {
			levels[ds.design.Factor(fi).Name] = string(p.Condition.Level(fi))
		}
		records = append(records, Record{
			ParticipantID: p.ID,
			Levels:        levels,
			Outcome:       p.Outcome,
		})
	}
	return records, nil
}

// FromRecords ingests an external dataset against a design, returning
// a frozen dataset ready for analysis. A record referencing an unknown
// factor, an out-of-domain level, or a duplicate participant ID is a
// schema mismatch.
func FromRecords(d *design.Design, records []Record) (*Dataset, error) {
	ds := New(d)
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ParticipantID]; dup {
			return nil, core.NewSchemaMismatchError("duplicate participant id %q", r.ParticipantID)
		}
		seen[r.ParticipantID] = struct{}{}

		levels := make(map[string]design.Level, len(r.Levels))
		for name, value := range r.Levels {
			levels[name] = design.Level(value)
		}
		cond, err := d.Lookup(levels)
		if err != nil {
			return nil, err
		}
		if err := ds.Append(Participant{
			ID:        r.ParticipantID,
			Condition: cond,
			Outcome:   r.Outcome,
			Observed:  true,
		}); err != nil {
			return nil, err
		}
	}
	ds.Freeze()
	return ds, nil
}
