package simulate

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/effects"
)

// Simulator draws synthetic outcomes for assigned participants under
// an effect specification. Draws happen in participant order with one
// draw per participant, so a given source always reproduces the same
// outcomes for the same dataset.
type Simulator struct {
	spec effects.Spec
}

func NewSimulator(spec effects.Spec) *Simulator {
	return &Simulator{spec: spec}
}

// Run fills in the outcome of every unobserved participant in ds,
// drawing from src. Already observed participants are left alone.
// Conditions are never modified.
func (s *Simulator) Run(ctx context.Context, ds *dataset.Dataset, src rand.Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ds.Frozen() {
		return core.NewConfigurationError("cannot simulate outcomes on a frozen dataset")
	}
	d := ds.Design()
	if err := s.spec.Validate(d); err != nil {
		return err
	}

	switch s.spec.Family {
	case effects.Continuous:
		noise := distuv.Normal{Mu: 0, Sigma: s.spec.Dispersion, Src: src}
		for i := 0; i < ds.Len(); i++ {
			if ds.Participant(i).Observed {
				continue
			}
			latent := s.spec.Latent(d, ds.Participant(i).Condition)
			if err := ds.SetOutcome(i, latent+noise.Rand()); err != nil {
				return err
			}
		}
	case effects.Binary:
		for i := 0; i < ds.Len(); i++ {
			if ds.Participant(i).Observed {
				continue
			}
			latent := s.spec.Latent(d, ds.Participant(i).Condition)
			b := distuv.Bernoulli{P: effects.Logistic(latent), Src: src}
			if err := ds.SetOutcome(i, b.Rand()); err != nil {
				return err
			}
		}
	default:
		return core.NewConfigurationError("unknown outcome family %q", s.spec.Family)
	}
	return nil
}
