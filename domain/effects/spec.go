package effects

import (
	"math"

	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/design"
)

// OutcomeFamily selects the scale responses are drawn on.
type OutcomeFamily string

const (
	// Continuous responses are the latent score plus Gaussian noise.
	Continuous OutcomeFamily = "continuous"
	// Binary responses are Bernoulli draws on a logistic transform of
	// the latent score.
	Binary OutcomeFamily = "binary"
)

// Interaction is a pairwise interaction term. The effect is added to
// the latent score when both named factors sit at the named levels.
type Interaction struct {
	FactorA string
	LevelA  design.Level
	FactorB string
	LevelB  design.Level
	Effect  float64
}

// Spec is the assumed true effect model on the latent scale. Effects
// not specified default to zero, so a reference level with no entry
// contributes nothing.
type Spec struct {
	Family   OutcomeFamily
	Baseline float64

	// Effects maps factor name to per-level latent offsets.
	Effects map[string]map[design.Level]float64

	Interactions []Interaction

	// Dispersion is the noise standard deviation for continuous
	// outcomes. Binary outcomes ignore it; the Bernoulli draw carries
	// its own dispersion.
	Dispersion float64
}

// Validate checks the spec against a design. Effect entries may only
// reference factors and levels the design declares.
func (s Spec) Validate(d *design.Design) error {
	switch s.Family {
	case Continuous:
		if s.Dispersion <= 0 {
			return core.NewConfigurationError("continuous outcomes need a positive dispersion, got %g", s.Dispersion)
		}
	case Binary:
		if s.Dispersion < 0 {
			return core.NewConfigurationError("dispersion cannot be negative, got %g", s.Dispersion)
		}
	default:
		return core.NewConfigurationError("unknown outcome family %q", s.Family)
	}

	for name, levels := range s.Effects {
		fi, ok := d.FactorIndex(name)
		if !ok {
			return core.NewConfigurationError("effect references unknown factor %q", name)
		}
		f := d.Factor(fi)
		for level := range levels {
			if !hasLevel(f, level) {
				return core.NewConfigurationError("effect references level %q outside factor %q", level, name)
			}
		}
	}

	for _, it := range s.Interactions {
		if it.FactorA == it.FactorB {
			return core.NewConfigurationError("interaction needs two distinct factors, got %q twice", it.FactorA)
		}
		for _, half := range []struct {
			factor string
			level  design.Level
		}{{it.FactorA, it.LevelA}, {it.FactorB, it.LevelB}} {
			fi, ok := d.FactorIndex(half.factor)
			if !ok {
				return core.NewConfigurationError("interaction references unknown factor %q", half.factor)
			}
			if !hasLevel(d.Factor(fi), half.level) {
				return core.NewConfigurationError("interaction references level %q outside factor %q", half.level, half.factor)
			}
		}
	}
	return nil
}

func hasLevel(f design.Factor, l design.Level) bool {
	for _, have := range f.Levels {
		if have == l {
			return true
		}
	}
	return false
}

// Latent returns the latent score for a condition: baseline plus the
// active factor-level effects plus the active interaction effects.
func (s Spec) Latent(d *design.Design, c design.Condition) float64 {
	score := s.Baseline
	for i := 0; i < d.FactorCount(); i++ {
		name := d.Factor(i).Name
		if levels, ok := s.Effects[name]; ok {
			score += levels[c.Level(i)]
		}
	}
	for _, it := range s.Interactions {
		ai, okA := d.FactorIndex(it.FactorA)
		bi, okB := d.FactorIndex(it.FactorB)
		if okA && okB && c.Level(ai) == it.LevelA && c.Level(bi) == it.LevelB {
			score += it.Effect
		}
	}
	return score
}

// Mean returns the expected observed outcome for a condition: the
// latent score itself for continuous outcomes, the logistic success
// probability for binary ones.
func (s Spec) Mean(d *design.Design, c design.Condition) float64 {
	latent := s.Latent(d, c)
	if s.Family == Binary {
		return Logistic(latent)
	}
	return latent
}

// Logistic maps a latent score to a probability in (0, 1).
func Logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
