package engine

import (
	"context"

	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/effects"
	"github.com/axekar/Demodigi/domain/stats"
	"github.com/axekar/Demodigi/ports"
)

// Strategy selects the inferential machinery behind the engine.
type Strategy string

const (
	Frequentist Strategy = "frequentist"
	Bayesian    Strategy = "bayesian"
)

// Prior is the bayesian strategy's prior belief about each effect. For
// continuous outcomes the effect prior is Normal(Mean, Variance). For
// binary outcomes each marginal response rate gets a Beta(Alpha, Beta)
// prior.
type Prior struct {
	Mean     float64
	Variance float64
	Alpha    float64
	Beta     float64
}

// DefaultPrior is weakly informative: effects are centered on zero with
// wide uncertainty, rates on a uniform Beta(1,1).
func DefaultPrior() Prior {
	return Prior{Mean: 0, Variance: 100, Alpha: 1, Beta: 1}
}

// Config configures an analysis engine.
type Config struct {
	Strategy Strategy
	Family   effects.OutcomeFamily

	// Level is the confidence or credibility level of reported
	// intervals, for example 0.95.
	Level float64

	// Alpha is the frequentist significance threshold. Ignored by the
	// bayesian strategy, whose decision rule is interval exclusion.
	Alpha float64

	Prior Prior

	// Interactions lists factor pairs whose interaction contrast should
	// be estimated, in addition to every main effect.
	Interactions [][2]string
}

type engine struct {
	cfg Config
}

// New validates the configuration and returns an analyzer.
func New(cfg Config) (ports.Analyzer, error) {
	switch cfg.Strategy {
	case Frequentist, Bayesian:
	default:
		return nil, core.NewConfigurationError("unknown analysis strategy %q", cfg.Strategy)
	}
	switch cfg.Family {
	case effects.Continuous, effects.Binary:
	default:
		return nil, core.NewConfigurationError("unknown outcome family %q", cfg.Family)
	}
	if cfg.Level <= 0 || cfg.Level >= 1 {
		return nil, core.NewConfigurationError("interval level must sit in (0,1), got %g", cfg.Level)
	}
	if cfg.Strategy == Frequentist && (cfg.Alpha <= 0 || cfg.Alpha >= 1) {
		return nil, core.NewConfigurationError("alpha must sit in (0,1), got %g", cfg.Alpha)
	}
	if cfg.Strategy == Bayesian {
		if cfg.Family == effects.Continuous && cfg.Prior.Variance <= 0 {
			return nil, core.NewConfigurationError("prior variance must be positive, got %g", cfg.Prior.Variance)
		}
		if cfg.Family == effects.Binary && (cfg.Prior.Alpha <= 0 || cfg.Prior.Beta <= 0) {
			return nil, core.NewConfigurationError("beta prior parameters must be positive, got alpha=%g beta=%g", cfg.Prior.Alpha, cfg.Prior.Beta)
		}
	}
	return &engine{cfg: cfg}, nil
}

// Analyze estimates every main effect of the dataset's design, plus any
// configured interaction contrasts, with the configured strategy.
func (e *engine) Analyze(ctx context.Context, ds *dataset.Dataset) (*stats.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.precheck(ds); err != nil {
		return nil, err
	}

	result := &stats.AnalysisResult{
		RunID:    core.NewRunID(),
		Strategy: string(e.cfg.Strategy),
		Level:    e.cfg.Level,
		Alpha:    e.cfg.Alpha,
	}

	switch e.cfg.Strategy {
	case Frequentist:
		effectsOut, err := e.frequentist(ds)
		if err != nil {
			return nil, err
		}
		result.Effects = effectsOut
	case Bayesian:
		effectsOut, err := e.bayesian(ds)
		if err != nil {
			return nil, err
		}
		result.Effects = effectsOut
	}
	return result, nil
}

// precheck rejects datasets the strategies cannot analyze: unfrozen,
// empty, partially observed, or with conditions nobody was assigned to.
func (e *engine) precheck(ds *dataset.Dataset) error {
	if !ds.Frozen() {
		return core.NewConfigurationError("analysis requires a frozen dataset")
	}
	if ds.Len() == 0 {
		return core.NewInsufficientDataError("dataset has no participants")
	}
	if !ds.FullyObserved() {
		return core.NewInsufficientDataError("dataset has unobserved outcomes")
	}
	for key, count := range ds.ConditionCounts() {
		if count == 0 {
			return core.NewInsufficientDataError("condition %q has no participants", key)
		}
	}
	if e.cfg.Family == effects.Binary {
		for i := 0; i < ds.Len(); i++ {
			if v := ds.Participant(i).Outcome; v != 0 && v != 1 {
				return core.NewSchemaMismatchError("binary analysis saw non-binary outcome %g", v)
			}
		}
	}
	for _, pair := range e.cfg.Interactions {
		for _, name := range pair {
			if _, ok := ds.Design().FactorIndex(name); !ok {
				return core.NewSchemaMismatchError("interaction references unknown factor %q", name)
			}
		}
		if pair[0] == pair[1] {
			return core.NewConfigurationError("interaction needs two distinct factors, got %q twice", pair[0])
		}
	}
	return nil
}
