package stats

import (
	"fmt"
	"math"

	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/design"
)

// Term names the contrast for one non-reference level of a factor.
func Term(factor string, level design.Level) string {
	return fmt.Sprintf("%s=%s", factor, level)
}

// InteractionTerm names a pairwise interaction contrast.
func InteractionTerm(factorA string, levelA design.Level, factorB string, levelB design.Level) string {
	return fmt.Sprintf("%s=%s*%s=%s", factorA, levelA, factorB, levelB)
}

// EffectEstimate is the estimate for one factor-level or interaction
// term: point estimate, interval, and detection decision.
type EffectEstimate struct {
	Term     string
	Estimate float64
	Lower    float64
	Upper    float64

	// PValue is the two-sided p-value under the zero-effect null. The
	// bayesian strategy does not produce one and leaves it NaN.
	PValue float64

	// Detected is true when the strategy's decision rule flags a
	// nonzero effect.
	Detected bool

	// IntervalDefined is false when the interval could not be computed,
	// for example when every response is identical and the variance
	// estimate degenerates. The estimate itself is still reported.
	IntervalDefined bool
}

// AnalysisResult holds one engine invocation's estimates. It is built
// once and never mutated.
type AnalysisResult struct {
	RunID    core.RunID
	Strategy string

	// Level is the confidence or credibility level of the intervals.
	Level float64
	// Alpha is the significance threshold used for frequentist
	// detection decisions.
	Alpha float64

	Effects []EffectEstimate
}

// Effect looks up the estimate for a named term.
func (r *AnalysisResult) Effect(term string) (EffectEstimate, bool) {
	for _, e := range r.Effects {
		if e.Term == term {
			return e, true
		}
	}
	return EffectEstimate{}, false
}

// PowerEstimate is the Monte-Carlo power at one candidate sample size.
type PowerEstimate struct {
	N          int
	Trials     int
	Detections int
	Power      float64
}

// StdErr returns the binomial standard error of the power estimate.
func (p PowerEstimate) StdErr() float64 {
	if p.Trials == 0 {
		return 0
	}
	return math.Sqrt(p.Power * (1 - p.Power) / float64(p.Trials))
}

// SearchResult is the outcome of a minimal sample size search. When the
// search is aborted it is flagged Incomplete and carries whatever
// evaluations finished; an incomplete result is never conclusive.
type SearchResult struct {
	RunID         core.RunID
	MinimalN      int
	AchievedPower float64
	Trials        int
	Incomplete    bool

	// Evaluations lists every power evaluation the search performed, in
	// execution order.
	Evaluations []PowerEstimate
}

func (r *SearchResult) String() string {
	if r.Incomplete {
		return fmt.Sprintf("search incomplete after %d evaluations", len(r.Evaluations))
	}
	return fmt.Sprintf("minimal n=%d, power %.3f (%d trials)", r.MinimalN, r.AchievedPower, r.Trials)
}
