package engine

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/design"
	"github.com/axekar/Demodigi/domain/stats"
)

// groupSummary is the sufficient statistic of one marginal group.
type groupSummary struct {
	n    int
	mean float64
	vari float64
}

func summarize(values []float64) (groupSummary, error) {
	g := groupSummary{n: len(values)}
	if g.n == 0 {
		return g, nil
	}
	mean, err := mstats.Mean(values)
	if err != nil {
		return g, core.NewInsufficientDataError("cannot summarize group: %v", err)
	}
	g.mean = mean
	if g.n >= 2 {
		vari, err := mstats.SampleVariance(values)
		if err != nil {
			return g, core.NewInsufficientDataError("cannot summarize group: %v", err)
		}
		g.vari = vari
	}
	return g, nil
}

// frequentist estimates every contrast with a Welch two-sample test:
// unequal variances, Satterthwaite degrees of freedom.
func (e *engine) frequentist(ds *dataset.Dataset) ([]stats.EffectEstimate, error) {
	d := ds.Design()
	out := make([]stats.EffectEstimate, 0, d.FactorCount())

	for fi := 0; fi < d.FactorCount(); fi++ {
		f := d.Factor(fi)
		groups, err := ds.OutcomesByLevel(f.Name)
		if err != nil {
			return nil, err
		}
		ref, err := summarize(groups[f.Reference()])
		if err != nil {
			return nil, err
		}
		for _, level := range f.Levels[1:] {
			treat, err := summarize(groups[level])
			if err != nil {
				return nil, err
			}
			est := e.welch(stats.Term(f.Name, level), treat, ref)
			out = append(out, est)
		}
	}

	for _, pair := range e.cfg.Interactions {
		est, err := e.interactionContrast(ds, pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		out = append(out, est)
	}
	return out, nil
}

// welch compares one treatment group to the reference group. When a
// group is too small or the pooled variance degenerates, the point
// estimate is still reported but no interval or decision is made.
func (e *engine) welch(term string, treat, ref groupSummary) stats.EffectEstimate {
	est := stats.EffectEstimate{
		Term:     term,
		Estimate: treat.mean - ref.mean,
		PValue:   math.NaN(),
	}
	if treat.n < 2 || ref.n < 2 {
		return est
	}
	a := treat.vari / float64(treat.n)
	b := ref.vari / float64(ref.n)
	se := math.Sqrt(a + b)
	if se == 0 {
		return est
	}
	df := (a + b) * (a + b) / (a*a/float64(treat.n-1) + b*b/float64(ref.n-1))
	return e.decide(est, se, df)
}

// decide fills in the interval, p-value and detection decision for an
// estimate with standard error se and Satterthwaite df.
func (e *engine) decide(est stats.EffectEstimate, se, df float64) stats.EffectEstimate {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	t := est.Estimate / se
	est.PValue = 2 * dist.CDF(-math.Abs(t))
	q := dist.Quantile(1 - (1-e.cfg.Level)/2)
	est.Lower = est.Estimate - q*se
	est.Upper = est.Estimate + q*se
	est.IntervalDefined = true
	est.Detected = est.PValue < e.cfg.Alpha
	return est
}

// interactionContrast estimates the pairwise interaction of two factors
// as a double difference over the four cells spanned by each factor's
// reference level and first non-reference level.
func (e *engine) interactionContrast(ds *dataset.Dataset, factorA, factorB string) (stats.EffectEstimate, error) {
	d := ds.Design()
	ai, _ := d.FactorIndex(factorA)
	bi, _ := d.FactorIndex(factorB)
	fa, fb := d.Factor(ai), d.Factor(bi)
	a0, a1 := fa.Reference(), fa.Levels[1]
	b0, b1 := fb.Reference(), fb.Levels[1]

	cells, err := ds.OutcomesByLevelPair(factorA, factorB)
	if err != nil {
		return stats.EffectEstimate{}, err
	}
	cell := func(a, b design.Level) (groupSummary, error) {
		return summarize(cells[dataset.LevelPair{A: a, B: b}])
	}
	g11, err := cell(a1, b1)
	if err != nil {
		return stats.EffectEstimate{}, err
	}
	g10, err := cell(a1, b0)
	if err != nil {
		return stats.EffectEstimate{}, err
	}
	g01, err := cell(a0, b1)
	if err != nil {
		return stats.EffectEstimate{}, err
	}
	g00, err := cell(a0, b0)
	if err != nil {
		return stats.EffectEstimate{}, err
	}

	est := stats.EffectEstimate{
		Term:     stats.InteractionTerm(factorA, a1, factorB, b1),
		Estimate: (g11.mean - g10.mean) - (g01.mean - g00.mean),
		PValue:   math.NaN(),
	}
	groups := []groupSummary{g11, g10, g01, g00}
	var se2, dfDenom float64
	for _, g := range groups {
		if g.n < 2 {
			return est, nil
		}
		share := g.vari / float64(g.n)
		se2 += share
		dfDenom += share * share / float64(g.n-1)
	}
	if se2 == 0 {
		return est, nil
	}
	df := se2 * se2 / dfDenom
	return e.decide(est, math.Sqrt(se2), df), nil
}
