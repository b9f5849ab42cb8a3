package engine

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/design"
	"github.com/axekar/Demodigi/domain/effects"
	"github.com/axekar/Demodigi/domain/stats"
)

// bayesian estimates every contrast as a posterior over the effect.
// Continuous effects get a conjugate normal-normal update against the
// Welch likelihood; binary rates get conjugate Beta posteriors whose
// difference is approximated by a normal. The decision rule is
// credible-interval exclusion of zero, so no p-values are produced.
func (e *engine) bayesian(ds *dataset.Dataset) ([]stats.EffectEstimate, error) {
	d := ds.Design()
	out := make([]stats.EffectEstimate, 0, d.FactorCount())

	for fi := 0; fi < d.FactorCount(); fi++ {
		f := d.Factor(fi)
		groups, err := ds.OutcomesByLevel(f.Name)
		if err != nil {
			return nil, err
		}
		for _, level := range f.Levels[1:] {
			term := stats.Term(f.Name, level)
			var est stats.EffectEstimate
			switch e.cfg.Family {
			case effects.Continuous:
				treat, errT := summarize(groups[level])
				if errT != nil {
					return nil, errT
				}
				ref, errR := summarize(groups[f.Reference()])
				if errR != nil {
					return nil, errR
				}
				est = e.normalPosterior(term, treat, ref)
			case effects.Binary:
				est = e.betaContrast(term,
					[]moment{rateMoment(groups[level], e.cfg.Prior)},
					[]moment{rateMoment(groups[f.Reference()], e.cfg.Prior)})
			}
			out = append(out, est)
		}
	}

	for _, pair := range e.cfg.Interactions {
		est, err := e.bayesInteraction(ds, pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		out = append(out, est)
	}
	return out, nil
}

// normalPosterior updates the Normal(prior mean, prior variance) effect
// belief with the observed group difference and its sampling variance.
func (e *engine) normalPosterior(term string, treat, ref groupSummary) stats.EffectEstimate {
	est := stats.EffectEstimate{
		Term:     term,
		Estimate: treat.mean - ref.mean,
		PValue:   math.NaN(),
	}
	if treat.n < 2 || ref.n < 2 {
		return est
	}
	se2 := treat.vari/float64(treat.n) + ref.vari/float64(ref.n)
	if se2 == 0 {
		return est
	}
	prior := e.cfg.Prior
	postVar := 1 / (1/prior.Variance + 1/se2)
	postMean := postVar * (prior.Mean/prior.Variance + est.Estimate/se2)
	return e.credible(est, postMean, postVar)
}

// moment is the mean and variance of one rate posterior, signed by its
// role in a contrast.
type moment struct {
	mean float64
	vari float64
}

// rateMoment builds the conjugate Beta posterior of one group's
// response rate and returns its first two moments.
func rateMoment(outcomes []float64, prior Prior) moment {
	var successes float64
	for _, v := range outcomes {
		successes += v
	}
	n := float64(len(outcomes))
	post := distuv.Beta{Alpha: prior.Alpha + successes, Beta: prior.Beta + n - successes}
	return moment{mean: post.Mean(), vari: post.Variance()}
}

// betaContrast approximates the posterior of a difference of rates with
// a normal carrying the summed posterior variances. The plus groups are
// added, the minus groups subtracted.
func (e *engine) betaContrast(term string, plus, minus []moment) stats.EffectEstimate {
	var mean, vari float64
	for _, m := range plus {
		mean += m.mean
		vari += m.vari
	}
	for _, m := range minus {
		mean -= m.mean
		vari += m.vari
	}
	est := stats.EffectEstimate{Term: term, Estimate: mean, PValue: math.NaN()}
	return e.credible(est, mean, vari)
}

// credible fills in the central credible interval of a normal posterior
// and the exclusion-of-zero decision.
func (e *engine) credible(est stats.EffectEstimate, postMean, postVar float64) stats.EffectEstimate {
	if postVar <= 0 {
		return est
	}
	sd := math.Sqrt(postVar)
	q := distuv.UnitNormal.Quantile(1 - (1-e.cfg.Level)/2)
	est.Estimate = postMean
	est.Lower = postMean - q*sd
	est.Upper = postMean + q*sd
	est.IntervalDefined = true
	est.Detected = est.Lower > 0 || est.Upper < 0
	return est
}

// bayesInteraction estimates the pairwise interaction as a double
// difference over the four cells spanned by each factor's reference
// level and first non-reference level.
func (e *engine) bayesInteraction(ds *dataset.Dataset, factorA, factorB string) (stats.EffectEstimate, error) {
	d := ds.Design()
	ai, _ := d.FactorIndex(factorA)
	bi, _ := d.FactorIndex(factorB)
	fa, fb := d.Factor(ai), d.Factor(bi)
	a0, a1 := fa.Reference(), fa.Levels[1]
	b0, b1 := fb.Reference(), fb.Levels[1]
	term := stats.InteractionTerm(factorA, a1, factorB, b1)

	cells, err := ds.OutcomesByLevelPair(factorA, factorB)
	if err != nil {
		return stats.EffectEstimate{}, err
	}
	cell := func(a, b design.Level) []float64 {
		return cells[dataset.LevelPair{A: a, B: b}]
	}

	if e.cfg.Family == effects.Binary {
		plus := []moment{rateMoment(cell(a1, b1), e.cfg.Prior), rateMoment(cell(a0, b0), e.cfg.Prior)}
		minus := []moment{rateMoment(cell(a1, b0), e.cfg.Prior), rateMoment(cell(a0, b1), e.cfg.Prior)}
		return e.betaContrast(term, plus, minus), nil
	}

	g11, err := summarize(cell(a1, b1))
	if err != nil {
		return stats.EffectEstimate{}, err
	}
	g10, err := summarize(cell(a1, b0))
	if err != nil {
		return stats.EffectEstimate{}, err
	}
	g01, err := summarize(cell(a0, b1))
	if err != nil {
		return stats.EffectEstimate{}, err
	}
	g00, err := summarize(cell(a0, b0))
	if err != nil {
		return stats.EffectEstimate{}, err
	}
	est := stats.EffectEstimate{
		Term:     term,
		Estimate: (g11.mean - g10.mean) - (g01.mean - g00.mean),
		PValue:   math.NaN(),
	}
	var se2 float64
	for _, g := range []groupSummary{g11, g10, g01, g00} {
		if g.n < 2 {
			return est, nil
		}
		se2 += g.vari / float64(g.n)
	}
	if se2 == 0 {
		return est, nil
	}
	prior := e.cfg.Prior
	postVar := 1 / (1/prior.Variance + 1/se2)
	postMean := postVar * (prior.Mean/prior.Variance + est.Estimate/se2)
	return e.credible(est, postMean, postVar), nil
}
