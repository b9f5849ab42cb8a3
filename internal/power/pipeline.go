package power

import (
	"context"

	"github.com/axekar/Demodigi/adapters/assign"
	"github.com/axekar/Demodigi/adapters/simulate"
	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/design"
	"github.com/axekar/Demodigi/domain/effects"
	"github.com/axekar/Demodigi/ports"
)

// Pipeline runs one assign-simulate-analyze trial end to end and
// reports whether the target effect was detected. Every trial derives
// its streams from a distinct (label, index) pair, so trials are
// mutually independent and individually reproducible.
type Pipeline struct {
	design   *design.Design
	gen      *assign.Generator
	sim      *simulate.Simulator
	analyzer ports.Analyzer
	rng      ports.StreamProvider
	target   string
}

// NewPipeline wires the trial components together. The target names
// the estimated term whose detection defines power.
func NewPipeline(d *design.Design, spec effects.Spec, gen *assign.Generator, analyzer ports.Analyzer, rng ports.StreamProvider, target string) (*Pipeline, error) {
	if d == nil || gen == nil || analyzer == nil || rng == nil {
		return nil, core.NewConfigurationError("pipeline is missing a component")
	}
	if target == "" {
		return nil, core.NewConfigurationError("pipeline needs a target term")
	}
	if err := spec.Validate(d); err != nil {
		return nil, err
	}
	return &Pipeline{
		design:   d,
		gen:      gen,
		sim:      simulate.NewSimulator(spec),
		analyzer: analyzer,
		rng:      rng,
		target:   target,
	}, nil
}

// MinSize returns the smallest candidate size the assignment policy
// can serve; the search never probes below it.
func (p *Pipeline) MinSize() int {
	return p.gen.MinCount(p.design)
}

// trialIndex packs the attempt, candidate size and trial number into
// one stream index, so no two trials anywhere in a search ever share a
// seed. The packing bounds are enforced by the search configuration.
func trialIndex(attempt, n, trial int) uint64 {
	return uint64(attempt)<<40 | uint64(n)<<20 | uint64(trial)
}

// Trial runs a single simulated study of n participants and reports
// whether the target effect was flagged.
func (p *Pipeline) Trial(ctx context.Context, attempt, n, trial int) (bool, error) {
	idx := trialIndex(attempt, n, trial)

	ds, err := p.gen.Generate(ctx, p.design, n, p.rng.Stream("assign", idx))
	if err != nil {
		return false, err
	}
	if err := p.sim.Run(ctx, ds, p.rng.Source("simulate", idx)); err != nil {
		return false, err
	}
	ds.Freeze()

	res, err := p.analyzer.Analyze(ctx, ds)
	if core.IsInsufficientDataError(err) {
		// A small simple-randomized draw can leave a condition empty,
		// making the contrast inestimable for that trial. Such a trial
		// cannot flag the effect, so it counts as a non-detection
		// rather than aborting the evaluation.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	eff, ok := res.Effect(p.target)
	if !ok {
		return false, core.NewConfigurationError("target term %q is not estimated by the analyzer", p.target)
	}
	return eff.Detected, nil
}
