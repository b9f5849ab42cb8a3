package power

import (
	"context"
	"errors"
	"math"

	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/stats"
	"github.com/axekar/Demodigi/internal"
)

// SearchConfig tunes the minimal sample size search.
type SearchConfig struct {
	// TargetPower is the detection rate to reach, for example 0.8.
	TargetPower float64

	// Alpha is the significance threshold the analyzer decides at. The
	// search uses it only to check that the trial budget can separate
	// the target from the false-positive floor.
	Alpha float64

	// Trials is the Monte-Carlo trial count per candidate size.
	Trials int

	// StartN is the first candidate size the doubling phase probes.
	StartN int

	// MaxN bounds the search. A target unreachable within MaxN fails
	// with a not-achievable error.
	MaxN int

	// Tolerance is the bisection stopping width in participants.
	Tolerance int

	// MaxIterations caps the total number of candidate assessments.
	MaxIterations int

	// MarginSE widens the acceptance band as a multiple of the power
	// estimate's binomial standard error. Candidates inside the band
	// are ambiguous and re-evaluated with a larger trial budget.
	MarginSE float64

	// RecheckFactor multiplies Trials for the re-evaluation of an
	// ambiguous candidate.
	RecheckFactor int

	// Workers is the trial parallelism.
	Workers int
}

// maxPacked bounds the values packed into a stream index.
const maxPacked = 1 << 20

func (c SearchConfig) validate() error {
	if c.TargetPower <= 0 || c.TargetPower >= 1 {
		return core.NewConfigurationError("target power must sit in (0,1), got %g", c.TargetPower)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return core.NewConfigurationError("alpha must sit in (0,1), got %g", c.Alpha)
	}
	if c.Trials < 1 {
		return core.NewConfigurationError("trial count must be positive, got %d", c.Trials)
	}
	if c.StartN < 1 {
		return core.NewConfigurationError("starting size must be positive, got %d", c.StartN)
	}
	if c.MaxN < c.StartN {
		return core.NewConfigurationError("maximum size %d is below starting size %d", c.MaxN, c.StartN)
	}
	if c.MaxN >= maxPacked {
		return core.NewConfigurationError("maximum size %d exceeds the supported bound %d", c.MaxN, maxPacked-1)
	}
	if c.Tolerance < 1 {
		return core.NewConfigurationError("tolerance must be positive, got %d", c.Tolerance)
	}
	if c.MaxIterations < 1 {
		return core.NewConfigurationError("iteration cap must be positive, got %d", c.MaxIterations)
	}
	if c.MarginSE < 0 {
		return core.NewConfigurationError("margin multiplier cannot be negative, got %g", c.MarginSE)
	}
	if c.RecheckFactor < 1 {
		return core.NewConfigurationError("recheck factor must be positive, got %d", c.RecheckFactor)
	}
	if c.Trials*c.RecheckFactor >= maxPacked {
		return core.NewConfigurationError("trial budget %d exceeds the supported bound %d", c.Trials*c.RecheckFactor, maxPacked-1)
	}
	if c.Workers < 1 {
		return core.NewConfigurationError("worker count must be positive, got %d", c.Workers)
	}
	// With too few trials the false-positive floor at alpha is
	// statistically indistinguishable from the target.
	floor := 2 * math.Sqrt(c.Alpha*(1-c.Alpha)/float64(c.Trials))
	if c.TargetPower-c.Alpha <= floor {
		return core.NewInsufficientDataError(
			"%d trials cannot separate target power %g from the chance rate %g", c.Trials, c.TargetPower, c.Alpha)
	}
	return nil
}

// Search finds the minimal sample size whose Monte-Carlo power reaches
// the target: doubling until a candidate is accepted, then bisecting
// between the largest rejected and smallest accepted size.
type Search struct {
	cfg  SearchConfig
	eval *Evaluator
	log  *internal.Logger
}

func NewSearch(p *Pipeline, cfg SearchConfig, log *internal.Logger) (*Search, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	eval, err := NewEvaluator(p, cfg.Workers)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = internal.NewDefaultLogger()
	}
	return &Search{cfg: cfg, eval: eval, log: log}, nil
}

func (s *Search) band(trials int) float64 {
	t := s.cfg.TargetPower
	return s.cfg.MarginSE * math.Sqrt(t*(1-t)/float64(trials))
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// assess decides whether candidate size n reaches the target. An
// estimate inside the acceptance band is ambiguous and re-evaluated
// once with a larger trial budget on fresh streams; the re-evaluation
// accepts anything not clearly below the target.
func (s *Search) assess(ctx context.Context, n int, res *stats.SearchResult) (bool, stats.PowerEstimate, error) {
	est, err := s.eval.Evaluate(ctx, 0, n, s.cfg.Trials)
	if err != nil {
		return false, est, err
	}
	res.Evaluations = append(res.Evaluations, est)
	s.log.Info("power at n=%d: %.3f (%d/%d trials)", n, est.Power, est.Detections, est.Trials)

	band := s.band(s.cfg.Trials)
	switch {
	case est.Power >= s.cfg.TargetPower+band:
		return true, est, nil
	case est.Power < s.cfg.TargetPower-band:
		return false, est, nil
	}

	trials := s.cfg.Trials * s.cfg.RecheckFactor
	s.log.Debug("n=%d ambiguous, rechecking with %d trials", n, trials)
	re, err := s.eval.Evaluate(ctx, 1, n, trials)
	if err != nil {
		return false, re, err
	}
	res.Evaluations = append(res.Evaluations, re)
	s.log.Info("recheck at n=%d: %.3f (%d/%d trials)", n, re.Power, re.Detections, re.Trials)
	return re.Power >= s.cfg.TargetPower-s.band(trials), re, nil
}

// Run performs the search. A canceled context yields an incomplete
// result and no error; a target unreachable within the size bound
// yields the partial result alongside a not-achievable error.
func (s *Search) Run(ctx context.Context) (*stats.SearchResult, error) {
	res := &stats.SearchResult{RunID: core.NewRunID()}
	iterations := 0

	var accepted stats.PowerEstimate
	// The bracket never descends below the smallest size the
	// assignment policy can serve, so bisection after an immediately
	// accepted candidate stays feasible.
	floor := s.eval.pipeline.MinSize()
	if floor > s.cfg.MaxN {
		return res, core.NewConfigurationError(
			"smallest feasible size %d exceeds maximum size %d", floor, s.cfg.MaxN)
	}
	lo := floor - 1
	hi := 0

	// Doubling phase: grow until a candidate is accepted.
	n := s.cfg.StartN
	if n < floor {
		n = floor
	}
	for {
		iterations++
		ok, est, err := s.assess(ctx, n, res)
		if canceled(err) || canceled(ctx.Err()) {
			res.Incomplete = true
			return res, nil
		}
		if err != nil {
			return res, err
		}
		if ok {
			hi, accepted = n, est
			break
		}
		lo = n
		if n >= s.cfg.MaxN {
			return res, core.NewNotAchievableError(
				"power %.3f at n=%d is below target %g within the size bound", est.Power, n, s.cfg.TargetPower)
		}
		if iterations >= s.cfg.MaxIterations {
			res.Incomplete = true
			s.log.Warn("iteration cap %d hit before bracketing", s.cfg.MaxIterations)
			return res, nil
		}
		n *= 2
		if n > s.cfg.MaxN {
			n = s.cfg.MaxN
		}
	}

	// Bisection phase: shrink the bracket to the tolerance.
	for hi-lo > s.cfg.Tolerance && iterations < s.cfg.MaxIterations {
		iterations++
		mid := lo + (hi-lo)/2
		ok, est, err := s.assess(ctx, mid, res)
		if canceled(err) || canceled(ctx.Err()) {
			res.Incomplete = true
			return res, nil
		}
		if err != nil {
			return res, err
		}
		if ok {
			hi, accepted = mid, est
		} else {
			lo = mid
		}
	}

	res.MinimalN = hi
	res.AchievedPower = accepted.Power
	res.Trials = accepted.Trials
	s.log.Info("%s", res.String())
	return res, nil
}
