package power

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/stats"
)

// Evaluator estimates power at one candidate sample size by Monte
// Carlo. Trials run in parallel, but each trial's detection lands in a
// slot indexed by trial number, so the aggregate is identical no
// matter how many workers run or in what order trials finish.
type Evaluator struct {
	pipeline *Pipeline
	workers  int
}

func NewEvaluator(p *Pipeline, workers int) (*Evaluator, error) {
	if workers < 1 {
		return nil, core.NewConfigurationError("worker count must be positive, got %d", workers)
	}
	return &Evaluator{pipeline: p, workers: workers}, nil
}

// Evaluate runs trials simulated studies of n participants and returns
// the detection rate.
func (e *Evaluator) Evaluate(ctx context.Context, attempt, n, trials int) (stats.PowerEstimate, error) {
	if trials < 1 {
		return stats.PowerEstimate{}, core.NewConfigurationError("trial count must be positive, got %d", trials)
	}
	detections := make([]bool, trials)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < trials; i++ {
		g.Go(func() error {
			detected, err := e.pipeline.Trial(gctx, attempt, n, i)
			if err != nil {
				return err
			}
			detections[i] = detected
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats.PowerEstimate{}, err
	}

	est := stats.PowerEstimate{N: n, Trials: trials}
	for _, d := range detections {
		if d {
			est.Detections++
		}
	}
	est.Power = float64(est.Detections) / float64(trials)
	return est, nil
}
