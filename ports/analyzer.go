package ports

import (
	"context"

	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/stats"
)

// Analyzer estimates effects from a frozen dataset. Implementations
// are the frequentist and bayesian strategies; both must agree in
// expectation on well-specified data. An analyzer must not care
// whether the outcomes were simulated or supplied externally.
type Analyzer interface {
	Analyze(ctx context.Context, ds *dataset.Dataset) (*stats.AnalysisResult, error)
}
