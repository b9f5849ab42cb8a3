package app

import (
	"context"

	"github.com/axekar/Demodigi/adapters/assign"
	"github.com/axekar/Demodigi/adapters/simulate"
	"github.com/axekar/Demodigi/adapters/stats/engine"
	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/design"
	"github.com/axekar/Demodigi/domain/effects"
	"github.com/axekar/Demodigi/domain/stats"
	"github.com/axekar/Demodigi/internal"
	"github.com/axekar/Demodigi/internal/power"
	"github.com/axekar/Demodigi/internal/rng"
	"github.com/axekar/Demodigi/ports"
)

// StudyConfig describes one study: its design, the assumed true
// effects, and how participants are assigned and analyzed.
type StudyConfig struct {
	Design     *design.Design
	Spec       effects.Spec
	Assignment assign.Config
	Analysis   engine.Config
	MasterSeed int64
}

// StudyService drives the three study workflows: simulating and
// analyzing a single study, analyzing externally collected records,
// and searching for a minimal sample size.
type StudyService struct {
	cfg      StudyConfig
	gen      *assign.Generator
	sim      *simulate.Simulator
	analyzer ports.Analyzer
	rng      *rng.Provider
	log      *internal.Logger
}

// NewStudyService validates the study configuration and wires the
// components.
func NewStudyService(cfg StudyConfig, log *internal.Logger) (*StudyService, error) {
	if cfg.Design == nil {
		return nil, core.NewConfigurationError("study needs a design")
	}
	if err := cfg.Spec.Validate(cfg.Design); err != nil {
		return nil, err
	}
	if cfg.Analysis.Family != cfg.Spec.Family {
		return nil, core.NewConfigurationError(
			"analysis family %q does not match simulated family %q", cfg.Analysis.Family, cfg.Spec.Family)
	}
	gen, err := assign.NewGenerator(cfg.Assignment)
	if err != nil {
		return nil, err
	}
	analyzer, err := engine.New(cfg.Analysis)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = internal.NewDefaultLogger()
	}
	return &StudyService{
		cfg:      cfg,
		gen:      gen,
		sim:      simulate.NewSimulator(cfg.Spec),
		analyzer: analyzer,
		rng:      rng.NewProvider(cfg.MasterSeed),
		log:      log,
	}, nil
}

// RunOnce simulates a single study of n participants and analyzes it.
// The run index separates repeated runs of the same service: distinct
// indices draw distinct randomness, equal indices reproduce exactly.
func (s *StudyService) RunOnce(ctx context.Context, n int, run uint64) (*stats.AnalysisResult, error) {
	// Labels distinct from the power pipeline's keep single runs and
	// search trials on disjoint streams for any run index.
	ds, err := s.gen.Generate(ctx, s.cfg.Design, n, s.rng.Stream("run-assign", run))
	if err != nil {
		return nil, err
	}
	if err := s.sim.Run(ctx, ds, s.rng.Source("run-simulate", run)); err != nil {
		return nil, err
	}
	ds.Freeze()
	s.log.Debug("simulated %d participants for run %d", ds.Len(), run)
	return s.analyzer.Analyze(ctx, ds)
}

// AnalyzeRecords ingests externally collected records against the
// study's design and analyzes them. No simulation is involved; the
// records carry their own outcomes.
func (s *StudyService) AnalyzeRecords(ctx context.Context, records []dataset.Record) (*stats.AnalysisResult, error) {
	ds, err := dataset.FromRecords(s.cfg.Design, records)
	if err != nil {
		return nil, err
	}
	s.log.Debug("ingested %d records", ds.Len())
	return s.analyzer.Analyze(ctx, ds)
}

// MinimalSize searches for the smallest sample size at which the
// target term's power reaches the search target.
func (s *StudyService) MinimalSize(ctx context.Context, target string, cfg power.SearchConfig) (*stats.SearchResult, error) {
	pipeline, err := power.NewPipeline(s.cfg.Design, s.cfg.Spec, s.gen, s.analyzer, s.rng, target)
	if err != nil {
		return nil, err
	}
	search, err := power.NewSearch(pipeline, cfg, s.log)
	if err != nil {
		return nil, err
	}
	return search.Run(ctx)
}
