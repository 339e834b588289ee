// Package experiment turns a run file into a configured solver and runs it,
// alone or as a parallel parameter sweep.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/pbesim/internal/config"
	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/metrics"
	"github.com/san-kum/pbesim/internal/pbe"
)

type Experiment struct {
	cfg      *config.Config
	solver   *pbe.Solver
	problem  *pbe.Problem
	times    []float64
	warnings []dynamo.Warning
	metrics  []metrics.Metric
}

// Outcome is a finished run with its diagnostics.
type Outcome struct {
	Config  *config.Config
	Result  *pbe.Result
	Metrics map[string]float64
	Summary metrics.Summary
	Elapsed time.Duration
}

// New resolves names through reg and builds the problem. Unknown schemes
// and integrators are fatal.
func New(reg *Registry, cfg *config.Config, logger *slog.Logger) (*Experiment, error) {
	if logger == nil {
		logger = slog.Default()
	}
	scheme, err := reg.GetScheme(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	problem, warnings, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", cfg.Name, err)
	}
	times, err := cfg.OutputTimes()
	if err != nil {
		return nil, err
	}

	solverCfg := cfg.SolverConfig()
	if _, ok := integ().(dynamo.AdaptiveIntegrator); !ok {
		solverCfg.Adaptive = false
	}

	solver := pbe.New(scheme,
		pbe.WithIntegrator(integ),
		pbe.WithConfig(solverCfg),
		pbe.WithOptions(cfg.SolverOptions()),
		pbe.WithLogger(logger.With("run", cfg.Name)),
	)
	return &Experiment{
		cfg:      cfg,
		solver:   solver,
		problem:  problem,
		times:    times,
		warnings: warnings,
		metrics:  reg.DefaultMetrics(problem),
	}, nil
}

func (e *Experiment) AddMetric(m metrics.Metric) { e.metrics = append(e.metrics, m) }

func (e *Experiment) Problem() *pbe.Problem { return e.problem }

func (e *Experiment) Times() []float64 { return append([]float64(nil), e.times...) }

func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	res, err := e.solver.Run(ctx, e.problem, e.times)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(append([]dynamo.Warning(nil), e.warnings...), res.Warnings...)

	return &Outcome{
		Config:  e.cfg,
		Result:  res,
		Metrics: metrics.Observe(res, e.metrics...),
		Summary: metrics.Summarize(res),
		Elapsed: time.Since(start),
	}, nil
}
