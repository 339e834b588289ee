package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pbesim/internal/config"
	"github.com/san-kum/pbesim/internal/experiment"
	"github.com/san-kum/pbesim/internal/metrics"
)

var ErrNoTrials = errors.New("automation: monte carlo needs at least one trial")

// Range is a closed interval a parameter is drawn uniformly from.
type Range struct {
	Min, Max float64
}

type MonteCarloConfig struct {
	Base *config.Config
	// Perturb maps config.NumericFields names to their sampling range.
	Perturb map[string]Range
	Trials  int
	Seed    int64
	Workers int
}

// Trial is one sampled run. Err is set when that run failed.
type Trial struct {
	ID      int
	Params  map[string]float64
	Summary metrics.Summary
	Err     error
}

// Samples draws every trial's parameters up front so a seed fixes the
// study regardless of scheduling.
func (c *MonteCarloConfig) Samples() []map[string]float64 {
	fields := make([]string, 0, len(c.Perturb))
	for f := range c.Perturb {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	rng := rand.New(rand.NewSource(c.Seed))
	out := make([]map[string]float64, c.Trials)
	for i := range out {
		p := make(map[string]float64, len(fields))
		for _, f := range fields {
			r := c.Perturb[f]
			p[f] = r.Min + rng.Float64()*(r.Max-r.Min)
		}
		out[i] = p
	}
	return out
}

// RunMonteCarlo runs the sampled trials in parallel. Failed trials are
// recorded, not fatal; only cancellation aborts the study.
func RunMonteCarlo(ctx context.Context, reg *experiment.Registry, cfg *MonteCarloConfig, logger *slog.Logger) ([]Trial, error) {
	if cfg.Trials <= 0 {
		return nil, ErrNoTrials
	}
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	samples := cfg.Samples()
	trials := make([]Trial, len(samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, params := range samples {
		trials[i] = Trial{ID: i, Params: params}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				trials[i].Err = err
				return nil
			}
			sum, err := runTrial(gctx, reg, cfg.Base, i, params, logger)
			trials[i].Summary, trials[i].Err = sum, err
			if err != nil {
				logger.Warn("trial failed", "trial", i, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return trials, err
	}
	return trials, nil
}

func runTrial(ctx context.Context, reg *experiment.Registry, base *config.Config, id int, params map[string]float64, logger *slog.Logger) (metrics.Summary, error) {
	cfg := base.Clone()
	cfg.Name = fmt.Sprintf("%s-mc%03d", base.Name, id)
	rc := config.NewRunConfiguration(cfg, logger)
	for f, v := range params {
		if err := rc.SetNumber(f, v); err != nil {
			return metrics.Summary{}, err
		}
	}
	exp, err := experiment.New(reg, rc.Config(), logger)
	if err != nil {
		return metrics.Summary{}, err
	}
	out, err := exp.Run(ctx)
	if err != nil {
		return metrics.Summary{}, err
	}
	return out.Summary, nil
}

// Stats is the spread of the product over the successful trials.
type Stats struct {
	OK, Failed      int
	MeanSize        float64
	MeanSizeSD      float64
	Yield           float64
	YieldSD         float64
	MaxMassErrorPct float64
}

func MonteCarloStats(trials []Trial) Stats {
	var s Stats
	var sizes, yields []float64
	for _, t := range trials {
		if t.Err != nil {
			s.Failed++
			continue
		}
		s.OK++
		sizes = append(sizes, t.Summary.MeanSize)
		yields = append(yields, t.Summary.Yield)
		s.MaxMassErrorPct = math.Max(s.MaxMassErrorPct, t.Summary.MaxMassError)
	}
	s.MeanSize, s.MeanSizeSD = meanSD(sizes)
	s.Yield, s.YieldSD = meanSD(yields)
	return s
}

func meanSD(v []float64) (mean, sd float64) {
	switch len(v) {
	case 0:
		return 0, 0
	case 1:
		return v[0], 0
	}
	return stat.MeanStdDev(v, nil)
}
