package experiment

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/san-kum/pbesim/internal/config"
)

// Param is one swept field and the values it takes. Names are those of
// config.NumericFields.
type Param struct {
	Name   string
	Values []float64
}

// SweepRun is one grid point. Err is set when that point failed; the other
// points are unaffected.
type SweepRun struct {
	Params  map[string]float64
	Outcome *Outcome
	Err     error
}

// Sweep runs every combination of parameter values against a base config.
// Runs share nothing, so they execute in parallel.
type Sweep struct {
	reg     *Registry
	base    *config.Config
	params  []Param
	workers int
	logger  *slog.Logger
}

func NewSweep(reg *Registry, base *config.Config, params []Param, workers int, logger *slog.Logger) *Sweep {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweep{reg: reg, base: base, params: params, workers: workers, logger: logger}
}

// Points enumerates the cartesian product in parameter order.
func (s *Sweep) Points() []map[string]float64 {
	var out []map[string]float64
	s.enumerate(0, map[string]float64{}, &out)
	return out
}

func (s *Sweep) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(s.params) {
		point := make(map[string]float64, len(current))
		for k, v := range current {
			point[k] = v
		}
		*out = append(*out, point)
		return
	}
	p := s.params[depth]
	for _, v := range p.Values {
		current[p.Name] = v
		s.enumerate(depth+1, current, out)
	}
	delete(current, p.Name)
}

// Run returns one SweepRun per point, in Points order. Only cancellation
// of ctx is reported as an error.
func (s *Sweep) Run(ctx context.Context) ([]SweepRun, error) {
	points := s.Points()
	runs := make([]SweepRun, len(points))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, point := range points {
		wg.Add(1)
		go func(idx int, point map[string]float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			runs[idx] = SweepRun{Params: point}
			runs[idx].Outcome, runs[idx].Err = s.runPoint(ctx, idx, point)
		}(i, point)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Sweep) runPoint(ctx context.Context, idx int, point map[string]float64) (*Outcome, error) {
	log := s.logger.With("point", idx)
	rc := config.NewRunConfiguration(s.base.Clone(), log)
	for _, p := range s.params {
		if err := rc.SetNumber(p.Name, point[p.Name]); err != nil {
			return nil, err
		}
	}
	exp, err := New(s.reg, rc.Config(), log)
	if err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}

// Best returns the successful run with the smallest value of metric, which
// is a key of Outcome.Metrics or a Summary field name ("mean_size",
// "count", "yield", "max_mass_error_pct").
func Best(runs []SweepRun, metric string) (SweepRun, bool) {
	best := math.Inf(1)
	var out SweepRun
	found := false
	for _, r := range runs {
		if r.Err != nil || r.Outcome == nil {
			continue
		}
		v, ok := value(r.Outcome, metric)
		if !ok || math.IsNaN(v) {
			continue
		}
		if v < best {
			best, out, found = v, r, true
		}
	}
	return out, found
}

func value(o *Outcome, metric string) (float64, bool) {
	if v, ok := o.Metrics[metric]; ok {
		return v, true
	}
	switch metric {
	case "mean_size":
		return o.Summary.MeanSize, true
	case "count":
		return o.Summary.Count, true
	case "yield":
		return o.Summary.Yield, true
	case "max_mass_error_pct":
		return o.Summary.MaxMassError, true
	}
	return 0, false
}
