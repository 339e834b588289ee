package pbe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/integrators"
	"github.com/san-kum/pbesim/internal/moments"
	"github.com/san-kum/pbesim/internal/profile"
)

var (
	ErrInvalidTimes    = errors.New("pbe: output times must be finite, non-negative and strictly increasing")
	ErrNegativeDensity = errors.New("pbe: negative densities clamped")
)

// Options tune a solver beyond its integrator settings.
type Options struct {
	// NegativeTolerance is the magnitude, relative to the peak density,
	// beyond which clamped negative densities are reported.
	NegativeTolerance float64
	// PivotInterval bounds the time between moving-pivot regroupings.
	// Zero means a hundredth of the simulated span.
	PivotInterval float64
}

func DefaultOptions() Options {
	return Options{NegativeTolerance: 1e-6}
}

// Solver runs a Problem with one scheme. It holds no per-run state and may
// be shared between goroutines.
type Solver struct {
	scheme   Scheme
	newInteg func() dynamo.Integrator
	cfg      dynamo.Config
	opts     Options
	logger   *slog.Logger
}

type Option func(*Solver)

// WithIntegrator sets the integrator factory; a fresh integrator is built
// for every run.
func WithIntegrator(factory func() dynamo.Integrator) Option {
	return func(s *Solver) { s.newInteg = factory }
}

func WithConfig(cfg dynamo.Config) Option {
	return func(s *Solver) { s.cfg = cfg }
}

func WithOptions(opts Options) Option {
	return func(s *Solver) { s.opts = opts }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(scheme Scheme, opts ...Option) *Solver {
	s := &Solver{
		scheme:   scheme,
		newInteg: func() dynamo.Integrator { return integrators.NewRK45() },
		cfg:      dynamo.DefaultConfig(),
		opts:     DefaultOptions(),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Solver) Scheme() Scheme { return s.scheme }

// Run integrates p from times[0] through every later output time. Any
// failure is fatal and no partial result is returned. Non-fatal findings
// are collected in Result.Warnings.
func (s *Solver) Run(ctx context.Context, p *Problem, times []float64) (*Result, error) {
	if s.scheme == nil {
		return nil, fmt.Errorf("%w: no scheme selected", ErrUnknownScheme)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateTimes(times); err != nil {
		return nil, err
	}

	started := time.Now()
	r := s.newRun(p, times)
	log := s.logger.With("scheme", s.scheme.Name())

	seed, err := r.seed(p)
	if err != nil {
		return nil, err
	}
	c0 := p.InitialConcentration
	if p.Saturated {
		c0 = r.env.at(r.t0, 0).Csat
	}
	m0 := r.env.medium(r.t0)

	st, err := s.scheme.start(r, seed, c0*m0)
	if err != nil {
		return nil, fmt.Errorf("pbe: %s: %w", s.scheme.Name(), err)
	}

	res := newResult(s.scheme.Name(), p, len(times))
	cond := r.env.at(r.t0, c0*m0)
	cond.C = c0
	res.add(times[0], seed, cond)

	nodes := profile.TimeNodes(r.t0, r.tEnd, times, p.Temperature, p.Antisolvent)
	log.Debug("run started", "nodes", len(nodes), "outputs", len(times), "sizes", seed.Len())

	next := 1
	for _, node := range nodes[1:] {
		if err := s.scheme.advance(ctx, r, st, node); err != nil {
			return nil, fmt.Errorf("pbe: %s: %w", s.scheme.Name(), err)
		}
		if next < len(times) && profile.SameTime(node, times[next]) {
			d, err := s.scheme.snapshot(r, st)
			if err != nil {
				return nil, fmt.Errorf("pbe: %s: %w", s.scheme.Name(), err)
			}
			res.add(times[next], d, r.env.at(st.t, st.solute))
			next++
		}
	}
	if next != len(times) {
		return nil, fmt.Errorf("pbe: %s: reached %d of %d output times", s.scheme.Name(), next, len(times))
	}

	r.finish()
	res.Warnings = r.warnings
	res.Stats = r.stats
	for _, w := range res.Warnings {
		log.Warn(w.Message, "source", w.Source, "err", w.Err)
	}
	log.Info("run complete",
		"steps", r.stats.Steps,
		"rejected", r.stats.Rejected,
		"evaluations", r.stats.Evaluations,
		"elapsed", time.Since(started))
	return res, nil
}

func validateTimes(times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("%w: no times given", ErrInvalidTimes)
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return fmt.Errorf("%w: times[%d] = %g", ErrInvalidTimes, i, t)
		}
		if i > 0 && (t <= times[i-1] || profile.SameTime(t, times[i-1])) {
			return fmt.Errorf("%w: times[%d] = %g after %g", ErrInvalidTimes, i, t, times[i-1])
		}
	}
	return nil
}

// run is the mutable state of one Solver.Run call.
type run struct {
	env    *environment
	integ  dynamo.Integrator
	cfg    dynamo.Config
	opts   Options
	logger *slog.Logger

	t0, tEnd float64
	// seed grid bounds; nuclei appear at floor
	floor         float64
	ceiling       float64
	pivotTol      float64
	pivotInterval float64

	stats    dynamo.Stats
	warnings []dynamo.Warning

	negatives     int
	worstNegative float64
	firstNegative float64
}

func (s *Solver) newRun(p *Problem, times []float64) *run {
	t0, tEnd := times[0], times[len(times)-1]
	r := &run{
		env:     newEnvironment(p, t0),
		integ:   s.newInteg(),
		cfg:     s.cfg,
		opts:    s.opts,
		logger:  s.logger,
		t0:      t0,
		tEnd:    tEnd,
		floor:   p.Initial.Min(),
		ceiling: p.Initial.Max(),
	}
	r.pivotTol = pivotEps * math.Max(1, math.Max(math.Abs(p.Initial.Min()), math.Abs(p.Initial.Max())))
	r.pivotInterval = s.opts.PivotInterval
	if !(r.pivotInterval > 0) {
		r.pivotInterval = (tEnd - t0) / 100
	}
	if !(r.pivotInterval > 0) {
		r.pivotInterval = math.Inf(1)
	}
	return r
}

// seed materializes the initial distribution and applies the seed mass.
func (r *run) seed(p *Problem) (*distribution.Distribution, error) {
	seed, err := distribution.New(p.Initial.Grid(), p.Initial.Density())
	if err != nil {
		return nil, fmt.Errorf("%w: initial distribution: %w", ErrInvalidProblem, err)
	}
	if p.SeedMass <= 0 {
		return seed, nil
	}
	mu3 := moments.Moment(seed, 3)
	if !(mu3 > 0) {
		r.warn("seed", "seed mass ignored: initial distribution has no third moment", nil)
		return seed, nil
	}
	return seed.Scaled(p.SeedMass / (r.env.rk * r.env.medium(r.t0) * mu3))
}

// stepConfig hands the integrator what is left of the step budget.
func (r *run) stepConfig(t float64) (dynamo.Config, error) {
	cfg := r.cfg
	if r.stats.LastDt > 0 {
		cfg.Dt = r.stats.LastDt
	}
	if cfg.MaxSteps > 0 {
		used := r.stats.Steps + r.stats.Rejected
		if used >= cfg.MaxSteps {
			return cfg, &dynamo.SimulationError{Step: r.stats.Steps, Time: t, Wrapped: dynamo.ErrStepBudget}
		}
		cfg.MaxSteps -= used
	}
	return cfg, nil
}

func (r *run) account(s dynamo.Stats) {
	r.stats.Merge(s)
}

func (r *run) warn(source, msg string, err error) {
	r.warnings = append(r.warnings, dynamo.Warning{Source: source, Message: msg, Err: err})
}

// clampDensities zeroes negative densities after every accepted step and
// tallies the ones larger than the reporting tolerance.
func (r *run) clampDensities(k int) integrators.Hook {
	return func(x dynamo.State, t float64) {
		peak := 0.0
		for _, v := range x[:k] {
			peak = math.Max(peak, v)
		}
		for i := 0; i < k; i++ {
			if x[i] >= 0 {
				continue
			}
			rel := math.Inf(1)
			if peak > 0 {
				rel = -x[i] / peak
			}
			if rel > r.opts.NegativeTolerance {
				if r.negatives == 0 {
					r.firstNegative = t
				}
				r.negatives++
				r.worstNegative = math.Max(r.worstNegative, rel)
			}
			x[i] = 0
		}
	}
}

func (r *run) finish() {
	if r.negatives == 0 {
		return
	}
	r.warn("clamp",
		fmt.Sprintf("%d negative densities beyond %.3g of peak, worst %.3g, first at t=%g",
			r.negatives, r.opts.NegativeTolerance, r.worstNegative, r.firstNegative),
		ErrNegativeDensity)
}
