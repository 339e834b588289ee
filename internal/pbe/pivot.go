package pbe

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/integrators"
	"github.com/san-kum/pbesim/internal/moments"
	"github.com/san-kum/pbesim/internal/profile"
)

// pivotEps is the relative distance under which two pivots are one.
const pivotEps = 1e-9

// MovingPivot lets every grid point ride on the growth law, so pure growth
// is transported without numerical diffusion. Nuclei collect at the lower
// bound of the seed grid and are released as a new pivot at every
// regrouping; pivots that cross are merged and pivots that dissolve below
// the lower bound return their mass to the solution.
type MovingPivot struct{}

func (MovingPivot) Name() string { return "moving-pivot" }

func (MovingPivot) start(r *run, seed *distribution.Distribution, solute float64) (*state, error) {
	grid := seed.Grid()
	n := seed.Density()
	w := moments.Weights(grid)
	m0 := r.env.medium(r.t0)
	for i := range n {
		n[i] *= m0 * w[i]
	}
	return &state{t: r.t0, grid: grid, n: n, solute: solute}, nil
}

func (mp MovingPivot) advance(ctx context.Context, r *run, st *state, target float64) error {
	for st.t < target {
		next := math.Min(st.t+r.pivotInterval, target)
		if profile.SameTime(next, target) {
			next = target
		}
		if err := mp.segment(ctx, r, st, next); err != nil {
			return err
		}
	}
	return nil
}

// segment integrates pivots between two regroupings.
func (mp MovingPivot) segment(ctx context.Context, r *run, st *state, target float64) error {
	p := len(st.grid)
	sys := &pivotSystem{env: r.env, p: p, floor: r.floor}

	x0 := make(dynamo.State, 2*p+2)
	copy(x0, st.grid)
	copy(x0[p:], st.n)
	x0[2*p+1] = st.solute

	cfg, err := r.stepConfig(st.t)
	if err != nil {
		return err
	}
	x, stats, err := integrators.Integrate(ctx, sys, r.integ, x0, st.t, target, cfg, nil)
	r.account(stats)
	if err != nil {
		return err
	}

	st.grid = append(st.grid[:0], x[:p]...)
	st.n = append(st.n[:0], x[p:2*p]...)
	st.solute = x[2*p+1]
	st.t = target
	return mp.regroup(r, st, x[2*p])
}

// regroup dissolves, merges and releases nuclei. Every operation keeps
// Σ N·y³ plus the solute mass unchanged.
func (mp MovingPivot) regroup(r *run, st *state, nuclei float64) error {
	eps := r.pivotTol

	ys := st.grid[:0]
	ns := st.n[:0]
	dissolved := 0
	for i, y := range st.grid {
		if y < r.floor-eps {
			st.solute += r.env.rk * st.n[i] * y * y * y
			dissolved++
			continue
		}
		ys = append(ys, y)
		ns = append(ns, st.n[i])
	}

	merged := 0
	for changed := true; changed; {
		changed = false
		for i := 0; i+1 < len(ys); i++ {
			if ys[i+1]-ys[i] > eps {
				continue
			}
			ys[i], ns[i] = combine(ys[i], ns[i], ys[i+1], ns[i+1])
			ys = append(ys[:i+1], ys[i+2:]...)
			ns = append(ns[:i+1], ns[i+2:]...)
			merged++
			changed = true
		}
	}

	if nuclei > 0 {
		if len(ys) > 0 && math.Abs(ys[0]-r.floor) <= eps {
			ys[0], ns[0] = combine(ys[0], ns[0], r.floor, nuclei)
		} else {
			ys = append([]float64{r.floor}, ys...)
			ns = append([]float64{nuclei}, ns...)
		}
	}

	ys, ns = mp.pad(r, ys, ns)
	st.grid, st.n = ys, ns
	if dissolved > 0 || merged > 0 {
		r.logger.Debug("pivots regrouped", "t", st.t, "dissolved", dissolved, "merged", merged, "pivots", len(ys))
	}
	return nil
}

// pad keeps at least two pivots after a full dissolution by adding empty
// pivots at the seed grid bounds. Empty pivots carry no mass and ride the
// growth law like any other.
func (MovingPivot) pad(r *run, ys, ns []float64) ([]float64, []float64) {
	eps := r.pivotTol
	switch len(ys) {
	case 0:
		return []float64{r.floor, r.ceiling}, []float64{0, 0}
	case 1:
		if ys[0] > r.floor+eps {
			return []float64{r.floor, ys[0]}, []float64{0, ns[0]}
		}
		return []float64{ys[0], math.Max(r.ceiling, ys[0]+r.floor+1)}, []float64{ns[0], 0}
	}
	return ys, ns
}

// combine merges two pivots into one carrying the same number and mass.
func combine(ya, na, yb, nb float64) (float64, float64) {
	n := na + nb
	if n <= 0 {
		return (ya + yb) / 2, n
	}
	return math.Cbrt((na*ya*ya*ya + nb*yb*yb*yb) / n), n
}

func (MovingPivot) snapshot(r *run, st *state) (*distribution.Distribution, error) {
	m := r.env.medium(st.t)
	if !(m > 0) {
		return nil, fmt.Errorf("%w: medium mass %g at t=%g", ErrInvalidProblem, m, st.t)
	}
	w := moments.Weights(st.grid)
	density := make([]float64, len(st.n))
	for i, v := range st.n {
		density[i] = math.Max(v, 0) / w[i] / m
	}
	return distribution.New(append([]float64(nil), st.grid...), density)
}

// pivotSystem is [y_0..y_{P-1}, N_0..N_{P-1}, nuclei, m_s]. Counts are
// constant between regroupings; nuclei accumulate at the floor size.
type pivotSystem struct {
	env   *environment
	p     int
	floor float64
}

func (s *pivotSystem) StateDim() int { return 2*s.p + 2 }

func (s *pivotSystem) Derive(x dynamo.State, t float64) dynamo.State {
	p := s.p
	y, counts, nuclei := x[:p], x[p:2*p], x[2*p]
	c := s.env.at(t, x[2*p+1])

	g := s.env.growth(c, y)
	b := s.env.birth(c, s.moments(y, counts, nuclei, c.M))

	dx := make(dynamo.State, 2*p+2)
	dq := b * s.floor * s.floor * s.floor
	for i := 0; i < p; i++ {
		dx[i] = g[i]
		dq += 3 * counts[i] * y[i] * y[i] * g[i]
	}
	dx[2*p] = b
	dx[2*p+1] = -s.env.rk * dq
	return dx
}

func (s *pivotSystem) Scale(x dynamo.State) dynamo.State {
	p := s.p
	span, peak := 0.0, math.Abs(x[2*p])
	for i := 0; i < p; i++ {
		span = math.Max(span, math.Abs(x[i]))
		peak = math.Max(peak, math.Abs(x[p+i]))
	}
	ref := make(dynamo.State, 2*p+2)
	for i := 0; i < p; i++ {
		ref[i] = span
		ref[p+i] = peak
	}
	ref[2*p] = peak
	ref[2*p+1] = math.Abs(x[2*p+1])
	return ref
}

func (s *pivotSystem) moments(y, counts []float64, nuclei, m float64) []float64 {
	mu := make([]float64, 4)
	if !(m > 0) {
		return mu
	}
	for i, yi := range y {
		pw := 1.0
		for k := range mu {
			mu[k] += counts[i] * pw
			pw *= yi
		}
	}
	pw := 1.0
	for k := range mu {
		mu[k] += nuclei * pw
		mu[k] /= m
		pw *= s.floor
	}
	return mu
}
