package pbe

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/integrators"
	"github.com/san-kum/pbesim/internal/moments"
)

// CentralDifference discretizes the growth term on the fixed seed grid with
// centred face fluxes. Second order, but may oscillate near steep fronts.
type CentralDifference struct{}

func (CentralDifference) Name() string { return "central-difference" }

func (s CentralDifference) start(r *run, seed *distribution.Distribution, solute float64) (*state, error) {
	return startFixed(r, seed, solute)
}

func (s CentralDifference) advance(ctx context.Context, r *run, st *state, target float64) error {
	return advanceFixed(ctx, r, st, target, centralFlux)
}

func (s CentralDifference) snapshot(r *run, st *state) (*distribution.Distribution, error) {
	return snapshotFixed(r, st)
}

// HighResolution uses upwind face fluxes with a van Leer limited second
// order correction. It stays non-oscillatory at fronts.
type HighResolution struct{}

func (HighResolution) Name() string { return "high-resolution" }

func (s HighResolution) start(r *run, seed *distribution.Distribution, solute float64) (*state, error) {
	return startFixed(r, seed, solute)
}

func (s HighResolution) advance(ctx context.Context, r *run, st *state, target float64) error {
	return advanceFixed(ctx, r, st, target, limitedFlux)
}

func (s HighResolution) snapshot(r *run, st *state) (*distribution.Distribution, error) {
	return snapshotFixed(r, st)
}

// faceFlux returns the number flux through the face between cells f and f+1
// for face growth rate g.
type faceFlux func(g float64, n []float64, f int) float64

func centralFlux(g float64, n []float64, f int) float64 {
	return g * (n[f] + n[f+1]) / 2
}

func limitedFlux(g float64, n []float64, f int) float64 {
	k := len(n)
	if g >= 0 {
		up := n[f]
		if f > 0 {
			up += vanLeer(n[f+1]-n[f], n[f]-n[f-1])
		}
		return g * up
	}
	up := n[f+1]
	if f+2 < k {
		up += vanLeer(n[f]-n[f+1], n[f+1]-n[f+2])
	}
	return g * up
}

// vanLeer returns the limited half-slope correction ½·φ(a/b)·b.
func vanLeer(a, b float64) float64 {
	if a*b <= 0 {
		return 0
	}
	return a * b / (a + b)
}

func startFixed(r *run, seed *distribution.Distribution, solute float64) (*state, error) {
	grid := seed.Grid()
	n := seed.Density()
	m0 := r.env.medium(r.t0)
	for i := range n {
		n[i] *= m0
	}
	return &state{t: r.t0, grid: grid, n: n, solute: solute}, nil
}

func advanceFixed(ctx context.Context, r *run, st *state, target float64, flux faceFlux) error {
	if target <= st.t {
		return nil
	}
	sys := newFixedGridSystem(r.env, st.grid, flux)
	k := len(st.grid)

	x0 := make(dynamo.State, k+1)
	copy(x0, st.n)
	x0[k] = st.solute

	cfg, err := r.stepConfig(st.t)
	if err != nil {
		return err
	}
	x, stats, err := integrators.Integrate(ctx, sys, r.integ, x0, st.t, target, cfg, r.clampDensities(k))
	r.account(stats)
	if err != nil {
		return err
	}
	copy(st.n, x[:k])
	st.solute = x[k]
	st.t = target
	return nil
}

func snapshotFixed(r *run, st *state) (*distribution.Distribution, error) {
	m := r.env.medium(st.t)
	if !(m > 0) {
		return nil, fmt.Errorf("%w: medium mass %g at t=%g", ErrInvalidProblem, m, st.t)
	}
	density := make([]float64, len(st.n))
	for i, v := range st.n {
		density[i] = math.Max(v, 0) / m
	}
	return distribution.New(append([]float64(nil), st.grid...), density)
}

// fixedGridSystem is the finite-volume semi-discretization. Cell i is
// centred on grid point i with width equal to its trapezoid weight, so the
// cell sums are exactly the trapezoidal moments. State is [n_0..n_{K-1}, m_s].
//
// The lower face carries the nucleation flux plus any dissolution outflow.
// The upper face is closed.
type fixedGridSystem struct {
	env    *environment
	grid   []float64
	w      []float64
	points []float64 // y_min followed by the interior faces
	pows   [4][]float64
	flux   faceFlux
}

func newFixedGridSystem(env *environment, grid []float64, flux faceFlux) *fixedGridSystem {
	k := len(grid)
	s := &fixedGridSystem{
		env:    env,
		grid:   grid,
		w:      moments.Weights(grid),
		points: make([]float64, k),
		flux:   flux,
	}
	s.points[0] = grid[0]
	for f := 0; f < k-1; f++ {
		s.points[f+1] = (grid[f] + grid[f+1]) / 2
	}
	for p := range s.pows {
		s.pows[p] = make([]float64, k)
		for i, y := range grid {
			s.pows[p][i] = math.Pow(y, float64(p))
		}
	}
	return s
}

func (s *fixedGridSystem) StateDim() int { return len(s.grid) + 1 }

func (s *fixedGridSystem) Derive(x dynamo.State, t float64) dynamo.State {
	k := len(s.grid)
	n := x[:k]
	c := s.env.at(t, x[k])

	g := s.env.growth(c, s.points)
	b := s.env.birth(c, s.moments(n, c.M))

	phi := make([]float64, k+1)
	phi[0] = b + math.Min(g[0], 0)*n[0]
	for f := 0; f < k-1; f++ {
		phi[f+1] = s.flux(g[f+1], n, f)
	}

	dx := make(dynamo.State, k+1)
	dq := 0.0
	for i := 0; i < k; i++ {
		dx[i] = (phi[i] - phi[i+1]) / s.w[i]
		dq += s.w[i] * s.pows[3][i] * dx[i]
	}
	dx[k] = -s.env.rk * dq
	return dx
}

// Scale gives every density the same reference magnitude so that error
// control sees the tails relative to the peak.
func (s *fixedGridSystem) Scale(x dynamo.State) dynamo.State {
	k := len(s.grid)
	peak := 0.0
	for _, v := range x[:k] {
		peak = math.Max(peak, math.Abs(v))
	}
	ref := make(dynamo.State, k+1)
	for i := 0; i < k; i++ {
		ref[i] = peak
	}
	ref[k] = math.Abs(x[k])
	return ref
}

// moments returns μ0..μ3 per unit medium mass.
func (s *fixedGridSystem) moments(n []float64, m float64) []float64 {
	mu := make([]float64, 4)
	if !(m > 0) {
		return mu
	}
	for p := range mu {
		sum := 0.0
		for i, v := range n {
			sum += s.w[i] * v * s.pows[p][i]
		}
		mu[p] = sum / m
	}
	return mu
}
