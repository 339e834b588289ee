package integrators

import (
	"math"

	"github.com/san-kum/pbesim/internal/dynamo"
)

// dormandPrince is the 5(4) pair. The seventh stage is evaluated at the
// fifth-order solution and only feeds the error estimate.
var dormandPrince = tableau{
	a: [][]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	},
	c: []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
	b: []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
}

// embedded fourth-order weights
var dpLower = []float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}

// RK45 is the Dormand-Prince embedded pair with a per-component relative
// error norm. Systems implementing dynamo.Scaler supply a reference
// magnitude per component so that tiny densities in the tails of a
// distribution do not dictate the step size.
type RK45 struct {
	st    *stager
	delta []float64

	// step controller
	safety, shrinkLimit, growLimit float64
	floor                          float64
}

func NewRK45() *RK45 {
	delta := make([]float64, len(dormandPrince.b))
	for i := range delta {
		delta[i] = dormandPrince.b[i] - dpLower[i]
	}
	return &RK45{
		st:          newStager(dormandPrince),
		delta:       delta,
		safety:      0.9,
		shrinkLimit: 0.2,
		growLimit:   10,
		floor:       1e-12,
	}
}

// Step takes a single uncontrolled step.
func (r *RK45) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return r.st.run(sys, x, t, dt)
}

// Attempt returns the fifth-order solution and the error ratio relative to
// tol. NaN anywhere in the estimate yields +Inf so the caller rejects.
func (r *RK45) Attempt(sys dynamo.System, x dynamo.State, t, dt, tol float64) (dynamo.State, float64) {
	next := r.st.run(sys, x, t, dt)

	var ref dynamo.State
	if sc, ok := sys.(dynamo.Scaler); ok {
		ref = sc.Scale(x)
	}

	// the stage-7 row equals b, so the last stage already holds f(next)
	diff := r.st.combine(make(dynamo.State, len(x)), dt, r.delta)
	worst := 0.0
	for j, d := range diff {
		mag := math.Max(math.Abs(x[j]), math.Abs(next[j]))
		if j < len(ref) && ref[j] > mag {
			mag = ref[j]
		}
		worst = math.Max(worst, math.Abs(d)/(mag+r.floor))
	}
	if math.IsNaN(worst) {
		return next, math.Inf(1)
	}
	return next, worst / tol
}

// NextDt proposes the size of the following step. Rejections use the
// fourth-order exponent, acceptances the fifth.
func (r *RK45) NextDt(dt, ratio float64) float64 {
	switch {
	case ratio > 1:
		return dt * math.Max(r.shrinkLimit, r.safety*math.Pow(ratio, -1.0/4))
	case ratio > 0:
		return dt * math.Min(r.growLimit, r.safety*math.Pow(ratio, -1.0/5))
	default:
		return dt * r.growLimit
	}
}
