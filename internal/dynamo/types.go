package dynamo

import "math"

// State is the flat vector an integrator advances. For the population
// balance it packs the absolute number density per cell followed by any
// scalar states such as the solute mass.
type State []float64

func (s State) Clone() State {
	return append(State(nil), s...)
}

// IsValid reports whether every entry is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is the right-hand side dx/dt = f(x, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Scaler is implemented by systems whose components live on very different
// magnitudes. The returned vector is a per-component reference magnitude used
// by the error norm of adaptive integrators.
type Scaler interface {
	Scale(x State) State
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

// AdaptiveIntegrator adds an embedded error estimate to Integrator.
type AdaptiveIntegrator interface {
	Integrator
	// Attempt takes one trial step and reports the scaled error ratio;
	// a ratio <= 1 means the step is acceptable at the given tolerance.
	Attempt(sys System, x State, t, dt, tol float64) (State, float64)
	// NextDt proposes the next step size given the error ratio of a step of size dt.
	NextDt(dt, ratio float64) float64
}

// Config bounds a single integration between two stops.
type Config struct {
	Dt        float64
	Tolerance float64
	MaxDt     float64
	MinDt     float64
	// MaxSteps caps attempted steps, rejected ones included. Zero means
	// no cap.
	MaxSteps int
	Adaptive bool
}

func DefaultConfig() Config {
	return Config{
		Dt:        1e-2,
		Tolerance: 1e-6,
		MaxDt:     math.Inf(1),
		MinDt:     1e-12,
		MaxSteps:  200000,
		Adaptive:  true,
	}
}

// Stats counts integrator effort. Evaluations counts right-hand side calls.
type Stats struct {
	Steps       int
	Rejected    int
	Evaluations int
	LastDt      float64
}

// Merge accumulates the counters of a later segment; LastDt follows the
// latest segment that took a step.
func (s *Stats) Merge(o Stats) {
	s.Steps += o.Steps
	s.Rejected += o.Rejected
	s.Evaluations += o.Evaluations
	if o.LastDt > 0 {
		s.LastDt = o.LastDt
	}
}
