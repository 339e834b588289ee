package integrators

import "github.com/san-kum/pbesim/internal/dynamo"

// tableau is an explicit Runge-Kutta scheme. Row i of a holds the
// coefficients of the stages before stage i; c[i] is that stage's time
// offset as a fraction of the step.
type tableau struct {
	a [][]float64
	c []float64
	b []float64
}

// stager evaluates the stages of one tableau and reuses its buffers between
// steps.
type stager struct {
	tab   tableau
	k     []dynamo.State
	probe dynamo.State
}

func newStager(tab tableau) *stager {
	return &stager{tab: tab}
}

func (s *stager) resize(n int) {
	if len(s.probe) == n {
		return
	}
	s.probe = make(dynamo.State, n)
	s.k = make([]dynamo.State, len(s.tab.c))
	for i := range s.k {
		s.k[i] = make(dynamo.State, n)
	}
}

// run fills every stage derivative for a step of size h from (x, t) and
// returns the weighted combination x + h*sum(b_i k_i).
func (s *stager) run(sys dynamo.System, x dynamo.State, t, h float64) dynamo.State {
	s.resize(len(x))
	for stage, row := range s.tab.a {
		for j := range x {
			acc := 0.0
			for p, coef := range row {
				acc += coef * s.k[p][j]
			}
			s.probe[j] = x[j] + h*acc
		}
		copy(s.k[stage], sys.Derive(s.probe, t+s.tab.c[stage]*h))
	}
	return s.combine(x, h, s.tab.b)
}

func (s *stager) combine(x dynamo.State, h float64, w []float64) dynamo.State {
	out := make(dynamo.State, len(x))
	for j := range x {
		acc := 0.0
		for p, coef := range w {
			if coef != 0 {
				acc += coef * s.k[p][j]
			}
		}
		out[j] = x[j] + h*acc
	}
	return out
}
