package integrators

import "github.com/san-kum/pbesim/internal/dynamo"

var classic = tableau{
	a: [][]float64{
		{},
		{0.5},
		{0, 0.5},
		{0, 0, 1},
	},
	c: []float64{0, 0.5, 0.5, 1},
	b: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
}

// RK4 is the classic fourth-order scheme without error control. It is the
// fixed-step option for runs where reproducible step counts matter more
// than accuracy per evaluation.
type RK4 struct {
	st *stager
}

func NewRK4() *RK4 {
	return &RK4{st: newStager(classic)}
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return r.st.run(sys, x, t, dt)
}
