package integrators

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/pbesim/internal/dynamo"
)

// desupersaturation is dc/dt = -k c^2, which has c(t) = c0 / (1 + k c0 t).
type desupersaturation struct{ k float64 }

func (d desupersaturation) StateDim() int { return 1 }
func (d desupersaturation) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{-d.k * x[0] * x[0]}
}

// twoScales decays a bulk component and a tail component living twelve
// orders of magnitude lower.
type twoScales struct{ ref dynamo.State }

func (s twoScales) StateDim() int { return 2 }
func (s twoScales) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{-x[0], -10 * x[1]}
}

type scaledTwoScales struct{ twoScales }

func (s scaledTwoScales) Scale(dynamo.State) dynamo.State { return s.ref }

func march(integ dynamo.Integrator, sys dynamo.System, x dynamo.State, dt float64, steps int) dynamo.State {
	for i := 0; i < steps; i++ {
		x = integ.Step(sys, x, float64(i)*dt, dt)
	}
	return x
}

func TestFixedStepAccuracy(t *testing.T) {
	sys := desupersaturation{k: 1}
	want := 1 / (1 + 1.0)
	for name, integ := range map[string]dynamo.Integrator{"rk4": NewRK4(), "rk45": NewRK45()} {
		t.Run(name, func(t *testing.T) {
			got := march(integ, sys, dynamo.State{1}, 0.01, 100)
			if math.Abs(got[0]-want) > 1e-7 {
				t.Errorf("c(1) = %.12f, want %.12f", got[0], want)
			}
		})
	}
}

func TestLocalErrorOrder(t *testing.T) {
	sys := &decay{rate: 1}
	tests := []struct {
		name     string
		integ    dynamo.Integrator
		minRatio float64
	}{
		{"rk4", NewRK4(), 20},
		{"rk45", NewRK45(), 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coarse := tt.integ.Step(sys, dynamo.State{1}, 0, 0.2)
			fine := tt.integ.Step(sys, dynamo.State{1}, 0, 0.1)
			eCoarse := math.Abs(coarse[0] - math.Exp(-0.2))
			eFine := math.Abs(fine[0] - math.Exp(-0.1))
			if ratio := eCoarse / eFine; ratio < tt.minRatio {
				t.Errorf("halving h reduced the error by %.1f, want at least %.0f", ratio, tt.minRatio)
			}
		})
	}
}

func TestAttemptErrorRatio(t *testing.T) {
	integ := NewRK45()
	sys := &decay{rate: 1}

	_, small := integ.Attempt(sys, dynamo.State{1}, 0, 0.01, 1e-8)
	_, large := integ.Attempt(sys, dynamo.State{1}, 0, 2, 1e-8)

	if small > 1 {
		t.Errorf("dt=0.01 rejected with ratio %g", small)
	}
	if large <= 1 {
		t.Errorf("dt=2 accepted with ratio %g", large)
	}
	if next := integ.NextDt(2, large); next >= 2 || next < 2*0.2 {
		t.Errorf("NextDt after rejection = %g", next)
	}
	if next := integ.NextDt(0.01, 0); math.Abs(next-0.1) > 1e-15 {
		t.Errorf("NextDt with zero error = %g, want growth capped at 10x", next)
	}
}

func TestAttemptUsesReferenceScale(t *testing.T) {
	integ := NewRK45()
	x := dynamo.State{1, 1e-12}
	plain := twoScales{ref: dynamo.State{1, 1}}

	_, unscaled := integ.Attempt(plain, x, 0, 0.1, 1e-6)
	_, scaled := integ.Attempt(scaledTwoScales{plain}, x, 0, 0.1, 1e-6)

	if !(scaled < unscaled) {
		t.Errorf("reference scale did not relax the tail: scaled %g, unscaled %g", scaled, unscaled)
	}
}

func TestAttemptNaN(t *testing.T) {
	integ := NewRK45()
	_, ratio := integ.Attempt(&decay{rate: 1}, dynamo.State{math.NaN()}, 0, 0.1, 1e-6)
	if !math.IsInf(ratio, 1) {
		t.Errorf("ratio = %g, want +Inf", ratio)
	}
}

// advection is first-order upwind transport on 200 cells, the shape of a
// fixed-grid growth term.
type advection struct{ n int }

func (a *advection) StateDim() int { return a.n }
func (a *advection) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, a.n)
	for i := 1; i < a.n; i++ {
		dx[i] = -(x[i] - x[i-1])
	}
	return dx
}

func pulse(n int) dynamo.State {
	x := make(dynamo.State, n)
	for i := n / 10; i < n/5; i++ {
		x[i] = 1
	}
	return x
}

func BenchmarkStep(b *testing.B) {
	sys := &advection{n: 200}
	for name, integ := range map[string]dynamo.Integrator{"rk4": NewRK4(), "rk45": NewRK45()} {
		b.Run(name, func(b *testing.B) {
			x := pulse(sys.n)
			for i := 0; i < b.N; i++ {
				x = integ.Step(sys, x, 0, 0.01)
			}
		})
	}
}

func BenchmarkIntegrateAdvection(b *testing.B) {
	sys := &advection{n: 200}
	x0 := pulse(sys.n)
	cfg := dynamo.DefaultConfig()
	for i := 0; i < b.N; i++ {
		if _, _, err := Integrate(context.Background(), sys, NewRK45(), x0, 0, 10, cfg, nil); err != nil {
			b.Fatal(err)
		}
	}
}
