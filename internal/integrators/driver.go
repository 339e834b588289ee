package integrators

import (
	"context"
	"math"

	"github.com/san-kum/pbesim/internal/dynamo"
)

// Hook runs after every accepted step and may modify x in place.
type Hook func(x dynamo.State, t float64)

// Integrate advances x0 from t0 to exactly t1. Adaptive integrators are driven
// with error control when cfg.Adaptive is set; otherwise fixed steps of cfg.Dt
// are taken, the last one shortened to land on t1.
//
// Exhausting cfg.MaxSteps or shrinking below cfg.MinDt is fatal and reported
// as a *dynamo.SimulationError.
func Integrate(ctx context.Context, sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, t0, t1 float64, cfg dynamo.Config, hook Hook) (dynamo.State, dynamo.Stats, error) {
	var stats dynamo.Stats
	x := x0.Clone()
	if t1 <= t0 {
		return x, stats, nil
	}

	cs := &countingSystem{sys: sys}
	adaptive, ok := integ.(dynamo.AdaptiveIntegrator)
	useAdaptive := ok && cfg.Adaptive

	maxDt := cfg.MaxDt
	if maxDt <= 0 || math.IsNaN(maxDt) {
		maxDt = math.Inf(1)
	}
	dt := cfg.Dt
	if dt <= 0 {
		dt = (t1 - t0) / 100
	}
	dt = math.Min(dt, maxDt)

	t := t0
	attempts := 0
	fail := func(err error) (dynamo.State, dynamo.Stats, error) {
		stats.Evaluations = cs.evals
		return nil, stats, &dynamo.SimulationError{Step: stats.Steps, Time: t, State: x, Wrapped: err}
	}
	for t < t1 {
		select {
		case <-ctx.Done():
			return fail(dynamo.ErrContextCanceled)
		default:
		}

		if cfg.MaxSteps > 0 && attempts >= cfg.MaxSteps {
			return fail(dynamo.ErrStepBudget)
		}
		attempts++

		remaining := t1 - t
		h := math.Min(dt, remaining)
		last := h >= remaining

		var xNew dynamo.State
		if useAdaptive {
			var ratio float64
			xNew, ratio = adaptive.Attempt(cs, x, t, h, cfg.Tolerance)
			if ratio > 1 || !xNew.IsValid() {
				stats.Rejected++
				dt = adaptive.NextDt(h, ratio)
				if math.IsInf(ratio, 1) || !xNew.IsValid() {
					dt = h * 0.2
				}
				if dt < cfg.MinDt {
					return fail(dynamo.ErrStepTooSmall)
				}
				continue
			}
			next := adaptive.NextDt(h, ratio)
			if last && h < dt {
				next = math.Max(next, dt)
			}
			dt = math.Min(next, maxDt)
		} else {
			xNew = integ.Step(cs, x, t, h)
			if !xNew.IsValid() {
				return fail(dynamo.ErrInvalidState)
			}
		}

		if last {
			t = t1
		} else {
			t += h
		}
		x = xNew
		stats.Steps++
		stats.LastDt = dt

		if hook != nil {
			hook(x, t)
		}
	}

	stats.Evaluations = cs.evals
	return x, stats, nil
}

type countingSystem struct {
	sys   dynamo.System
	evals int
}

func (c *countingSystem) Derive(x dynamo.State, t float64) dynamo.State {
	c.evals++
	return c.sys.Derive(x, t)
}

func (c *countingSystem) StateDim() int { return c.sys.StateDim() }

func (c *countingSystem) Scale(x dynamo.State) dynamo.State {
	if sc, ok := c.sys.(dynamo.Scaler); ok {
		return sc.Scale(x)
	}
	return nil
}
