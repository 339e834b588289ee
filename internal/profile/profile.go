// Package profile turns temperature and antisolvent specifications into
// continuous-time evaluators and collects their breakpoints into the set of
// times an integrator must stop at.
package profile

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/formula"
)

var (
	ErrNotMonotone  = errors.New("profile: antisolvent mass must be non-decreasing")
	ErrTimeOrder    = errors.New("profile: breakpoint times must be strictly increasing")
	ErrNegativeTime = errors.New("profile: breakpoint times must be non-negative")
	ErrEmpty        = errors.New("profile: table has no breakpoints")
)

// Profile is a scalar function of time.
type Profile interface {
	At(t float64) float64
	Eval(ts []float64) []float64
	// Breakpoints lists the times where the profile is not smooth.
	Breakpoints() []float64
}

type constant float64

// Constant returns v at every time.
func Constant(v float64) Profile { return constant(v) }

func (c constant) At(float64) float64 { return float64(c) }

func (c constant) Eval(ts []float64) []float64 {
	out := make([]float64, len(ts))
	for i := range out {
		out[i] = float64(c)
	}
	return out
}

func (c constant) Breakpoints() []float64 { return nil }

// Table interpolates linearly between (time, value) breakpoints and holds the
// end values flat outside them.
type Table struct {
	times  []float64
	values []float64
	pl     interp.PiecewiseLinear
}

func NewTable(times, values []float64) (*Table, error) {
	if len(times) == 0 {
		return nil, ErrEmpty
	}
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times, %d values", dynamo.ErrSizeMismatch, len(times), len(values))
	}
	for i, t := range times {
		if t < 0 {
			return nil, fmt.Errorf("%w: t[%d] = %g", ErrNegativeTime, i, t)
		}
		if i > 0 && !(t > times[i-1]) {
			return nil, fmt.Errorf("%w: t[%d] = %g after %g", ErrTimeOrder, i, t, times[i-1])
		}
	}
	tb := &Table{
		times:  append([]float64(nil), times...),
		values: append([]float64(nil), values...),
	}
	if len(times) > 1 {
		if err := tb.pl.Fit(tb.times, tb.values); err != nil {
			return nil, fmt.Errorf("profile: %w", err)
		}
	}
	return tb, nil
}

// NewAntisolventTable is NewTable for cumulative antisolvent mass, which may
// never decrease.
func NewAntisolventTable(times, values []float64) (*Table, error) {
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return nil, fmt.Errorf("%w: value %g at t=%g follows %g", ErrNotMonotone, values[i], timeAt(times, i), values[i-1])
		}
	}
	for i, v := range values {
		if v < 0 {
			return nil, fmt.Errorf("%w: value[%d] = %g is negative", ErrNotMonotone, i, v)
		}
	}
	return NewTable(times, values)
}

func (tb *Table) At(t float64) float64 {
	n := len(tb.times)
	switch {
	case t <= tb.times[0]:
		return tb.values[0]
	case t >= tb.times[n-1]:
		return tb.values[n-1]
	}
	return tb.pl.Predict(t)
}

func (tb *Table) Eval(ts []float64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = tb.At(t)
	}
	return out
}

func (tb *Table) Breakpoints() []float64 { return append([]float64(nil), tb.times...) }

func (tb *Table) Times() []float64  { return append([]float64(nil), tb.times...) }
func (tb *Table) Values() []float64 { return append([]float64(nil), tb.values...) }

type scalarFunc func(float64) float64

// FromFunc wraps a scalar function of time; vector evaluation broadcasts it.
func FromFunc(fn func(float64) float64) Profile { return scalarFunc(fn) }

func (f scalarFunc) At(t float64) float64 { return f(t) }

func (f scalarFunc) Eval(ts []float64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = f(t)
	}
	return out
}

func (f scalarFunc) Breakpoints() []float64 { return nil }

type vectorFunc func([]float64) []float64

// FromVectorFunc accepts an already vectorized function after checking that
// it returns one value per input time.
func FromVectorFunc(fn func([]float64) []float64) (Profile, error) {
	probe := []float64{0, 0.5, 1}
	if out := fn(probe); len(out) != len(probe) {
		return nil, fmt.Errorf("%w: vector profile returned %d values for %d times", dynamo.ErrSizeMismatch, len(out), len(probe))
	}
	return vectorFunc(fn), nil
}

func (f vectorFunc) At(t float64) float64 { return f([]float64{t})[0] }

func (f vectorFunc) Eval(ts []float64) []float64 { return f(ts) }

func (f vectorFunc) Breakpoints() []float64 { return nil }

// FromExpression compiles a formula in the variable t.
func FromExpression(src string) (Profile, error) {
	fm, err := formula.Compile(src, "t")
	if err != nil {
		return nil, err
	}
	return scalarFunc(func(t float64) float64 { return fm.MustEval(t) }), nil
}

// IsNonDecreasing samples p on [t0, t1] and reports whether it never drops.
func IsNonDecreasing(p Profile, t0, t1 float64, samples int) bool {
	if tb, ok := p.(*Table); ok {
		for i := 1; i < len(tb.values); i++ {
			if tb.values[i] < tb.values[i-1] {
				return false
			}
		}
		return true
	}
	if samples < 2 {
		samples = 2
	}
	prev := p.At(t0)
	for i := 1; i < samples; i++ {
		t := t0 + (t1-t0)*float64(i)/float64(samples-1)
		v := p.At(t)
		if v < prev-1e-12*math.Max(1, math.Abs(prev)) {
			return false
		}
		prev = v
	}
	return true
}

func timeAt(times []float64, i int) float64 {
	if i < len(times) {
		return times[i]
	}
	return math.NaN()
}
