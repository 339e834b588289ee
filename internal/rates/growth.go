package rates

import (
	"fmt"

	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/formula"
)

// GrowthSpec declares a growth law. Build one with the Growth* constructors.
type GrowthSpec struct {
	kind  Kind
	value float64
	src   string
	st    func(s, temp float64) float64
	sy    func(s float64, y []float64) []float64
	full  GrowthFunc
}

// GrowthConstant is a size-, supersaturation- and temperature-independent rate.
func GrowthConstant(g float64) GrowthSpec { return GrowthSpec{kind: KindConstant, value: g} }

// GrowthExpression is a formula in S, T and y, evaluated per size.
func GrowthExpression(src string) GrowthSpec { return GrowthSpec{kind: KindExpression, src: src} }

// GrowthOfST is a size-independent law G(S, T).
func GrowthOfST(fn func(s, temp float64) float64) GrowthSpec {
	return GrowthSpec{kind: KindOfST, st: fn}
}

// GrowthOfSY is a temperature-independent law G(S, y). A law that returns a
// single value is treated as size-independent and broadcast.
func GrowthOfSY(fn func(s float64, y []float64) []float64) GrowthSpec {
	return GrowthSpec{kind: KindOfSX, sy: fn}
}

// GrowthFull is already canonical.
func GrowthFull(fn GrowthFunc) GrowthSpec { return GrowthSpec{kind: KindFull, full: fn} }

func (g GrowthSpec) Kind() Kind { return g.kind }

func (g GrowthSpec) String() string {
	switch g.kind {
	case KindConstant:
		return fmt.Sprintf("%g", g.value)
	case KindExpression:
		return g.src
	}
	return g.kind.String()
}

// AdaptGrowth returns the canonical growth function for spec.
func AdaptGrowth(spec GrowthSpec) (GrowthFunc, []dynamo.Warning, error) {
	var warnings []dynamo.Warning

	switch spec.kind {
	case KindConstant:
		if !finite(spec.value) {
			return nil, nil, fmt.Errorf("%w: growth rate %g", ErrInvalidValue, spec.value)
		}
		g := spec.value
		return func(_, _ float64, y []float64) []float64 { return broadcast(g, len(y)) }, nil, nil

	case KindExpression:
		fm, err := formula.Compile(spec.src, "S", "T", "y")
		if err != nil {
			return nil, nil, err
		}
		fn := func(s, temp float64, y []float64) []float64 {
			out := make([]float64, len(y))
			for i, v := range y {
				out[i] = fm.MustEval(s, temp, v)
			}
			return out
		}
		return fn, probeGrowth(fn, warnings), nil

	case KindOfST:
		if spec.st == nil {
			return nil, nil, ErrNilLaw
		}
		st := spec.st
		fn := func(s, temp float64, y []float64) []float64 { return broadcast(st(s, temp), len(y)) }
		return fn, probeGrowth(fn, warnings), nil

	case KindOfSX:
		if spec.sy == nil {
			return nil, nil, ErrNilLaw
		}
		sy := spec.sy
		out := sy(probeS, []float64{1, 2})
		var fn GrowthFunc
		switch len(out) {
		case 1:
			fn = func(s, _ float64, y []float64) []float64 {
				r := sy(s, y)
				if len(r) == 0 {
					return broadcast(0, len(y))
				}
				return broadcast(r[0], len(y))
			}
		case 2:
			fn = func(s, _ float64, y []float64) []float64 { return sy(s, y) }
		default:
			warnings = append(warnings, warn("growth", fmt.Sprintf("f(S,y) returned %d values for 2 sizes", len(out)), dynamo.ErrSizeMismatch))
			fn = func(s, _ float64, y []float64) []float64 { return sy(s, y) }
		}
		return fn, probeGrowth(fn, warnings), nil

	case KindFull:
		if spec.full == nil {
			return nil, nil, ErrNilLaw
		}
		return spec.full, probeGrowth(spec.full, warnings), nil
	}

	return nil, nil, fmt.Errorf("rates: unknown growth kind %v", spec.kind)
}

// probeGrowth evaluates fn on a ten-point size probe and records shape and
// finiteness problems.
func probeGrowth(fn GrowthFunc, warnings []dynamo.Warning) []dynamo.Warning {
	y := probeSizes(probeSize)
	out := fn(probeS, probeT, y)
	if len(out) != len(y) {
		return append(warnings, warn("growth", fmt.Sprintf("law returned %d values for %d sizes", len(out), len(y)), dynamo.ErrSizeMismatch))
	}
	if !allFinite(out) {
		return append(warnings, warn("growth", "non-finite rate at probe point", ErrNonFiniteRate))
	}
	return warnings
}
