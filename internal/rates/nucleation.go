package rates

import (
	"fmt"

	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/formula"
)

// NucleationSpec declares a nucleation law. Build one with the Nucleation*
// constructors.
type NucleationSpec struct {
	kind  Kind
	value float64
	src   string
	st    func(s, temp float64) float64
	sm    func(s float64, mu []float64) float64
	full  NucleationFunc
}

func NucleationConstant(b float64) NucleationSpec {
	return NucleationSpec{kind: KindConstant, value: b}
}

// NucleationExpression is a formula in S, T and the moments mu0..mu3.
func NucleationExpression(src string) NucleationSpec {
	return NucleationSpec{kind: KindExpression, src: src}
}

// NucleationOfST is a primary-nucleation style law B(S, T).
func NucleationOfST(fn func(s, temp float64) float64) NucleationSpec {
	return NucleationSpec{kind: KindOfST, st: fn}
}

// NucleationOfSM is a temperature-independent law B(S, μ), typically
// secondary nucleation driven by suspension density.
func NucleationOfSM(fn func(s float64, mu []float64) float64) NucleationSpec {
	return NucleationSpec{kind: KindOfSX, sm: fn}
}

func NucleationFull(fn NucleationFunc) NucleationSpec {
	return NucleationSpec{kind: KindFull, full: fn}
}

func (n NucleationSpec) Kind() Kind { return n.kind }

func (n NucleationSpec) String() string {
	switch n.kind {
	case KindConstant:
		return fmt.Sprintf("%g", n.value)
	case KindExpression:
		return n.src
	}
	return n.kind.String()
}

// AdaptNucleation returns the canonical nucleation function for spec. The
// probe protocol matches AdaptGrowth.
func AdaptNucleation(spec NucleationSpec) (NucleationFunc, []dynamo.Warning, error) {
	var fn NucleationFunc

	switch spec.kind {
	case KindConstant:
		if !finite(spec.value) || spec.value < 0 {
			return nil, nil, fmt.Errorf("%w: nucleation rate %g", ErrInvalidValue, spec.value)
		}
		b := spec.value
		return func(_, _ float64, _ []float64) float64 { return b }, nil, nil

	case KindExpression:
		fm, err := formula.Compile(spec.src, "S", "T", "mu0", "mu1", "mu2", "mu3")
		if err != nil {
			return nil, nil, err
		}
		fn = func(s, temp float64, mu []float64) float64 {
			var m [4]float64
			copy(m[:], mu)
			return fm.MustEval(s, temp, m[0], m[1], m[2], m[3])
		}

	case KindOfST:
		if spec.st == nil {
			return nil, nil, ErrNilLaw
		}
		st := spec.st
		fn = func(s, temp float64, _ []float64) float64 { return st(s, temp) }

	case KindOfSX:
		if spec.sm == nil {
			return nil, nil, ErrNilLaw
		}
		sm := spec.sm
		fn = func(s, _ float64, mu []float64) float64 { return sm(s, mu) }

	case KindFull:
		if spec.full == nil {
			return nil, nil, ErrNilLaw
		}
		fn = spec.full

	default:
		return nil, nil, fmt.Errorf("rates: unknown nucleation kind %v", spec.kind)
	}

	return fn, probeNucleation(fn), nil
}

func probeNucleation(fn NucleationFunc) []dynamo.Warning {
	b := fn(probeS, probeT, probeMu)
	if !finite(b) {
		return []dynamo.Warning{warn("nucleation", "non-finite rate at probe point", ErrNonFiniteRate)}
	}
	return nil
}
