package rates

import (
	"fmt"

	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/formula"
)

// SolubilitySpec declares a solubility law c*(T, w).
type SolubilitySpec struct {
	kind  Kind
	value float64
	src   string
	fn    SolubilityFunc
}

func SolubilityConstant(c float64) SolubilitySpec {
	return SolubilitySpec{kind: KindConstant, value: c}
}

// SolubilityExpression is a formula in T and w (antisolvent mass fraction).
func SolubilityExpression(src string) SolubilitySpec {
	return SolubilitySpec{kind: KindExpression, src: src}
}

func SolubilityOf(fn SolubilityFunc) SolubilitySpec {
	return SolubilitySpec{kind: KindFull, fn: fn}
}

func (s SolubilitySpec) String() string {
	switch s.kind {
	case KindConstant:
		return fmt.Sprintf("%g", s.value)
	case KindExpression:
		return s.src
	}
	return s.kind.String()
}

// AdaptSolubility returns the canonical solubility function. A non-positive
// value at the probe point is a warning.
func AdaptSolubility(spec SolubilitySpec) (SolubilityFunc, []dynamo.Warning, error) {
	var fn SolubilityFunc

	switch spec.kind {
	case KindConstant:
		if !finite(spec.value) || spec.value <= 0 {
			return nil, nil, fmt.Errorf("%w: solubility %g", ErrInvalidValue, spec.value)
		}
		c := spec.value
		return func(_, _ float64) float64 { return c }, nil, nil
	case KindExpression:
		fm, err := formula.Compile(spec.src, "T", "w")
		if err != nil {
			return nil, nil, err
		}
		fn = func(temp, w float64) float64 { return fm.MustEval(temp, w) }
	case KindFull:
		if spec.fn == nil {
			return nil, nil, ErrNilLaw
		}
		fn = spec.fn
	default:
		return nil, nil, fmt.Errorf("rates: unknown solubility kind %v", spec.kind)
	}

	var warnings []dynamo.Warning
	if c := fn(probeT, 0); !finite(c) || c <= 0 {
		warnings = append(warnings, warn("solubility", fmt.Sprintf("solubility %g at probe point", c), ErrNonPositive))
	}
	return fn, warnings, nil
}
