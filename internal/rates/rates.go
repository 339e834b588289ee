// Package rates normalizes user-supplied growth, nucleation and solubility
// laws into the canonical signatures the population balance solver calls on
// every step.
//
// Callers state the shape of a law explicitly by picking a constructor
// (constant, expression, or a function of a declared argument set). Adaptation
// then probes the law once: shape and finiteness problems are reported as
// warnings rather than errors, because a mis-shaped law may still be usable
// in degenerate cases.
package rates

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pbesim/internal/dynamo"
)

// GrowthFunc is the canonical growth law: growth rate at each size y for
// supersaturation s and temperature temp.
type GrowthFunc func(s, temp float64, y []float64) []float64

// NucleationFunc is the canonical nucleation law. mu holds the moments μ0..μ3
// of the current distribution per unit medium mass.
type NucleationFunc func(s, temp float64, mu []float64) float64

// SolubilityFunc gives the saturation concentration at temperature temp and
// antisolvent mass fraction w.
type SolubilityFunc func(temp, w float64) float64

// Kind tags how a law was declared.
type Kind int

const (
	KindConstant Kind = iota
	KindExpression
	// KindOfST laws depend on supersaturation and temperature only.
	KindOfST
	// KindOfSX laws depend on supersaturation and the law's third argument
	// (size for growth, moments for nucleation); temperature is ignored.
	KindOfSX
	KindFull
)

func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindExpression:
		return "expression"
	case KindOfST:
		return "f(S,T)"
	case KindOfSX:
		return "f(S,x)"
	case KindFull:
		return "f(S,T,x)"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var (
	ErrNilLaw        = errors.New("rates: law function is nil")
	ErrInvalidValue  = errors.New("rates: invalid constant")
	ErrNonFiniteRate = errors.New("rates: law returned a non-finite value at the probe point")
	ErrNonPositive   = errors.New("rates: law returned a non-positive value at the probe point")
)

const probeSize = 10

// probe points used to exercise a law once during adaptation
var (
	probeS  = 0.1
	probeT  = 298.15
	probeMu = []float64{1, 1, 1, 1}
)

func probeSizes(n int) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = float64(i + 1)
	}
	return y
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func allFinite(v []float64) bool {
	for _, x := range v {
		if !finite(x) {
			return false
		}
	}
	return true
}

func broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func warn(source, msg string, err error) dynamo.Warning {
	return dynamo.Warning{Source: source, Message: msg, Err: err}
}
