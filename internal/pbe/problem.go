package pbe

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/profile"
	"github.com/san-kum/pbesim/internal/rates"
)

var ErrInvalidProblem = errors.New("pbe: invalid problem")

// Problem is the normalized input to one run. The solver only reads it, so
// concurrent runs may share a Problem as long as any user-supplied rate or
// profile functions are themselves safe for concurrent use.
type Problem struct {
	// Initial is the seed distribution per unit medium mass.
	Initial *distribution.Distribution
	// InitialConcentration is solute mass per medium mass. Ignored when
	// Saturated is set.
	InitialConcentration float64
	// Saturated starts the run at the solubility of the initial conditions.
	Saturated bool

	Solubility rates.SolubilityFunc
	// Temperature drives growth, nucleation and solubility.
	Temperature profile.Profile
	// Antisolvent is the cumulative antisolvent mass added; nil means none.
	Antisolvent profile.Profile
	Growth      rates.GrowthFunc
	// Nucleation may be nil for a growth-only run.
	Nucleation rates.NucleationFunc

	// SeedMass rescales Initial to carry this crystal mass when positive.
	SeedMass       float64
	MediumMass     float64
	CrystalDensity float64
	ShapeFactor    float64
}

func (p *Problem) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil problem", ErrInvalidProblem)
	case p.Initial == nil:
		return fmt.Errorf("%w: missing initial distribution", ErrInvalidProblem)
	case p.Solubility == nil:
		return fmt.Errorf("%w: missing solubility law", ErrInvalidProblem)
	case p.Temperature == nil:
		return fmt.Errorf("%w: missing temperature profile", ErrInvalidProblem)
	case p.Growth == nil:
		return fmt.Errorf("%w: missing growth law", ErrInvalidProblem)
	case !(p.MediumMass > 0):
		return fmt.Errorf("%w: medium mass must be positive, got %g", ErrInvalidProblem, p.MediumMass)
	case !(p.CrystalDensity > 0):
		return fmt.Errorf("%w: crystal density must be positive, got %g", ErrInvalidProblem, p.CrystalDensity)
	case !(p.ShapeFactor > 0):
		return fmt.Errorf("%w: shape factor must be positive, got %g", ErrInvalidProblem, p.ShapeFactor)
	case p.SeedMass < 0 || math.IsNaN(p.SeedMass):
		return fmt.Errorf("%w: seed mass must be non-negative, got %g", ErrInvalidProblem, p.SeedMass)
	case !p.Saturated && (p.InitialConcentration < 0 || math.IsNaN(p.InitialConcentration)):
		return fmt.Errorf("%w: initial concentration must be non-negative, got %g", ErrInvalidProblem, p.InitialConcentration)
	}
	return nil
}

// conditions are the driving quantities at one instant.
type conditions struct {
	M    float64 // medium mass
	T    float64
	W    float64 // antisolvent mass fraction
	Csat float64
	C    float64
	S    float64 // relative supersaturation c/c* - 1
}

// environment evaluates profiles and laws for a run.
type environment struct {
	p  *Problem
	a0 float64
	// mass factor ρ·kv
	rk float64
}

func newEnvironment(p *Problem, t0 float64) *environment {
	e := &environment{p: p, rk: p.CrystalDensity * p.ShapeFactor}
	if p.Antisolvent != nil {
		e.a0 = p.Antisolvent.At(t0)
	}
	return e
}

func (e *environment) antisolvent(t float64) float64 {
	if e.p.Antisolvent == nil {
		return 0
	}
	return e.p.Antisolvent.At(t)
}

func (e *environment) medium(t float64) float64 {
	return e.p.MediumMass + e.antisolvent(t) - e.a0
}

const minSolubility = 1e-300

func (e *environment) at(t, solute float64) conditions {
	m := e.medium(t)
	c := conditions{M: m, T: e.p.Temperature.At(t)}
	if m > 0 {
		c.W = e.antisolvent(t) / m
		c.C = solute / m
	}
	c.Csat = e.p.Solubility(c.T, c.W)
	if !(c.Csat > minSolubility) {
		c.Csat = minSolubility
	}
	c.S = c.C/c.Csat - 1
	return c
}

func (e *environment) growth(c conditions, y []float64) []float64 {
	g := e.p.Growth(c.S, c.T, y)
	if len(g) == len(y) {
		return g
	}
	// mis-shaped laws were already reported at adaptation time
	out := make([]float64, len(y))
	for i := range out {
		if len(g) > 0 {
			out[i] = g[min(i, len(g)-1)]
		}
	}
	return out
}

// birth returns the absolute nucleation rate (particles per unit time),
// clamped to be non-negative.
func (e *environment) birth(c conditions, mu []float64) float64 {
	if e.p.Nucleation == nil {
		return 0
	}
	b := e.p.Nucleation(c.S, c.T, mu)
	if !(b > 0) {
		return 0
	}
	return b * c.M
}
