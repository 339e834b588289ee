package pbe

import (
	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/dynamo"
)

// Result holds one snapshot per requested output time. All series have the
// same length; index 0 is the initial condition.
type Result struct {
	Scheme          string
	Times           []float64
	Distributions   []*distribution.Distribution
	Concentrations  []float64
	MediumMass      []float64
	Temperature     []float64
	Solubility      []float64
	Supersaturation []float64

	CrystalDensity float64
	ShapeFactor    float64

	Warnings []dynamo.Warning
	Stats    dynamo.Stats
}

func newResult(scheme string, p *Problem, n int) *Result {
	return &Result{
		Scheme:          scheme,
		Times:           make([]float64, 0, n),
		Distributions:   make([]*distribution.Distribution, 0, n),
		Concentrations:  make([]float64, 0, n),
		MediumMass:      make([]float64, 0, n),
		Temperature:     make([]float64, 0, n),
		Solubility:      make([]float64, 0, n),
		Supersaturation: make([]float64, 0, n),
		CrystalDensity:  p.CrystalDensity,
		ShapeFactor:     p.ShapeFactor,
	}
}

func (r *Result) add(t float64, d *distribution.Distribution, c conditions) {
	r.Times = append(r.Times, t)
	r.Distributions = append(r.Distributions, d)
	r.Concentrations = append(r.Concentrations, c.C)
	r.MediumMass = append(r.MediumMass, c.M)
	r.Temperature = append(r.Temperature, c.T)
	r.Solubility = append(r.Solubility, c.Csat)
	r.Supersaturation = append(r.Supersaturation, c.S)
}

func (r *Result) Len() int { return len(r.Times) }

// Final returns the last distribution and concentration.
func (r *Result) Final() (*distribution.Distribution, float64) {
	if len(r.Times) == 0 {
		return nil, 0
	}
	i := len(r.Times) - 1
	return r.Distributions[i], r.Concentrations[i]
}
