package metrics

import (
	"github.com/san-kum/pbesim/internal/moments"
	"github.com/san-kum/pbesim/internal/pbe"
)

// SizeSeries returns the weight-averaged size μ4/μ3 of every snapshot.
func SizeSeries(res *pbe.Result) []float64 {
	out := make([]float64, res.Len())
	for i, d := range res.Distributions {
		out[i] = moments.MeanSize(d)
	}
	return out
}

// Summary condenses a run to its headline numbers.
type Summary struct {
	Scheme        string  `json:"scheme"`
	FinalTime     float64 `json:"final_time"`
	MeanSize      float64 `json:"mean_size"`
	CountMeanSize float64 `json:"count_mean_size"`
	Count         float64 `json:"count"`
	CrystalMass   float64 `json:"crystal_mass"`
	Concentration float64 `json:"concentration"`
	// Yield is the fraction of the initial solute that crystallized.
	Yield        float64 `json:"yield"`
	MaxMassError float64 `json:"max_mass_error_pct"`
	Warnings     int     `json:"warnings"`
}

func Summarize(res *pbe.Result) Summary {
	s := Summary{Scheme: res.Scheme, Warnings: len(res.Warnings)}
	n := res.Len()
	if n == 0 {
		return s
	}
	last := n - 1
	d := res.Distributions[last]
	s.FinalTime = res.Times[last]
	s.MeanSize = moments.MeanSize(d)
	s.CountMeanSize = moments.CountMeanSize(d)
	s.Count = moments.Moment(d, 0)
	s.CrystalMass = CrystalMass(res, last)
	s.Concentration = res.Concentrations[last]
	s.MaxMassError = MaxAbs(MassBalance(res))

	solute0 := res.Concentrations[0] * res.MediumMass[0]
	if solute0 > 0 {
		s.Yield = (s.CrystalMass - CrystalMass(res, 0)) / solute0
	}
	return s
}
