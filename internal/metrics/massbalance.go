package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pbesim/internal/moments"
	"github.com/san-kum/pbesim/internal/pbe"
)

// TotalMass is solute plus crystal mass at snapshot i.
func TotalMass(res *pbe.Result, i int) float64 {
	m := res.MediumMass[i]
	return res.Concentrations[i]*m + CrystalMass(res, i)
}

// CrystalMass is ρ·kv·M·μ3 at snapshot i.
func CrystalMass(res *pbe.Result, i int) float64 {
	return res.CrystalDensity * res.ShapeFactor * res.MediumMass[i] * moments.Moment(res.Distributions[i], 3)
}

// MassBalance returns, per snapshot, the percentage deviation of the total
// mass from its initial value. The caller applies its own tolerance.
func MassBalance(res *pbe.Result) []float64 {
	out := make([]float64, res.Len())
	if res.Len() == 0 {
		return out
	}
	m0 := TotalMass(res, 0)
	if m0 == 0 {
		return out
	}
	for i := range out {
		out[i] = 100 * (TotalMass(res, i) - m0) / m0
	}
	return out
}

// MaxAbs returns the largest magnitude in v, or 0 for an empty slice.
func MaxAbs(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	abs := make([]float64, len(v))
	for i, x := range v {
		abs[i] = math.Abs(x)
	}
	return floats.Max(abs)
}

// MassDrift tracks the worst total-mass deviation in percent.
type MassDrift struct {
	name     string
	rk       float64
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift(crystalDensity, shapeFactor float64) *MassDrift {
	return &MassDrift{name: "mass_drift", rk: crystalDensity * shapeFactor}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(s Snapshot) {
	total := s.MediumMass * (s.Concentration + m.rk*moments.Moment(s.Distribution, 3))
	if m.samples == 0 {
		m.initial = total
	}
	m.samples++
	if m.initial != 0 {
		m.maxDrift = math.Max(m.maxDrift, 100*math.Abs(total-m.initial)/math.Abs(m.initial))
	}
}

func (m *MassDrift) Value() float64 { return m.maxDrift }

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}
