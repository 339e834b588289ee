// Package metrics reduces a run result to diagnostic series and scalars.
package metrics

import (
	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/pbe"
)

// Snapshot is one recorded point of a run.
type Snapshot struct {
	T             float64
	Distribution  *distribution.Distribution
	Concentration float64
	MediumMass    float64
}

// Metric accumulates over snapshots in time order.
type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

func Snapshots(res *pbe.Result) []Snapshot {
	out := make([]Snapshot, res.Len())
	for i := range out {
		out[i] = Snapshot{
			T:             res.Times[i],
			Distribution:  res.Distributions[i],
			Concentration: res.Concentrations[i],
			MediumMass:    res.MediumMass[i],
		}
	}
	return out
}

// Observe feeds every snapshot of res to each metric after resetting it.
func Observe(res *pbe.Result, ms ...Metric) map[string]float64 {
	for _, m := range ms {
		m.Reset()
	}
	for _, s := range Snapshots(res) {
		for _, m := range ms {
			m.Observe(s)
		}
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
