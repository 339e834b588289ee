package profile

import (
	"math"
	"sort"
)

// TimeNodes merges the requested output times with every profile breakpoint
// inside [t0, tEnd] into one sorted, de-duplicated list of integration stops.
// t0 and tEnd are always present.
func TimeNodes(t0, tEnd float64, outputs []float64, profiles ...Profile) []float64 {
	nodes := []float64{t0, tEnd}
	nodes = append(nodes, outputs...)
	for _, p := range profiles {
		if p == nil {
			continue
		}
		nodes = append(nodes, p.Breakpoints()...)
	}

	sort.Float64s(nodes)
	out := nodes[:0]
	for _, t := range nodes {
		if t < t0 || t > tEnd || t < 0 || math.IsNaN(t) {
			continue
		}
		if len(out) > 0 && SameTime(out[len(out)-1], t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SameTime compares two times with a relative tolerance.
func SameTime(a, b float64) bool {
	return math.Abs(a-b) <= 1e-12*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
