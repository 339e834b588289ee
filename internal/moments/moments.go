// Package moments computes statistical moments of size distributions by
// trapezoidal quadrature over their grids.
//
// Order 0 is the particle count per unit medium mass, order 3 is proportional
// to crystal volume, and the ratio of orders 4 and 3 is the weight-averaged
// size. Nothing is cached; distributions are immutable and cheap to revisit.
package moments

import (
	"math"

	"gonum.org/v1/gonum/integrate"

	"github.com/san-kum/pbesim/internal/distribution"
)

// Moment returns ∫ density(y)·y^order dy over the distribution's grid.
func Moment(d *distribution.Distribution, order float64) float64 {
	if d == nil {
		return 0
	}
	return Quadrature(d.Grid(), d.Density(), order)
}

// Moments applies Moment independently at every time point.
func Moments(ds []*distribution.Distribution, order float64) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = Moment(d, order)
	}
	return out
}

// Quadrature integrates f·y^order over grid with the trapezoidal rule.
// Mismatched or too-short inputs integrate to zero.
func Quadrature(grid, f []float64, order float64) float64 {
	if len(grid) < 2 || len(grid) != len(f) {
		return 0
	}
	g := make([]float64, len(f))
	for i, y := range grid {
		g[i] = f[i] * pow(y, order)
	}
	return integrate.Trapezoidal(grid, g)
}

// Weights returns trapezoid weights w such that Σ w_i f_i equals the
// trapezoidal integral of f over grid. The weights double as finite-volume
// cell widths: cell i spans the midpoints to its neighbours.
func Weights(grid []float64) []float64 {
	n := len(grid)
	w := make([]float64, n)
	if n < 2 {
		return w
	}
	w[0] = (grid[1] - grid[0]) / 2
	w[n-1] = (grid[n-1] - grid[n-2]) / 2
	for i := 1; i < n-1; i++ {
		w[i] = (grid[i+1] - grid[i-1]) / 2
	}
	return w
}

// Weighted returns Σ w_i f_i y_i^order for precomputed weights.
func Weighted(grid, w, f []float64, order float64) float64 {
	sum := 0.0
	for i, y := range grid {
		sum += w[i] * f[i] * pow(y, order)
	}
	return sum
}

// MeanSize is the weight-averaged characteristic size μ4/μ3.
func MeanSize(d *distribution.Distribution) float64 {
	return ratio(Moment(d, 4), Moment(d, 3))
}

// CountMeanSize is the number-averaged size μ1/μ0.
func CountMeanSize(d *distribution.Distribution) float64 {
	return ratio(Moment(d, 1), Moment(d, 0))
}

// Leading returns μ0 through μ3, the set nucleation laws are fed.
func Leading(grid, f []float64) []float64 {
	out := make([]float64, 4)
	for k := range out {
		out[k] = Quadrature(grid, f, float64(k))
	}
	return out
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func pow(y, order float64) float64 {
	switch order {
	case 0:
		return 1
	case 1:
		return y
	case 2:
		return y * y
	case 3:
		return y * y * y
	case 4:
		y2 := y * y
		return y2 * y2
	}
	return math.Pow(y, order)
}
