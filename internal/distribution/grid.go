package distribution

import (
	"fmt"
	"math"

	"github.com/san-kum/pbesim/internal/dynamo"
)

// Uniform returns n equally spaced sizes covering [lo, hi].
func Uniform(lo, hi float64, n int) ([]float64, error) {
	if n < 2 || !(hi > lo) {
		return nil, fmt.Errorf("%w: uniform grid [%g, %g] with %d points", dynamo.ErrParameterBounds, lo, hi, n)
	}
	grid := make([]float64, n)
	h := (hi - lo) / float64(n-1)
	for i := range grid {
		grid[i] = lo + float64(i)*h
	}
	grid[n-1] = hi
	return grid, nil
}

// Geometric returns n sizes with a constant ratio between neighbours.
// Useful when nuclei and large seeds share one grid.
func Geometric(lo, hi float64, n int) ([]float64, error) {
	if n < 2 || lo <= 0 || !(hi > lo) {
		return nil, fmt.Errorf("%w: geometric grid [%g, %g] with %d points", dynamo.ErrParameterBounds, lo, hi, n)
	}
	grid := make([]float64, n)
	r := math.Pow(hi/lo, 1/float64(n-1))
	grid[0] = lo
	for i := 1; i < n; i++ {
		grid[i] = grid[i-1] * r
	}
	grid[n-1] = hi
	return grid, nil
}

// Gaussian is a convenience generator for seed distributions.
func Gaussian(mean, sd, peak float64) Generator {
	return func(y float64) float64 {
		z := (y - mean) / sd
		return peak * math.Exp(-0.5*z*z)
	}
}
