// Package distribution holds particle-size distributions: a strictly
// increasing size grid paired with a number density that is either stored
// explicitly or generated on demand from a function of size.
package distribution

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pbesim/internal/dynamo"
)

var (
	ErrGridOrder = errors.New("distribution: grid must be strictly increasing")
	ErrGridShort = errors.New("distribution: grid needs at least two points")
	ErrNegative  = errors.New("distribution: density must be non-negative")
)

// Generator maps a particle size to a number density.
type Generator func(size float64) float64

// Distribution is immutable once built.
type Distribution struct {
	grid    []float64
	density []float64
	gen     Generator
}

// New pairs a grid with an explicit density vector. A length mismatch is
// rejected with dynamo.ErrSizeMismatch; nothing is truncated or padded.
func New(grid, density []float64) (*Distribution, error) {
	if err := validateGrid(grid); err != nil {
		return nil, err
	}
	if len(density) != len(grid) {
		return nil, fmt.Errorf("%w: %d densities for %d sizes", dynamo.ErrSizeMismatch, len(density), len(grid))
	}
	for i, v := range density {
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: density[%d] = %g", ErrNegative, i, v)
		}
	}
	return &Distribution{
		grid:    clone(grid),
		density: clone(density),
	}, nil
}

// FromFunc builds a distribution whose density is evaluated lazily at the grid.
func FromFunc(grid []float64, gen Generator) (*Distribution, error) {
	if err := validateGrid(grid); err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, errors.New("distribution: nil generator")
	}
	return &Distribution{grid: clone(grid), gen: gen}, nil
}

// ValueAt returns the density on grid. Generated distributions are evaluated
// at the given sizes. Explicit distributions return their stored vector and
// fail with dynamo.ErrSizeMismatch when its length differs from len(grid).
func (d *Distribution) ValueAt(grid []float64) ([]float64, error) {
	if d.gen != nil {
		out := make([]float64, len(grid))
		for i, y := range grid {
			out[i] = d.gen(y)
		}
		return out, nil
	}
	if len(d.density) != len(grid) {
		return nil, fmt.Errorf("%w: stored %d values, grid has %d", dynamo.ErrSizeMismatch, len(d.density), len(grid))
	}
	return clone(d.density), nil
}

// Density is ValueAt on the distribution's own grid.
func (d *Distribution) Density() []float64 {
	out, err := d.ValueAt(d.grid)
	if err != nil {
		// unreachable: New enforces matching lengths
		return make([]float64, len(d.grid))
	}
	return out
}

func (d *Distribution) Grid() []float64 { return clone(d.grid) }

func (d *Distribution) Len() int { return len(d.grid) }

// Min and Max return the grid bounds.
func (d *Distribution) Min() float64 { return d.grid[0] }
func (d *Distribution) Max() float64 { return d.grid[len(d.grid)-1] }

// IsGenerated reports whether the density comes from a generator.
func (d *Distribution) IsGenerated() bool { return d.gen != nil }

// WithGrid re-grids the distribution. Generated distributions are simply
// re-evaluated; explicit ones must already match the new grid's length.
func (d *Distribution) WithGrid(grid []float64) (*Distribution, error) {
	if d.gen != nil {
		return FromFunc(grid, d.gen)
	}
	return New(grid, d.density)
}

// Scaled returns an explicit copy with every density multiplied by factor.
func (d *Distribution) Scaled(factor float64) (*Distribution, error) {
	n := d.Density()
	for i := range n {
		n[i] *= factor
	}
	return New(d.grid, n)
}

// Explicit materializes a generated distribution.
func (d *Distribution) Explicit() *Distribution {
	if d.gen == nil {
		return d
	}
	return &Distribution{grid: clone(d.grid), density: d.Density()}
}

func validateGrid(grid []float64) error {
	if len(grid) < 2 {
		return ErrGridShort
	}
	for i := 1; i < len(grid); i++ {
		if !(grid[i] > grid[i-1]) {
			return fmt.Errorf("%w: grid[%d]=%g after %g", ErrGridOrder, i, grid[i], grid[i-1])
		}
	}
	return nil
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
