package pbe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/pbesim/internal/distribution"
)

var ErrUnknownScheme = errors.New("pbe: unknown scheme")

// Scheme is a discretization of the population balance. The set is closed:
// use [CentralDifference], [HighResolution] or [MovingPivot].
type Scheme interface {
	Name() string

	// start builds the scheme state from the seed distribution.
	start(r *run, seed *distribution.Distribution, solute float64) (*state, error)
	// advance integrates st in place up to target.
	advance(ctx context.Context, r *run, st *state, target float64) error
	// snapshot reports the distribution per unit medium mass.
	snapshot(r *run, st *state) (*distribution.Distribution, error)
}

// state is what a scheme carries between stops.
type state struct {
	t      float64
	grid   []float64 // fixed grid, or pivot positions
	n      []float64 // absolute densities, or pivot counts
	solute float64
}

var schemes = map[string]Scheme{
	CentralDifference{}.Name(): CentralDifference{},
	HighResolution{}.Name():    HighResolution{},
	MovingPivot{}.Name():       MovingPivot{},
}

// ParseScheme maps a scheme name to its implementation.
func ParseScheme(name string) (Scheme, error) {
	s, ok := schemes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownScheme, name, strings.Join(SchemeNames(), ", "))
	}
	return s, nil
}

// SchemeNames lists the accepted scheme names in sorted order.
func SchemeNames() []string {
	names := make([]string, 0, len(schemes))
	for n := range schemes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
