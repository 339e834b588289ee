package experiment

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/integrators"
	"github.com/san-kum/pbesim/internal/metrics"
	"github.com/san-kum/pbesim/internal/pbe"
)

var ErrUnknownIntegrator = errors.New("experiment: unknown integrator")

// IntegratorFactory builds a fresh integrator. Integrators hold scratch
// buffers, so concurrent runs never share one.
type IntegratorFactory func() dynamo.Integrator

// Registry resolves the names a run configuration refers to. Schemes are
// fixed by the pbe package; integrators can be extended with Register.
type Registry struct {
	integ map[string]IntegratorFactory
}

func NewRegistry() *Registry {
	return &Registry{integ: map[string]IntegratorFactory{
		"rk45": func() dynamo.Integrator { return integrators.NewRK45() },
		"rk4":  func() dynamo.Integrator { return integrators.NewRK4() },
	}}
}

// Register adds or replaces an integrator under name.
func (r *Registry) Register(name string, f IntegratorFactory) {
	r.integ[strings.ToLower(name)] = f
}

func (r *Registry) GetScheme(name string) (pbe.Scheme, error) {
	return pbe.ParseScheme(name)
}

func (r *Registry) GetIntegrator(name string) (IntegratorFactory, error) {
	f, ok := r.integ[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownIntegrator, name, strings.Join(r.ListIntegrators(), ", "))
	}
	return f, nil
}

func (r *Registry) ListSchemes() []string { return pbe.SchemeNames() }

func (r *Registry) ListIntegrators() []string {
	return slices.Sorted(maps.Keys(r.integ))
}

// DefaultMetrics are observed on every experiment.
func (r *Registry) DefaultMetrics(p *pbe.Problem) []metrics.Metric {
	return []metrics.Metric{metrics.NewMassDrift(p.CrystalDensity, p.ShapeFactor)}
}
