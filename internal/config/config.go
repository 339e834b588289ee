// Package config reads, writes and validates crystallizer run files.
//
// A run file is YAML. Profiles accept a number, an expression in t, or a
// {times, values} table; rate laws accept a number or an expression.
//
//	scheme: high-resolution
//	temperature: {times: [0, 60], values: [323.15, 298.15]}
//	growth: "0.5*pos(S)"
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/formula"
	"github.com/san-kum/pbesim/internal/pbe"
	"github.com/san-kum/pbesim/internal/rates"
)

const (
	DefaultScheme     = "high-resolution"
	DefaultIntegrator = "rk45"
	DefaultTolerance  = 1e-6
	DefaultMaxSteps   = 200000
	DefaultDt         = 1e-2
	DefaultDuration   = 100.0
	DefaultPoints     = 11
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Name          string  `yaml:"name"`
	Scheme        string  `yaml:"scheme"`
	Integrator    string  `yaml:"integrator"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxSteps      int     `yaml:"max_steps"`
	Dt            float64 `yaml:"dt"`
	PivotInterval float64 `yaml:"pivot_interval,omitempty"`

	Times   TimesConfig   `yaml:"times"`
	Seed    SeedConfig    `yaml:"seed"`
	Medium  MediumConfig  `yaml:"medium"`
	Crystal CrystalConfig `yaml:"crystal"`

	Temperature Profile `yaml:"temperature"`
	Antisolvent Profile `yaml:"antisolvent,omitempty"`
	Solubility  Law     `yaml:"solubility"`
	Growth      Law     `yaml:"growth"`
	Nucleation  Law     `yaml:"nucleation,omitempty"`
}

type TimesConfig struct {
	Start  float64   `yaml:"start"`
	End    float64   `yaml:"end"`
	Points int       `yaml:"points"`
	At     []float64 `yaml:"at,omitempty"`
}

type GridConfig struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Points  int     `yaml:"points"`
	Spacing string  `yaml:"spacing"`
}

type SeedConfig struct {
	Grid GridConfig `yaml:"grid"`
	// Shape is "gaussian" or an expression in y.
	Shape string  `yaml:"shape"`
	Mean  float64 `yaml:"mean,omitempty"`
	SD    float64 `yaml:"sd,omitempty"`
	Peak  float64 `yaml:"peak,omitempty"`
	Mass  float64 `yaml:"mass,omitempty"`
}

type MediumConfig struct {
	Mass          float64       `yaml:"mass"`
	Concentration Concentration `yaml:"concentration"`
}

type CrystalConfig struct {
	Density     float64 `yaml:"density"`
	ShapeFactor float64 `yaml:"shape_factor"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:       "batch",
		Scheme:     DefaultScheme,
		Integrator: DefaultIntegrator,
		Tolerance:  DefaultTolerance,
		MaxSteps:   DefaultMaxSteps,
		Dt:         DefaultDt,
		Times:      TimesConfig{Start: 0, End: DefaultDuration, Points: DefaultPoints},
		Seed: SeedConfig{
			Grid:  GridConfig{Min: 1, Max: 300, Points: 150, Spacing: "uniform"},
			Shape: "gaussian",
			Mean:  50, SD: 10, Peak: 1e-3,
		},
		Medium:      MediumConfig{Mass: 1, Concentration: Concentration{Value: 0.12}},
		Crystal:     CrystalConfig{Density: 1, ShapeFactor: 1e-6},
		Temperature: ConstantProfile(298.15),
		Solubility:  ConstantLaw(0.1),
		Growth:      ExpressionLaw("0.5*pos(S)"),
		Nucleation:  ExpressionLaw("1e-4*pos(S)^2"),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// OutputTimes returns the explicit time list, or Points evenly spaced times
// over [Start, End].
func (c *Config) OutputTimes() ([]float64, error) {
	if len(c.Times.At) > 0 {
		return append([]float64(nil), c.Times.At...), nil
	}
	t := c.Times
	if t.Points < 2 || !(t.End > t.Start) || t.Start < 0 {
		return nil, fmt.Errorf("%w: times need start >= 0, end > start and at least 2 points", ErrInvalid)
	}
	out := make([]float64, t.Points)
	for i := range out {
		out[i] = t.Start + (t.End-t.Start)*float64(i)/float64(t.Points-1)
	}
	out[len(out)-1] = t.End
	return out, nil
}

// SolverConfig maps the integrator settings onto dynamo.Config.
func (c *Config) SolverConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	if c.Tolerance > 0 {
		cfg.Tolerance = c.Tolerance
	}
	if c.MaxSteps > 0 {
		cfg.MaxSteps = c.MaxSteps
	}
	if c.Dt > 0 {
		cfg.Dt = c.Dt
	}
	return cfg
}

func (c *Config) SolverOptions() pbe.Options {
	opts := pbe.DefaultOptions()
	opts.PivotInterval = c.PivotInterval
	return opts
}

func (c *Config) ParseScheme() (pbe.Scheme, error) {
	return pbe.ParseScheme(c.Scheme)
}

// SeedGrid builds the size grid of the initial distribution.
func (c *Config) SeedGrid() ([]float64, error) {
	g := c.Seed.Grid
	switch g.Spacing {
	case "", "uniform":
		return distribution.Uniform(g.Min, g.Max, g.Points)
	case "geometric":
		return distribution.Geometric(g.Min, g.Max, g.Points)
	}
	return nil, fmt.Errorf("%w: grid spacing %q", ErrInvalid, g.Spacing)
}

func (c *Config) SeedDistribution() (*distribution.Distribution, error) {
	grid, err := c.SeedGrid()
	if err != nil {
		return nil, err
	}
	switch c.Seed.Shape {
	case "", "gaussian":
		if !(c.Seed.SD > 0) || c.Seed.Peak < 0 {
			return nil, fmt.Errorf("%w: gaussian seed needs sd > 0 and peak >= 0", ErrInvalid)
		}
		return distribution.FromFunc(grid, distribution.Gaussian(c.Seed.Mean, c.Seed.SD, c.Seed.Peak))
	}
	fm, err := formula.Compile(c.Seed.Shape, "y")
	if err != nil {
		return nil, err
	}
	density := make([]float64, len(grid))
	for i, y := range grid {
		v, err := fm.Eval(y)
		if err != nil {
			return nil, err
		}
		density[i] = v
	}
	return distribution.New(grid, density)
}

// Build normalizes the run file into a solver problem. Rate-law shape
// problems come back as warnings.
func (c *Config) Build() (*pbe.Problem, []dynamo.Warning, error) {
	times, err := c.OutputTimes()
	if err != nil {
		return nil, nil, err
	}
	seed, err := c.SeedDistribution()
	if err != nil {
		return nil, nil, fmt.Errorf("seed: %w", err)
	}
	temperature, err := c.Temperature.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("temperature: %w", err)
	}
	antisolvent, err := c.Antisolvent.BuildAntisolvent(times[0], times[len(times)-1])
	if err != nil {
		return nil, nil, fmt.Errorf("antisolvent: %w", err)
	}

	var warnings []dynamo.Warning
	solubility, w, err := rates.AdaptSolubility(c.Solubility.SolubilitySpec())
	if err != nil {
		return nil, nil, fmt.Errorf("solubility: %w", err)
	}
	warnings = append(warnings, w...)
	growth, w, err := rates.AdaptGrowth(c.Growth.GrowthSpec())
	if err != nil {
		return nil, nil, fmt.Errorf("growth: %w", err)
	}
	warnings = append(warnings, w...)
	nucleation, w, err := rates.AdaptNucleation(c.Nucleation.NucleationSpec())
	if err != nil {
		return nil, nil, fmt.Errorf("nucleation: %w", err)
	}
	warnings = append(warnings, w...)

	p := &pbe.Problem{
		Initial:              seed,
		InitialConcentration: c.Medium.Concentration.Value,
		Saturated:            c.Medium.Concentration.Saturated,
		Solubility:           solubility,
		Temperature:          temperature,
		Antisolvent:          antisolvent,
		Growth:               growth,
		Nucleation:           nucleation,
		SeedMass:             c.Seed.Mass,
		MediumMass:           c.Medium.Mass,
		CrystalDensity:       c.Crystal.Density,
		ShapeFactor:          c.Crystal.ShapeFactor,
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	return p, warnings, nil
}

// Validate checks everything Build would, without keeping the result.
func (c *Config) Validate() error {
	if _, err := c.ParseScheme(); err != nil {
		return err
	}
	_, _, err := c.Build()
	return err
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Times.At = cloneFloats(c.Times.At)
	out.Temperature = c.Temperature.clone()
	out.Antisolvent = c.Antisolvent.clone()
	return &out
}

func (p Profile) clone() Profile {
	p.Times = cloneFloats(p.Times)
	p.Values = cloneFloats(p.Values)
	return p
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}
