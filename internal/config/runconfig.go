package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/pbesim/internal/pbe"
	"github.com/san-kum/pbesim/internal/profile"
	"github.com/san-kum/pbesim/internal/rates"
)

// ValidationWarning reports a rejected property value. The previous value
// stays in place.
type ValidationWarning struct {
	Field string
	Value any
	Err   error
}

func (w *ValidationWarning) Error() string {
	return fmt.Sprintf("config: %s = %v rejected: %v", w.Field, w.Value, w.Err)
}

func (w *ValidationWarning) Unwrap() error { return w.Err }

// Hook runs after every accepted mutation with the name of the field.
type Hook func(rc *RunConfiguration, field string)

// RunConfiguration is a Config edited through validating setters.
type RunConfiguration struct {
	cfg      *Config
	hooks    []Hook
	warnings []*ValidationWarning
	logger   *slog.Logger
}

func NewRunConfiguration(cfg *Config, logger *slog.Logger) *RunConfiguration {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunConfiguration{cfg: cfg, logger: logger}
}

// Config returns the current values. Callers must not mutate it.
func (rc *RunConfiguration) Config() *Config { return rc.cfg }

func (rc *RunConfiguration) OnChange(h Hook) { rc.hooks = append(rc.hooks, h) }

// Warnings returns every rejection so far, oldest first.
func (rc *RunConfiguration) Warnings() []*ValidationWarning {
	return append([]*ValidationWarning(nil), rc.warnings...)
}

// set validates v with check and applies it with apply, or records a warning.
func (rc *RunConfiguration) set(field string, v any, check func() error, apply func()) error {
	if err := check(); err != nil {
		w := &ValidationWarning{Field: field, Value: v, Err: err}
		rc.warnings = append(rc.warnings, w)
		rc.logger.Warn("property rejected", "field", field, "value", v, "err", err)
		return w
	}
	apply()
	for _, h := range rc.hooks {
		h(rc, field)
	}
	return nil
}

func positiveValue(v float64) func() error {
	return func() error {
		if !positive(v) {
			return fmt.Errorf("%w: must be positive and finite", ErrInvalid)
		}
		return nil
	}
}

func nonNegativeValue(v float64) func() error {
	return func() error {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: must be non-negative and finite", ErrInvalid)
		}
		return nil
	}
}

func (rc *RunConfiguration) SetScheme(name string) error {
	return rc.set("scheme", name,
		func() error { _, err := pbe.ParseScheme(name); return err },
		func() { rc.cfg.Scheme = name })
}

func (rc *RunConfiguration) SetMediumMass(v float64) error {
	return rc.set("medium.mass", v, positiveValue(v), func() { rc.cfg.Medium.Mass = v })
}

func (rc *RunConfiguration) SetCrystalDensity(v float64) error {
	return rc.set("crystal.density", v, positiveValue(v), func() { rc.cfg.Crystal.Density = v })
}

func (rc *RunConfiguration) SetShapeFactor(v float64) error {
	return rc.set("crystal.shape_factor", v, positiveValue(v), func() { rc.cfg.Crystal.ShapeFactor = v })
}

func (rc *RunConfiguration) SetSeedMass(v float64) error {
	return rc.set("seed.mass", v, nonNegativeValue(v), func() { rc.cfg.Seed.Mass = v })
}

func (rc *RunConfiguration) SetConcentration(v float64) error {
	return rc.set("medium.concentration", v, nonNegativeValue(v),
		func() { rc.cfg.Medium.Concentration = Concentration{Value: v} })
}

// SetSaturated starts the run at the solubility of the initial conditions.
func (rc *RunConfiguration) SetSaturated() error {
	return rc.set("medium.concentration", saturated, func() error { return nil },
		func() { rc.cfg.Medium.Concentration = Concentration{Saturated: true} })
}

func (rc *RunConfiguration) SetTemperature(p Profile) error {
	return rc.set("temperature", p,
		func() error { _, err := p.Build(); return err },
		func() { rc.cfg.Temperature = p })
}

// SetAntisolvent rejects feeds that decrease anywhere in the run window.
func (rc *RunConfiguration) SetAntisolvent(p Profile) error {
	return rc.set("antisolvent", p,
		func() error {
			times, err := rc.cfg.OutputTimes()
			if err != nil {
				return err
			}
			_, err = p.BuildAntisolvent(times[0], times[len(times)-1])
			return err
		},
		func() { rc.cfg.Antisolvent = p })
}

func (rc *RunConfiguration) SetGrowth(l Law) error {
	return rc.set("growth", l,
		func() error { _, _, err := rates.AdaptGrowth(l.GrowthSpec()); return err },
		func() { rc.cfg.Growth = l })
}

func (rc *RunConfiguration) SetNucleation(l Law) error {
	return rc.set("nucleation", l,
		func() error { _, _, err := rates.AdaptNucleation(l.NucleationSpec()); return err },
		func() { rc.cfg.Nucleation = l })
}

func (rc *RunConfiguration) SetSolubility(l Law) error {
	return rc.set("solubility", l,
		func() error { _, _, err := rates.AdaptSolubility(l.SolubilitySpec()); return err },
		func() { rc.cfg.Solubility = l })
}

// SetTimes replaces the output times; they must be non-negative and
// strictly increasing.
func (rc *RunConfiguration) SetTimes(ts []float64) error {
	ts = append([]float64(nil), ts...)
	return rc.set("times", ts,
		func() error {
			if len(ts) < 2 {
				return fmt.Errorf("%w: need at least two times", ErrInvalid)
			}
			for i, t := range ts {
				if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
					return fmt.Errorf("%w: time %g", ErrInvalid, t)
				}
				if i > 0 && !(t > ts[i-1]) {
					return fmt.Errorf("%w: times must be strictly increasing", profile.ErrTimeOrder)
				}
			}
			return nil
		},
		func() {
			rc.cfg.Times = TimesConfig{Start: ts[0], End: ts[len(ts)-1], Points: len(ts), At: ts}
		})
}

var ErrUnknownField = errors.New("config: unknown numeric field")

// NumericFields lists the names SetNumber accepts.
func NumericFields() []string {
	return []string{
		"concentration", "crystal.density", "crystal.shape_factor", "growth",
		"medium.mass", "nucleation", "seed.mass", "solubility", "temperature",
	}
}

// SetNumber sets a field by name to a constant. Laws and profiles become
// constants.
func (rc *RunConfiguration) SetNumber(field string, v float64) error {
	switch field {
	case "concentration":
		return rc.SetConcentration(v)
	case "crystal.density":
		return rc.SetCrystalDensity(v)
	case "crystal.shape_factor":
		return rc.SetShapeFactor(v)
	case "growth":
		return rc.SetGrowth(ConstantLaw(v))
	case "medium.mass":
		return rc.SetMediumMass(v)
	case "nucleation":
		return rc.SetNucleation(ConstantLaw(v))
	case "seed.mass":
		return rc.SetSeedMass(v)
	case "solubility":
		return rc.SetSolubility(ConstantLaw(v))
	case "temperature":
		return rc.SetTemperature(ConstantProfile(v))
	}
	return fmt.Errorf("%w: %q", ErrUnknownField, field)
}
