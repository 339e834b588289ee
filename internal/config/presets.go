package config

import "sort"

// Presets are ready-made batches. Each call returns a fresh Config.
var Presets = map[string]func() *Config{
	// seeded growth at constant temperature, no nucleation
	"seeded-growth": func() *Config {
		c := DefaultConfig()
		c.Name = "seeded-growth"
		c.Nucleation = ConstantLaw(0)
		return c
	},
	"cooling": func() *Config {
		c := DefaultConfig()
		c.Name = "cooling"
		c.Times = TimesConfig{Start: 0, End: 120, Points: 13}
		c.Temperature = TableProfile([]float64{0, 90}, []float64{323.15, 293.15})
		c.Solubility = ExpressionLaw("0.05*exp(0.03*(T - 298.15))")
		c.Medium.Concentration = Concentration{Saturated: true}
		c.Growth = ExpressionLaw("2*pos(S)")
		c.Nucleation = ExpressionLaw("1e-5*pos(S)^2*mu3")
		return c
	},
	"antisolvent": func() *Config {
		c := DefaultConfig()
		c.Name = "antisolvent"
		c.Antisolvent = TableProfile([]float64{0, 20, 80}, []float64{0, 0, 0.6})
		c.Solubility = ExpressionLaw("0.1*exp(-4*w)")
		c.Medium.Concentration = Concentration{Saturated: true}
		c.Growth = ExpressionLaw("1*pos(S)")
		c.Nucleation = ExpressionLaw("1e-3*pos(S)^3")
		return c
	},
	"nucleation-burst": func() *Config {
		c := DefaultConfig()
		c.Name = "nucleation-burst"
		c.Scheme = "moving-pivot"
		c.Medium.Concentration = Concentration{Value: 0.2}
		c.Growth = ExpressionLaw("0.8*pos(S)*(1 + 0.002*y)")
		c.Nucleation = ExpressionLaw("5e-3*pos(S)^2")
		return c
	},
	"dissolution": func() *Config {
		c := DefaultConfig()
		c.Name = "dissolution"
		c.Medium.Concentration = Concentration{Value: 0.08}
		c.Growth = ExpressionLaw("0.5*S")
		c.Nucleation = ConstantLaw(0)
		return c
	},
}

func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
