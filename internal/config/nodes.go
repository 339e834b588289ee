package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pbesim/internal/profile"
	"github.com/san-kum/pbesim/internal/rates"
)

// Profile is a number, an expression in t, or a breakpoint table.
type Profile struct {
	Value      float64
	Expression string
	Times      []float64
	Values     []float64
	set        bool
}

func ConstantProfile(v float64) Profile { return Profile{Value: v, set: true} }

func ExpressionProfile(src string) Profile { return Profile{Expression: src, set: true} }

func TableProfile(times, values []float64) Profile {
	return Profile{Times: times, Values: values, set: true}
}

func (p Profile) IsZero() bool { return !p.set }

func (p Profile) IsTable() bool { return len(p.Times) > 0 || len(p.Values) > 0 }

type table struct {
	Times  []float64 `yaml:"times"`
	Values []float64 `yaml:"values"`
}

func (p *Profile) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if v, err := strconv.ParseFloat(strings.TrimSpace(node.Value), 64); err == nil {
			*p = ConstantProfile(v)
			return nil
		}
		*p = ExpressionProfile(node.Value)
		return nil
	case yaml.MappingNode:
		var tb table
		if err := node.Decode(&tb); err != nil {
			return err
		}
		*p = TableProfile(tb.Times, tb.Values)
		return nil
	}
	return fmt.Errorf("line %d: profile must be a number, an expression or a {times, values} table", node.Line)
}

func (p Profile) MarshalYAML() (any, error) {
	switch {
	case p.IsTable():
		return table{Times: p.Times, Values: p.Values}, nil
	case p.Expression != "":
		return p.Expression, nil
	}
	return p.Value, nil
}

func (p Profile) String() string {
	switch {
	case p.IsTable():
		return fmt.Sprintf("table%v→%v", p.Times, p.Values)
	case p.Expression != "":
		return p.Expression
	}
	return strconv.FormatFloat(p.Value, 'g', -1, 64)
}

func (p Profile) Build() (profile.Profile, error) {
	switch {
	case p.IsTable():
		return profile.NewTable(p.Times, p.Values)
	case p.Expression != "":
		return profile.FromExpression(p.Expression)
	}
	return profile.Constant(p.Value), nil
}

// BuildAntisolvent builds a cumulative feed profile, which may never
// decrease over [t0, t1]. An unset profile means no feed.
func (p Profile) BuildAntisolvent(t0, t1 float64) (profile.Profile, error) {
	if !p.set {
		return nil, nil
	}
	if p.IsTable() {
		tb, err := profile.NewAntisolventTable(p.Times, p.Values)
		if err != nil {
			return nil, err
		}
		return tb, nil
	}
	pr, err := p.Build()
	if err != nil {
		return nil, err
	}
	if !profile.IsNonDecreasing(pr, t0, t1, 200) {
		return nil, fmt.Errorf("%w: %s", profile.ErrNotMonotone, p)
	}
	return pr, nil
}

// Law is a rate or solubility law: a number or an expression.
type Law struct {
	Value      float64
	Expression string
	set        bool
}

func ConstantLaw(v float64) Law { return Law{Value: v, set: true} }

func ExpressionLaw(src string) Law { return Law{Expression: src, set: true} }

func (l Law) IsZero() bool { return !l.set }

func (l *Law) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: rate law must be a number or an expression", node.Line)
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(node.Value), 64); err == nil {
		*l = ConstantLaw(v)
		return nil
	}
	*l = ExpressionLaw(node.Value)
	return nil
}

func (l Law) MarshalYAML() (any, error) {
	if l.Expression != "" {
		return l.Expression, nil
	}
	return l.Value, nil
}

func (l Law) String() string {
	if l.Expression != "" {
		return l.Expression
	}
	return strconv.FormatFloat(l.Value, 'g', -1, 64)
}

func (l Law) GrowthSpec() rates.GrowthSpec {
	if l.Expression != "" {
		return rates.GrowthExpression(l.Expression)
	}
	return rates.GrowthConstant(l.Value)
}

func (l Law) NucleationSpec() rates.NucleationSpec {
	if l.Expression != "" {
		return rates.NucleationExpression(l.Expression)
	}
	return rates.NucleationConstant(l.Value)
}

func (l Law) SolubilitySpec() rates.SolubilitySpec {
	if l.Expression != "" {
		return rates.SolubilityExpression(l.Expression)
	}
	return rates.SolubilityConstant(l.Value)
}

const saturated = "saturated"

// Concentration is a solute concentration or the word "saturated".
type Concentration struct {
	Value     float64
	Saturated bool
}

func (c *Concentration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: concentration must be a number or %q", node.Line, saturated)
	}
	if strings.EqualFold(strings.TrimSpace(node.Value), saturated) {
		*c = Concentration{Saturated: true}
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(node.Value), 64)
	if err != nil {
		return fmt.Errorf("line %d: concentration %q: %w", node.Line, node.Value, err)
	}
	*c = Concentration{Value: v}
	return nil
}

func (c Concentration) MarshalYAML() (any, error) {
	if c.Saturated {
		return saturated, nil
	}
	return c.Value, nil
}

func (c Concentration) String() string {
	if c.Saturated {
		return saturated
	}
	return strconv.FormatFloat(c.Value, 'g', -1, 64)
}
