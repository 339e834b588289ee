// Package formula compiles textual rate laws and profiles such as
// "0.05*S^1.2" or "40 - 0.1*t" into callable numeric functions.
//
// A Formula is safe for concurrent use. Evaluations borrow a variable
// environment from a pool instead of sharing one.
package formula

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var ErrNotNumeric = errors.New("formula: expression did not evaluate to a number")

var functions = map[string]any{
	"exp":   math.Exp,
	"log":   math.Log,
	"log10": math.Log10,
	"sqrt":  math.Sqrt,
	"pow":   math.Pow,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tanh":  math.Tanh,
	"pos": func(x float64) float64 {
		return math.Max(x, 0)
	},
}

type Formula struct {
	src     string
	vars    []string
	program *vm.Program
	envs    sync.Pool
}

// Compile parses src allowing only the named variables plus the built-in
// math functions. Unknown identifiers are compile errors.
func Compile(src string, vars ...string) (*Formula, error) {
	env := make(map[string]any, len(functions)+len(vars))
	for k, v := range functions {
		env[k] = v
	}
	for _, v := range vars {
		env[v] = 0.0
	}

	program, err := expr.Compile(src, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("formula %q: %w", src, err)
	}

	f := &Formula{src: src, vars: append([]string(nil), vars...), program: program}
	f.envs.New = func() any {
		m := make(map[string]any, len(env))
		for k, v := range env {
			m[k] = v
		}
		return m
	}
	// probe once so a non-numeric result is caught at compile time
	if _, err := f.Eval(make([]float64, len(vars))...); err != nil {
		return nil, err
	}
	return f, nil
}

// Eval binds values to the variables in declaration order.
func (f *Formula) Eval(values ...float64) (float64, error) {
	if len(values) != len(f.vars) {
		return 0, fmt.Errorf("formula %q: got %d values for %d variables", f.src, len(values), len(f.vars))
	}
	env := f.envs.Get().(map[string]any)
	for i, name := range f.vars {
		env[name] = values[i]
	}
	out, err := expr.Run(f.program, env)
	f.envs.Put(env)
	if err != nil {
		return 0, fmt.Errorf("formula %q: %w", f.src, err)
	}
	return toFloat(out, f.src)
}

// MustEval is Eval for callers on a hot path that already validated the
// formula; evaluation errors yield NaN.
func (f *Formula) MustEval(values ...float64) float64 {
	v, err := f.Eval(values...)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (f *Formula) String() string { return f.src }

// Vars lists the bindable variables.
func (f *Formula) Vars() []string { return append([]string(nil), f.vars...) }

// Functions lists the math helpers available inside expressions.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for k := range functions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func toFloat(v any, src string) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %q gave %T", ErrNotNumeric, src, v)
}
