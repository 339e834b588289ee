package formula

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
)

func TestCompileAndEval(t *testing.T) {
	tests := []struct {
		src  string
		vars []string
		args []float64
		want float64
	}{
		{"2", nil, nil, 2},
		{"0.05*S", []string{"S"}, []float64{2}, 0.1},
		{"k*S^2", []string{"k", "S"}, []float64{3, 2}, 12},
		{"40 - 0.1*t", []string{"t"}, []float64{100}, 30},
		{"exp(-E/T)", []string{"E", "T"}, []float64{0, 300}, 1},
		{"pos(S)", []string{"S"}, []float64{-1}, 0},
		{"sqrt(y) + pow(y, 2.0)", []string{"y"}, []float64{4}, 18},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := Compile(tt.src, tt.vars...)
			if err != nil {
				t.Fatalf("compile failed: %v", err)
			}
			got, err := f.Eval(tt.args...)
			if err != nil {
				t.Fatalf("eval failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompile_UnknownVariable(t *testing.T) {
	if _, err := Compile("a*S", "S"); err == nil {
		t.Error("expected compile error for unknown identifier")
	}
}

func TestCompile_NotNumeric(t *testing.T) {
	_, err := Compile(`"text"`)
	if !errors.Is(err, ErrNotNumeric) {
		t.Errorf("expected ErrNotNumeric, got %v", err)
	}
}

func TestEval_ArgumentCount(t *testing.T) {
	f, err := Compile("S + T", "S", "T")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Eval(1); err == nil {
		t.Error("expected error for missing argument")
	}
	if !math.IsNaN(f.MustEval(1)) {
		t.Error("MustEval should return NaN on error")
	}
}

func TestFunctions(t *testing.T) {
	names := Functions()
	if len(names) == 0 || names[0] != "cos" {
		t.Errorf("expected sorted function names, got %v", names)
	}
}

func TestEval_Concurrent(t *testing.T) {
	f, err := Compile("0.5*S + y", "S", "y")
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for g := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				s, y := float64(g), float64(i)
				got, err := f.Eval(s, y)
				if err != nil || got != 0.5*s+y {
					errs[g] = fmt.Errorf("Eval(%g, %g) = %g, %v", s, y, got, err)
					return
				}
			}
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}
