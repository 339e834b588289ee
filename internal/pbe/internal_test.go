package pbe

import (
	"errors"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/profile"
)

func TestVanLeer(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"smooth", 1, 1, 0.5},
		{"extremum", 1, -1, 0},
		{"flat", 0, 2, 0},
		{"steep", 3, 1, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vanLeer(tt.a, tt.b); math.Abs(got-tt.want) > 1e-15 {
				t.Errorf("vanLeer(%g, %g) = %g, want %g", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLimitedFlux_Upwind(t *testing.T) {
	n := []float64{0, 1, 1, 1, 0}
	// face 2 sits inside a plateau: no correction either way
	if got := limitedFlux(2, n, 2); got != 2 {
		t.Errorf("positive growth flux = %g, want 2", got)
	}
	if got := limitedFlux(-2, n, 1); got != -2 {
		t.Errorf("negative growth flux = %g, want -2", got)
	}
	// edge faces fall back to first order
	if got := limitedFlux(1, n, 0); got != 0 {
		t.Errorf("lower edge flux = %g, want 0", got)
	}
	if got := limitedFlux(-1, n, 3); got != 0 {
		t.Errorf("upper edge flux = %g, want 0", got)
	}
}

func TestCombine_PreservesMass(t *testing.T) {
	y, n := combine(1, 2, 2, 1)
	if n != 3 {
		t.Fatalf("count = %g, want 3", n)
	}
	if got, want := n*y*y*y, 2.0*1+1.0*8; math.Abs(got-want) > 1e-12 {
		t.Errorf("mass = %g, want %g", got, want)
	}
	if y <= 1 || y >= 2 {
		t.Errorf("merged pivot %g outside [1, 2]", y)
	}
}

func testRun(floor float64) *run {
	p := &Problem{
		MediumMass:     1,
		CrystalDensity: 2,
		ShapeFactor:    0.5,
		Temperature:    profile.Constant(300),
	}
	return &run{
		env:      newEnvironment(p, 0),
		opts:     DefaultOptions(),
		logger:   slog.Default(),
		floor:    floor,
		ceiling:  floor + 10,
		pivotTol: 1e-9,
	}
}

func massOf(r *run, st *state) float64 {
	q := 0.0
	for i, y := range st.grid {
		q += st.n[i] * y * y * y
	}
	return r.env.rk*q + st.solute
}

func TestRegroup(t *testing.T) {
	r := testRun(1)
	st := &state{
		t:      1,
		grid:   []float64{0.5, 2, 3, 2.9, 5},
		n:      []float64{4, 1, 1, 1, 1},
		solute: 10,
	}
	before := massOf(r, st) + r.env.rk*0.25*1

	if err := (MovingPivot{}).regroup(r, st, 0.25); err != nil {
		t.Fatal(err)
	}

	if got := massOf(r, st); math.Abs(got-before) > 1e-9 {
		t.Errorf("mass %g after regroup, want %g", got, before)
	}
	if st.grid[0] != 1 || st.n[0] != 0.25 {
		t.Errorf("nuclei pivot = (%g, %g), want (1, 0.25)", st.grid[0], st.n[0])
	}
	for i := 1; i < len(st.grid); i++ {
		if st.grid[i] <= st.grid[i-1] {
			t.Fatalf("pivots not increasing: %v", st.grid)
		}
	}
	if len(st.grid) != 4 {
		t.Errorf("expected 4 pivots after dissolving one and merging two, got %v", st.grid)
	}
}

func TestRegroup_MergesNucleiAtFloor(t *testing.T) {
	r := testRun(1)
	st := &state{grid: []float64{1, 2, 3}, n: []float64{1, 1, 1}}
	if err := (MovingPivot{}).regroup(r, st, 2); err != nil {
		t.Fatal(err)
	}
	if len(st.grid) != 3 || st.n[0] != 3 || math.Abs(st.grid[0]-1) > 1e-12 {
		t.Errorf("nuclei not merged into the floor pivot: grid=%v n=%v", st.grid, st.n)
	}
}

func TestRegroup_KeepsTwoPivots(t *testing.T) {
	tests := []struct {
		name    string
		grid, n []float64
		nuclei  float64
		want    []float64
		wantN   []float64
	}{
		{"all dissolved", []float64{0.1, 0.2, 0.5}, []float64{1, 1, 1}, 0, []float64{1, 11}, []float64{0, 0}},
		{"one above floor", []float64{0.1, 4}, []float64{1, 2}, 0, []float64{1, 4}, []float64{0, 2}},
		{"only nuclei", []float64{0.1, 0.5}, []float64{1, 1}, 3, []float64{1, 11}, []float64{3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRun(1)
			st := &state{t: 2, grid: tt.grid, n: tt.n, solute: 1}
			before := massOf(r, st) + r.env.rk*tt.nuclei

			if err := (MovingPivot{}).regroup(r, st, tt.nuclei); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(st.grid, tt.want) || !reflect.DeepEqual(st.n, tt.wantN) {
				t.Errorf("pivots = %v counts %v, want %v counts %v", st.grid, st.n, tt.want, tt.wantN)
			}
			if got := massOf(r, st); math.Abs(got-before) > 1e-12 {
				t.Errorf("mass %g after regroup, want %g", got, before)
			}
			if _, err := (MovingPivot{}).snapshot(r, st); err != nil {
				t.Errorf("snapshot after regroup: %v", err)
			}
		})
	}
}

func TestClampDensities(t *testing.T) {
	r := testRun(0)
	hook := r.clampDensities(3)

	x := dynamo.State{1, -1e-9, -0.1, 7}
	hook(x, 2)
	if x[1] != 0 || x[2] != 0 || x[3] != 7 {
		t.Errorf("clamp touched the wrong components: %v", x)
	}
	if r.negatives != 1 || r.firstNegative != 2 {
		t.Errorf("expected one reportable negative at t=2, got %d at %g", r.negatives, r.firstNegative)
	}

	r.finish()
	if len(r.warnings) != 1 || !errors.Is(r.warnings[0], ErrNegativeDensity) {
		t.Errorf("expected one negative density warning, got %v", r.warnings)
	}
}

func TestStepConfig_Budget(t *testing.T) {
	r := testRun(0)
	r.cfg = dynamo.DefaultConfig()
	r.cfg.MaxSteps = 10
	r.stats = dynamo.Stats{Steps: 6, Rejected: 1, LastDt: 0.5}

	cfg, err := r.stepConfig(0)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxSteps != 3 || cfg.Dt != 0.5 {
		t.Errorf("got MaxSteps=%d Dt=%g, want 3 and 0.5", cfg.MaxSteps, cfg.Dt)
	}

	r.stats.Steps = 9
	if _, err := r.stepConfig(4); !errors.Is(err, dynamo.ErrStepBudget) {
		t.Errorf("expected ErrStepBudget, got %v", err)
	}
}

func TestEnvironment_Conditions(t *testing.T) {
	feed, err := profile.NewAntisolventTable([]float64{0, 10}, []float64{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	p := &Problem{
		MediumMass:  1,
		Temperature: profile.Constant(300),
		Antisolvent: feed,
		Solubility:  func(_, w float64) float64 { return 0.2 * (1 - w) },
	}
	env := newEnvironment(p, 0)

	c := env.at(10, 0.2)
	if c.M != 2 || c.W != 0.5 || c.C != 0.1 {
		t.Fatalf("unexpected conditions %+v", c)
	}
	if math.Abs(c.S-0) > 1e-12 {
		t.Errorf("S = %g, want 0", c.S)
	}

	p.Solubility = func(_, _ float64) float64 { return 0 }
	if c := env.at(0, 0.1); math.IsInf(c.S, 0) || math.IsNaN(c.S) {
		t.Errorf("zero solubility produced S = %g", c.S)
	}
}
