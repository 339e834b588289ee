package automation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/san-kum/pbesim/internal/config"
	"github.com/san-kum/pbesim/internal/experiment"
	"github.com/san-kum/pbesim/internal/metrics"
	"github.com/san-kum/pbesim/internal/storage"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Name = "small"
	cfg.Seed.Grid.Points = 40
	cfg.Times = config.TimesConfig{Start: 0, End: 10, Points: 3}
	return cfg
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := config.Save(filepath.Join(dir, "small.yaml"), smallConfig()); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const twoSteps = `
name: schemes
description: same batch on two grids
steps:
  - file: small.yaml
    save_as: fixed
  - file: small.yaml
    scheme: moving-pivot
    set:
      medium.mass: 2
    save_as: pivot
`

func TestScenarioConfig(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, twoSteps))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "schemes" || len(sc.Steps) != 2 {
		t.Fatalf("loaded %+v", sc)
	}
	cfg, err := sc.Config(1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "pivot" || cfg.Scheme != "moving-pivot" || cfg.Medium.Mass != 2 {
		t.Errorf("step 2 config: name=%s scheme=%s mass=%g", cfg.Name, cfg.Scheme, cfg.Medium.Mass)
	}
	if cfg.Seed.Grid.Points != 40 {
		t.Errorf("file not resolved against scenario dir: %d grid points", cfg.Seed.Grid.Points)
	}
}

func TestScenarioStepSource(t *testing.T) {
	tests := []struct {
		name string
		step Step
	}{
		{"neither", Step{}},
		{"both", Step{Preset: "cooling", File: "x.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &Scenario{Steps: []Step{tt.step}}
			if _, err := sc.Config(0, nil); !errors.Is(err, ErrStepSource) {
				t.Errorf("err = %v, want ErrStepSource", err)
			}
		})
	}

	sc := &Scenario{Steps: []Step{{Preset: "cooling", Set: map[string]float64{"bogus": 1}}}}
	if _, err := sc.Config(0, nil); !errors.Is(err, config.ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestScenarioRun(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, twoSteps))
	if err != nil {
		t.Fatal(err)
	}
	st := storage.New(t.TempDir())
	results, err := sc.Run(context.Background(), experiment.NewRegistry(), st, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].RunID != "fixed_001" || results[1].RunID != "pivot_001" {
		t.Errorf("run ids = %s, %s", results[0].RunID, results[1].RunID)
	}
	if got := results[1].Outcome.Result.Scheme; got != "moving-pivot" {
		t.Errorf("step 2 scheme = %s", got)
	}
	runs, err := st.List()
	if err != nil || len(runs) != 2 {
		t.Errorf("store has %d runs, err %v", len(runs), err)
	}
}

func TestSamplesDeterministic(t *testing.T) {
	cfg := &MonteCarloConfig{
		Perturb: map[string]Range{"medium.mass": {1, 2}, "solubility": {0.09, 0.11}},
		Trials:  5,
		Seed:    7,
	}
	a, b := cfg.Samples(), cfg.Samples()
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should give the same samples")
	}
	for _, p := range a {
		if m := p["medium.mass"]; m < 1 || m > 2 {
			t.Errorf("medium.mass %g out of range", m)
		}
		if c := p["solubility"]; c < 0.09 || c > 0.11 {
			t.Errorf("solubility %g out of range", c)
		}
	}
}

func TestRunMonteCarlo(t *testing.T) {
	cfg := &MonteCarloConfig{
		Base:    smallConfig(),
		Perturb: map[string]Range{"medium.mass": {0.5, 1.5}},
		Trials:  3,
		Seed:    1,
		Workers: 2,
	}
	trials, err := RunMonteCarlo(context.Background(), experiment.NewRegistry(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := MonteCarloStats(trials)
	if s.OK != 3 || s.Failed != 0 {
		t.Fatalf("ok=%d failed=%d", s.OK, s.Failed)
	}
	if !(s.MeanSize > 0) || s.MaxMassErrorPct > 1 {
		t.Errorf("stats %+v", s)
	}

	if _, err := RunMonteCarlo(context.Background(), experiment.NewRegistry(), &MonteCarloConfig{Base: smallConfig()}, nil); !errors.Is(err, ErrNoTrials) {
		t.Errorf("err = %v, want ErrNoTrials", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RunMonteCarlo(ctx, experiment.NewRegistry(), cfg, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMonteCarloStats(t *testing.T) {
	trials := []Trial{
		{Summary: metrics.Summary{MeanSize: 10, Yield: 0.1, MaxMassError: 0.01}},
		{Summary: metrics.Summary{MeanSize: 20, Yield: 0.3, MaxMassError: 0.05}},
		{Err: errors.New("boom")},
	}
	s := MonteCarloStats(trials)
	if s.OK != 2 || s.Failed != 1 {
		t.Fatalf("ok=%d failed=%d", s.OK, s.Failed)
	}
	if s.MeanSize != 15 || math.Abs(s.MeanSizeSD-math.Sqrt(50)) > 1e-12 {
		t.Errorf("mean size %g ± %g", s.MeanSize, s.MeanSizeSD)
	}
	if math.Abs(s.Yield-0.2) > 1e-12 || s.MaxMassErrorPct != 0.05 {
		t.Errorf("yield %g, max err %g", s.Yield, s.MaxMassErrorPct)
	}
}
