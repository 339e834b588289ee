// Package automation scripts batches of runs: YAML scenarios executed step by
// step into the run store, and Monte Carlo studies that perturb numeric run
// parameters to measure how sensitive the product is to them.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pbesim/internal/config"
	"github.com/san-kum/pbesim/internal/experiment"
	"github.com/san-kum/pbesim/internal/storage"
)

var ErrStepSource = errors.New("automation: step needs exactly one of preset or file")

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`

	dir string
}

// Step starts from a preset or a run file and applies overrides.
type Step struct {
	Preset string             `yaml:"preset,omitempty"`
	File   string             `yaml:"file,omitempty"`
	Scheme string             `yaml:"scheme,omitempty"`
	Set    map[string]float64 `yaml:"set,omitempty"`
	SaveAs string             `yaml:"save_as,omitempty"`
}

type StepResult struct {
	Step    int
	RunID   string
	Outcome *experiment.Outcome
}

// LoadScenario reads a scenario; step files resolve against its directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	sc.dir = filepath.Dir(path)
	return &sc, nil
}

// Config builds the run file for one step.
func (s *Scenario) Config(i int, logger *slog.Logger) (*config.Config, error) {
	step := s.Steps[i]
	var cfg *config.Config
	switch {
	case (step.Preset == "") == (step.File == ""):
		return nil, fmt.Errorf("step %d: %w", i+1, ErrStepSource)
	case step.Preset != "":
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("step %d: unknown preset %q", i+1, step.Preset)
		}
	default:
		path := step.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		cfg = loaded
	}

	rc := config.NewRunConfiguration(cfg, logger)
	if step.Scheme != "" {
		if err := rc.SetScheme(step.Scheme); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	fields := make([]string, 0, len(step.Set))
	for f := range step.Set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if err := rc.SetNumber(f, step.Set[f]); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	if step.SaveAs != "" {
		cfg.Name = step.SaveAs
	}
	return rc.Config(), nil
}

// Run executes the steps in order and stores each result when st is not
// nil. It stops at the first failing step and returns what finished before.
func (s *Scenario) Run(ctx context.Context, reg *experiment.Registry, st *storage.Store, logger *slog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]StepResult, 0, len(s.Steps))
	for i := range s.Steps {
		cfg, err := s.Config(i, logger)
		if err != nil {
			return results, err
		}
		logger.Info("scenario step", "scenario", s.Name, "step", i+1, "of", len(s.Steps), "run", cfg.Name)

		exp, err := experiment.New(reg, cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		out, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		r := StepResult{Step: i + 1, Outcome: out}
		if st != nil {
			if r.RunID, err = st.Save(cfg, out.Result, out.Metrics); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, r)
	}
	return results, nil
}
