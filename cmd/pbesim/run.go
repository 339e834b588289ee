package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/pbesim/internal/config"
	"github.com/san-kum/pbesim/internal/experiment"
	"github.com/san-kum/pbesim/internal/storage"
	"github.com/san-kum/pbesim/internal/viz"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [config.yaml]",
		Short: "run a batch and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBatch,
	}
	addRunFlags(cmd)
	cmd.Flags().Bool("view", false, "open the viewer when the run finishes")
	cmd.Flags().String("theme", "cyberpunk", "viewer theme")
	return cmd
}

// addRunFlags registers the flags that override fields of a run file.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("preset", "", "start from a named preset instead of a file")
	cmd.Flags().String("name", "", "run name")
	cmd.Flags().String("scheme", "", "discretization scheme")
	cmd.Flags().String("integrator", "", "time integrator")
	cmd.Flags().Float64("tolerance", 0, "integrator tolerance")
	cmd.Flags().Float64("end", 0, "final time")
	cmd.Flags().Int("points", 0, "number of output snapshots")
	cmd.Flags().StringArray("set", nil, "override a numeric field, e.g. --set medium.mass=2")
}

// loadConfig resolves the run file: preset, then file, then defaults, with
// flags and PBESIM_* variables applied on top through validating setters.
func loadConfig(args []string) (*config.Config, error) {
	var cfg *config.Config
	switch preset := v.GetString("preset"); {
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	case len(args) > 0:
		loaded, err := config.Load(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	default:
		cfg = config.DefaultConfig()
	}

	rc := config.NewRunConfiguration(cfg, slog.Default())
	rc.OnChange(func(_ *config.RunConfiguration, field string) {
		slog.Debug("override applied", "field", field)
	})
	if v.IsSet("name") {
		cfg.Name = v.GetString("name")
	}
	if v.IsSet("scheme") {
		if err := rc.SetScheme(v.GetString("scheme")); err != nil {
			return nil, err
		}
	}
	if v.IsSet("integrator") {
		cfg.Integrator = v.GetString("integrator")
	}
	if v.IsSet("tolerance") {
		cfg.Tolerance = v.GetFloat64("tolerance")
	}
	if v.IsSet("end") || v.IsSet("points") {
		t := cfg.Times
		if v.IsSet("end") {
			t.End = v.GetFloat64("end")
		}
		if v.IsSet("points") {
			t.Points = v.GetInt("points")
		}
		probe := cfg.Clone()
		probe.Times = config.TimesConfig{Start: t.Start, End: t.End, Points: t.Points}
		times, err := probe.OutputTimes()
		if err != nil {
			return nil, err
		}
		if err := rc.SetTimes(times); err != nil {
			return nil, err
		}
	}
	for _, kv := range v.GetStringSlice("set") {
		field, value, err := parseAssignment(kv)
		if err != nil {
			return nil, err
		}
		if err := rc.SetNumber(field, value); err != nil {
			return nil, err
		}
	}
	return rc.Config(), nil
}

func parseAssignment(kv string) (string, float64, error) {
	field, raw, ok := strings.Cut(kv, "=")
	if !ok {
		return "", 0, fmt.Errorf("expected field=value, got %q", kv)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", field, err)
	}
	return strings.TrimSpace(field), value, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(experiment.NewRegistry(), cfg, slog.Default())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s (%s, %s)...\n", cfg.Name, cfg.Scheme, cfg.Integrator)
	out, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	st := storage.New(v.GetString("data"))
	runID, err := st.Save(cfg, out.Result, out.Metrics)
	if err != nil {
		return err
	}

	s := out.Summary
	fmt.Printf("completed in %v\n", out.Elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d accepted, %d rejected\n", out.Result.Stats.Steps, out.Result.Stats.Rejected)
	fmt.Printf("final: c=%.5g  mean size=%.4g  count=%.4g  yield=%.2f%%\n", s.Concentration, s.MeanSize, s.Count, 100*s.Yield)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(out.Metrics))
	for name := range out.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, out.Metrics[name])
	}
	if len(out.Result.Warnings) > 0 {
		fmt.Println("\nwarnings:")
		for _, w := range out.Result.Warnings {
			fmt.Printf("  %v\n", w)
		}
	}

	if v.GetBool("view") {
		return viz.Run(runID, out.Result, v.GetString("theme"))
	}
	return nil
}
