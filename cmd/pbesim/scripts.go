package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/pbesim/internal/automation"
	"github.com/san-kum/pbesim/internal/experiment"
	"github.com/san-kum/pbesim/internal/export"
	"github.com/san-kum/pbesim/internal/viz"
)

func newExportSVGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw size distributions of a stored run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	cmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	cmd.Flags().IntSlice("snapshots", nil, "snapshot indices, negative from the end (default all)")
	cmd.Flags().Int("width", 800, "image width")
	cmd.Flags().Int("height", 480, "image height")
	cmd.Flags().String("theme", "cyberpunk", "color theme")
	return cmd
}

func exportSVG(cmd *cobra.Command, args []string) error {
	res, err := store().LoadResult(args[0])
	if err != nil {
		return err
	}
	snaps, err := cmd.Flags().GetIntSlice("snapshots")
	if err != nil {
		return err
	}
	out, err := output(v.GetString("out"))
	if err != nil {
		return err
	}
	opts := export.Options{
		Width:     v.GetInt("width"),
		Height:    v.GetInt("height"),
		Snapshots: snaps,
		Theme:     viz.GetTheme(v.GetString("theme")),
	}
	if err := export.Distributions(out, res, opts); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [scenario.yaml]",
		Short: "run a scripted sequence of batches",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	cmd.Flags().Bool("dry-run", false, "resolve every step without running it")
	return cmd
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}

	if v.GetBool("dry-run") {
		for i := range sc.Steps {
			cfg, err := sc.Config(i, slog.Default())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			fmt.Printf("  %d. %s (%s)\n", i+1, cfg.Name, cfg.Scheme)
		}
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := sc.Run(ctx, experiment.NewRegistry(), store(), slog.Default())
	for _, r := range results {
		s := r.Outcome.Summary
		fmt.Printf("  %d. %s  mean size=%.4g  yield=%.2f%%  mass err=%.3g%%\n", r.Step, r.RunID, s.MeanSize, 100*s.Yield, s.MaxMassError)
	}
	return err
}

func newMonteCarloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo [config.yaml]",
		Short: "sample numeric parameters and report the spread of the product",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addRunFlags(cmd)
	cmd.Flags().StringArray("vary", nil, "sampled field and range, e.g. --vary solubility=0.09:0.11")
	cmd.Flags().Int("trials", 20, "number of trials")
	cmd.Flags().Int64("seed", 1, "random seed")
	cmd.Flags().Int("workers", 0, "parallel runs (default one per CPU)")
	return cmd
}

func parseRange(spec string) (string, automation.Range, error) {
	field, raw, ok := strings.Cut(spec, "=")
	if !ok {
		return "", automation.Range{}, fmt.Errorf("expected field=min:max, got %q", spec)
	}
	lo, hi, ok := strings.Cut(raw, ":")
	if !ok {
		return "", automation.Range{}, fmt.Errorf("expected field=min:max, got %q", spec)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return "", automation.Range{}, err
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return "", automation.Range{}, err
	}
	if b < a {
		a, b = b, a
	}
	return strings.TrimSpace(field), automation.Range{Min: a, Max: b}, nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(args)
	if err != nil {
		return err
	}
	mc := &automation.MonteCarloConfig{
		Base:    base,
		Perturb: map[string]automation.Range{},
		Trials:  v.GetInt("trials"),
		Seed:    v.GetInt64("seed"),
		Workers: v.GetInt("workers"),
	}
	for _, spec := range v.GetStringSlice("vary") {
		field, r, err := parseRange(spec)
		if err != nil {
			return err
		}
		mc.Perturb[field] = r
	}
	if len(mc.Perturb) == 0 {
		return fmt.Errorf("montecarlo needs at least one --vary")
	}

	ctx, cancel := signalContext()
	defer cancel()
	fmt.Printf("running %d trials of %s...\n", mc.Trials, base.Name)
	trials, err := automation.RunMonteCarlo(ctx, experiment.NewRegistry(), mc, slog.Default())
	if err != nil {
		return err
	}

	s := automation.MonteCarloStats(trials)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "trials\t%d ok, %d failed\n", s.OK, s.Failed)
	fmt.Fprintf(w, "mean size\t%.5g ± %.3g\n", s.MeanSize, s.MeanSizeSD)
	fmt.Fprintf(w, "yield %%\t%.3f ± %.3f\n", 100*s.Yield, 100*s.YieldSD)
	fmt.Fprintf(w, "max mass err %%\t%.3g\n", s.MaxMassErrorPct)
	return w.Flush()
}
