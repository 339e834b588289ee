package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pbesim/internal/config"
	"github.com/san-kum/pbesim/internal/experiment"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [scheme1] [scheme2] ...",
		Short: "run one batch with several schemes side by side",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareSchemes,
	}
	cmd.Flags().String("config", "", "run file (default built-in batch)")
	addRunFlags(cmd)
	return cmd
}

func compareSchemes(cmd *cobra.Command, args []string) error {
	var files []string
	if path := v.GetString("config"); path != "" {
		files = []string{path}
	}
	base, err := loadConfig(files)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	exps := make([]*experiment.Experiment, len(args))
	for i, scheme := range args {
		cfg := base.Clone()
		cfg.Scheme = scheme
		cfg.Name = base.Name + "-" + scheme
		if exps[i], err = experiment.New(reg, cfg, slog.Default()); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()
	outcomes := make([]*experiment.Outcome, len(exps))
	g, ctx := errgroup.WithContext(ctx)
	for i, exp := range exps {
		g.Go(func() error {
			out, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", args[i], err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("%s over [%g, %g]\n\n", base.Name, base.Times.Start, base.Times.End)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCHEME\tSTEPS\tMEAN SIZE\tCOUNT\tCONC\tYIELD %\tMASS ERR %\tWARN\tTIME")
	for _, out := range outcomes {
		s := out.Summary
		fmt.Fprintf(w, "%s\t%d\t%.5g\t%.4g\t%.5g\t%.2f\t%.3g\t%d\t%v\n",
			s.Scheme,
			out.Result.Stats.Steps,
			s.MeanSize,
			s.Count,
			s.Concentration,
			100*s.Yield,
			s.MaxMassError,
			s.Warnings,
			out.Elapsed.Round(time.Millisecond),
		)
	}
	return w.Flush()
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [config.yaml]",
		Short: "run a grid of parameter values in parallel",
		Long: "Each --param takes field=v1,v2,... with a field from: " +
			strings.Join(config.NumericFields(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: runSweep,
	}
	addRunFlags(cmd)
	cmd.Flags().StringArray("param", nil, "swept field and values, e.g. --param medium.mass=1,2,4")
	cmd.Flags().Int("workers", 0, "parallel runs (default one per CPU)")
	cmd.Flags().String("best", "mean_size", "metric used to pick the best point")
	return cmd
}

func parseParam(spec string) (experiment.Param, error) {
	field, raw, ok := strings.Cut(spec, "=")
	if !ok {
		return experiment.Param{}, fmt.Errorf("expected field=v1,v2,..., got %q", spec)
	}
	p := experiment.Param{Name: strings.TrimSpace(field)}
	for _, s := range strings.Split(raw, ",") {
		x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return experiment.Param{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		p.Values = append(p.Values, x)
	}
	return p, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(args)
	if err != nil {
		return err
	}
	var params []experiment.Param
	for _, spec := range v.GetStringSlice("param") {
		p, err := parseParam(spec)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	if len(params) == 0 {
		return fmt.Errorf("sweep needs at least one --param")
	}

	ctx, cancel := signalContext()
	defer cancel()
	sw := experiment.NewSweep(experiment.NewRegistry(), base, params, v.GetInt("workers"), slog.Default())
	fmt.Printf("sweeping %d points...\n", len(sw.Points()))
	runs, err := sw.Run(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(params)+4)
	for _, p := range params {
		header = append(header, strings.ToUpper(p.Name))
	}
	fmt.Fprintln(w, strings.Join(append(header, "MEAN SIZE", "COUNT", "YIELD %", "MASS ERR %"), "\t"))
	for _, run := range runs {
		cells := make([]string, 0, len(params)+4)
		for _, p := range params {
			cells = append(cells, strconv.FormatFloat(run.Params[p.Name], 'g', 4, 64))
		}
		if run.Err != nil {
			cells = append(cells, "error: "+run.Err.Error())
		} else {
			s := run.Outcome.Summary
			cells = append(cells,
				fmt.Sprintf("%.5g", s.MeanSize),
				fmt.Sprintf("%.4g", s.Count),
				fmt.Sprintf("%.2f", 100*s.Yield),
				fmt.Sprintf("%.3g", s.MaxMassError))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	metric := v.GetString("best")
	if best, ok := experiment.Best(runs, metric); ok {
		fmt.Printf("\nbest %s: %v\n", metric, best.Params)
	}
	return nil
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list built-in presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSCHEME\tGROWTH\tNUCLEATION")
			for _, name := range config.ListPresets() {
				c := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, c.Scheme, c.Growth, c.Nucleation)
			}
			return w.Flush()
		},
	}
}

func newSchemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "list discretization schemes and integrators",
		Run: func(cmd *cobra.Command, args []string) {
			reg := experiment.NewRegistry()
			fmt.Println("schemes:")
			for _, s := range reg.ListSchemes() {
				fmt.Printf("  %s\n", s)
			}
			fmt.Println("integrators:")
			for _, s := range reg.ListIntegrators() {
				fmt.Printf("  %s\n", s)
			}
		},
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a starter run file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "batch.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !v.GetBool("force") {
				return fmt.Errorf("%s exists (use --force to overwrite)", path)
			}
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	return cmd
}
