package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pbesim/internal/metrics"
	"github.com/san-kum/pbesim/internal/pbe"
	"github.com/san-kum/pbesim/internal/storage"
	"github.com/san-kum/pbesim/internal/viz"
)

func store() *storage.Store { return storage.New(v.GetString("data")) }

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := store().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCHEME\tINTEG\tTIME\tSNAPSHOTS\tMEAN SIZE\tMASS ERR %")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4g\t%.3g\n",
			run.ID,
			run.Scheme,
			run.Integrator,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Snapshots,
			run.Summary.MeanSize,
			run.Summary.MaxMassError,
		)
	}
	return w.Flush()
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	cmd.Flags().Int("snapshot", -1, "snapshot index for the size distribution (-1 is the last)")
	cmd.Flags().Int("width", 80, "plot width")
	return cmd
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := store()
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	res, err := st.LoadResult(runID)
	if err != nil {
		return err
	}
	if res.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	idx := v.GetInt("snapshot")
	if idx < 0 {
		idx = res.Len() - 1
	}
	if idx >= res.Len() {
		return fmt.Errorf("snapshot %d out of range (run has %d)", idx, res.Len())
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scheme: %s\n", meta.Scheme)
	fmt.Printf("snapshots: %d\n\n", res.Len())

	width := v.GetInt("width")
	d := res.Distributions[idx]
	series := []struct {
		caption string
		data    []float64
	}{
		{fmt.Sprintf("number density at t=%.4g over y=[%.3g, %.3g]", res.Times[idx], d.Min(), d.Max()), d.Density()},
		{"concentration", res.Concentrations},
		{"supersaturation", res.Supersaturation},
		{"weight mean size", metrics.SizeSeries(res)},
		{"mass balance error %", metrics.MassBalance(res)},
	}
	for _, s := range series {
		if len(s.data) < 2 {
			continue
		}
		graph := asciigraph.Plot(s.data,
			asciigraph.Height(10),
			asciigraph.Width(width),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

// output opens path for writing, or stdout for "" and "-".
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func newExportCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	cmd.Flags().String("table", "distributions", "table to export (distributions or concentration)")
	cmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	return cmd
}

func exportCSV(cmd *cobra.Command, args []string) error {
	res, err := store().LoadResult(args[0])
	if err != nil {
		return err
	}
	var write func(io.Writer, *pbe.Result) error
	switch table := v.GetString("table"); table {
	case "distributions":
		write = storage.WriteDistributionsCSV
	case "concentration":
		write = storage.WriteConcentrationCSV
	default:
		return fmt.Errorf("unknown table %q (distributions, concentration)", table)
	}

	out, err := output(v.GetString("out"))
	if err != nil {
		return err
	}
	if err := write(out, res); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func newExportJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	cmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	return cmd
}

func exportJSON(cmd *cobra.Command, args []string) error {
	res, err := store().LoadResult(args[0])
	if err != nil {
		return err
	}
	if path := v.GetString("out"); path != "" && path != "-" {
		if err := storage.ExportJSON(path, args[0], res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "exported to %s\n", path)
		return nil
	}
	return storage.ExportJSONTo(os.Stdout, args[0], res)
}

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "replay a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := store().LoadResult(args[0])
			if err != nil {
				return err
			}
			return viz.Run(args[0], res, v.GetString("theme"))
		},
	}
	cmd.Flags().String("theme", "cyberpunk", "color theme ("+fmt.Sprint(viz.ThemeNames())+")")
	return cmd
}
