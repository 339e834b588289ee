package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/metrics"
	"github.com/san-kum/pbesim/internal/pbe"
)

var (
	distributionsHeader = []string{"time", "size", "density"}
	concentrationHeader = []string{"time", "concentration", "medium_mass", "temperature", "solubility", "supersaturation", "mass_balance_pct", "mean_size"}
)

func format(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteDistributionsCSV writes one row per (time, size) pair.
func WriteDistributionsCSV(out io.Writer, res *pbe.Result) error {
	w := csv.NewWriter(out)
	if err := w.Write(distributionsHeader); err != nil {
		return err
	}
	for i, d := range res.Distributions {
		t := format(res.Times[i])
		grid, density := d.Grid(), d.Density()
		for k := range grid {
			if err := w.Write([]string{t, format(grid[k]), format(density[k])}); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// WriteConcentrationCSV writes one row per snapshot with the scalar series.
func WriteConcentrationCSV(out io.Writer, res *pbe.Result) error {
	balance := metrics.MassBalance(res)
	sizes := metrics.SizeSeries(res)

	w := csv.NewWriter(out)
	if err := w.Write(concentrationHeader); err != nil {
		return err
	}
	for i := range res.Times {
		row := []string{
			format(res.Times[i]),
			format(res.Concentrations[i]),
			format(res.MediumMass[i]),
			format(at(res.Temperature, i)),
			format(at(res.Solubility, i)),
			format(at(res.Supersaturation, i)),
			format(balance[i]),
			format(sizes[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// ReadDistributionsCSV groups consecutive rows with equal time into one
// distribution each.
func ReadDistributionsCSV(in io.Reader) ([]float64, []*distribution.Distribution, error) {
	records, err := readRecords(in, len(distributionsHeader))
	if err != nil {
		return nil, nil, err
	}

	var (
		times []float64
		dists []*distribution.Distribution
		grid  []float64
		dens  []float64
	)
	flush := func() error {
		if grid == nil {
			return nil
		}
		d, err := distribution.New(grid, dens)
		if err != nil {
			return fmt.Errorf("t=%g: %w", times[len(times)-1], err)
		}
		dists = append(dists, d)
		grid, dens = nil, nil
		return nil
	}

	for n, rec := range records {
		row, err := parseRow(rec, n+2)
		if err != nil {
			return nil, nil, err
		}
		if len(times) == 0 || row[0] != times[len(times)-1] {
			if err := flush(); err != nil {
				return nil, nil, err
			}
			times = append(times, row[0])
		}
		grid = append(grid, row[1])
		dens = append(dens, row[2])
	}
	if err := flush(); err != nil {
		return nil, nil, err
	}
	return times, dists, nil
}

// ReadConcentrationCSV returns a Result holding only the scalar series.
func ReadConcentrationCSV(in io.Reader) (*pbe.Result, error) {
	records, err := readRecords(in, len(concentrationHeader))
	if err != nil {
		return nil, err
	}
	res := &pbe.Result{}
	for n, rec := range records {
		row, err := parseRow(rec, n+2)
		if err != nil {
			return nil, err
		}
		res.Times = append(res.Times, row[0])
		res.Concentrations = append(res.Concentrations, row[1])
		res.MediumMass = append(res.MediumMass, row[2])
		res.Temperature = append(res.Temperature, row[3])
		res.Solubility = append(res.Solubility, row[4])
		res.Supersaturation = append(res.Supersaturation, row[5])
	}
	return res, nil
}

func readRecords(in io.Reader, fields int) ([][]string, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = fields
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header")
	}
	return records[1:], nil
}

func parseRow(rec []string, line int) ([]float64, error) {
	row := make([]float64, len(rec))
	for i, field := range rec {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row[i] = v
	}
	return row, nil
}
