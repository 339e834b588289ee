package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/pbesim/internal/metrics"
	"github.com/san-kum/pbesim/internal/pbe"
)

type ExportData struct {
	Name            string          `json:"name"`
	Scheme          string          `json:"scheme"`
	CrystalDensity  float64         `json:"crystal_density"`
	ShapeFactor     float64         `json:"shape_factor"`
	Times           []float64       `json:"times"`
	Concentrations  []float64       `json:"concentrations"`
	MediumMass      []float64       `json:"medium_mass"`
	Supersaturation []float64       `json:"supersaturation,omitempty"`
	MassBalance     []float64       `json:"mass_balance_pct"`
	Sizes           [][]float64     `json:"sizes"`
	Densities       [][]float64     `json:"densities"`
	Summary         metrics.Summary `json:"summary"`
	Warnings        []string        `json:"warnings,omitempty"`
}

func NewExportData(name string, res *pbe.Result) ExportData {
	data := ExportData{
		Name:            name,
		Scheme:          res.Scheme,
		CrystalDensity:  res.CrystalDensity,
		ShapeFactor:     res.ShapeFactor,
		Times:           res.Times,
		Concentrations:  res.Concentrations,
		MediumMass:      res.MediumMass,
		Supersaturation: res.Supersaturation,
		MassBalance:     metrics.MassBalance(res),
		Sizes:           make([][]float64, len(res.Distributions)),
		Densities:       make([][]float64, len(res.Distributions)),
		Summary:         metrics.Summarize(res),
	}
	for i, d := range res.Distributions {
		data.Sizes[i] = d.Grid()
		data.Densities[i] = d.Density()
	}
	for _, w := range res.Warnings {
		data.Warnings = append(data.Warnings, w.Error())
	}
	return data
}

func ExportJSON(path, name string, res *pbe.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ExportJSONTo(file, name, res); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func ExportJSONTo(w io.Writer, name string, res *pbe.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(name, res))
}
