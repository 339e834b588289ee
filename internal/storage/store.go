// Package storage keeps finished runs on disk, one directory per run:
//
//	<base>/<name>_NNN/metadata.json
//	<base>/<name>_NNN/run.yaml
//	<base>/<name>_NNN/distributions.csv
//	<base>/<name>_NNN/concentration.csv
//
// Run ids are numbered per name so nothing is ever overwritten.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/pbesim/internal/config"
	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/metrics"
	"github.com/san-kum/pbesim/internal/pbe"
)

const (
	metadataFile      = "metadata.json"
	configFile        = "run.yaml"
	distributionsFile = "distributions.csv"
	concentrationFile = "concentration.csv"
)

var ErrNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string { return filepath.Join(s.baseDir, runID) }

type RunMetadata struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Scheme         string             `json:"scheme"`
	Integrator     string             `json:"integrator"`
	Timestamp      time.Time          `json:"timestamp"`
	Tolerance      float64            `json:"tolerance"`
	Snapshots      int                `json:"snapshots"`
	CrystalDensity float64            `json:"crystal_density"`
	ShapeFactor    float64            `json:"shape_factor"`
	Stats          dynamo.Stats       `json:"stats"`
	Metrics        map[string]float64 `json:"metrics"`
	Summary        metrics.Summary    `json:"summary"`
	Warnings       []string           `json:"warnings,omitempty"`
}

// Save writes a run under a fresh id derived from cfg.Name.
func (s *Store) Save(cfg *config.Config, res *pbe.Result, values map[string]float64) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	runID, err := s.reserve(cfg.Name)
	if err != nil {
		return "", err
	}
	runDir := s.Dir(runID)

	meta := RunMetadata{
		ID:             runID,
		Name:           cfg.Name,
		Scheme:         res.Scheme,
		Integrator:     cfg.Integrator,
		Timestamp:      time.Now(),
		Tolerance:      cfg.Tolerance,
		Snapshots:      res.Len(),
		CrystalDensity: res.CrystalDensity,
		ShapeFactor:    res.ShapeFactor,
		Stats:          res.Stats,
		Metrics:        values,
		Summary:        metrics.Summarize(res),
	}
	for _, w := range res.Warnings {
		meta.Warnings = append(meta.Warnings, w.Error())
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, distributionsFile), func(f *os.File) error {
		return WriteDistributionsCSV(f, res)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, concentrationFile), func(f *os.File) error {
		return WriteConcentrationCSV(f, res)
	}); err != nil {
		return "", err
	}
	return runID, nil
}

// reserve creates the next free <name>_NNN directory.
func (s *Store) reserve(name string) (string, error) {
	name = sanitize(name)
	next := 1
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if n, ok := runNumber(name, e.Name()); ok && n >= next {
			next = n + 1
		}
	}
	for {
		id := fmt.Sprintf("%s_%03d", name, next)
		err := os.Mkdir(s.Dir(id), 0755)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		next++
	}
}

func runNumber(name, dir string) (int, bool) {
	rest, ok := strings.CutPrefix(dir, name+"_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}

func sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "run"
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' || r == os.PathSeparator {
			return '-'
		}
		return r
	}, name)
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig returns the run file the run was made from.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.Dir(runID), configFile))
}

// LoadResult rebuilds the recorded series. Warnings and stats come back
// from metadata; distributions are explicit.
func (s *Store) LoadResult(runID string) (*pbe.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.Dir(runID), distributionsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	times, dists, err := ReadDistributionsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", distributionsFile, err)
	}

	g, err := os.Open(filepath.Join(s.Dir(runID), concentrationFile))
	if err != nil {
		return nil, err
	}
	defer g.Close()
	res, err := ReadConcentrationCSV(g)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", concentrationFile, err)
	}

	if len(times) != res.Len() {
		return nil, fmt.Errorf("%w: %d distributions for %d concentrations", dynamo.ErrSizeMismatch, len(times), res.Len())
	}
	res.Distributions = dists
	res.Scheme = meta.Scheme
	res.CrystalDensity = meta.CrystalDensity
	res.ShapeFactor = meta.ShapeFactor
	res.Stats = meta.Stats
	for _, w := range meta.Warnings {
		res.Warnings = append(res.Warnings, dynamo.Warning{Source: "stored", Message: w})
	}
	return res, nil
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeFile(path string, fill func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
