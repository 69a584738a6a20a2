// Package storage persists finished sweeps as run directories and bundles
// several series into a session snapshot.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/spinsim/internal/device"
	"github.com/san-kum/spinsim/internal/llg"
	"github.com/san-kum/spinsim/internal/results"
	"github.com/san-kum/spinsim/internal/stimulus"
)

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
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Mode      string             `json:"mode"`
	Timestamp time.Time          `json:"timestamp"`
	Status    string             `json:"status"`
	Points    int                `json:"points"`
	Failed    int                `json:"failed"`
	Layers    []device.Layer     `json:"layers"`
	Stimulus  stimulus.Spec      `json:"stimulus"`
	Solver    llg.Options        `json:"solver"`
	Metrics   map[string]float64 `json:"metrics"`
}

const (
	metadataFile = "metadata.json"
	seriesJSON   = "series.json"
	seriesTSV    = "series.tsv"
	pimmTSV      = "pimm.tsv"
	vsdTSV       = "vsd.tsv"
)

// Save writes series under a new run directory named <name>_<unix> and
// returns the run id. Points, Failed, Mode and Metrics are filled from the
// series.
func (s *Store) Save(meta RunMetadata, series *results.Series) (string, error) {
	if meta.Name == "" {
		meta.Name = series.Name
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runID, runDir, err := s.mkRunDir(meta.Name, meta.Timestamp)
	if err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Mode = series.Mode
	meta.Points = series.Len()
	meta.Failed = series.Len() - series.Completed()
	meta.Metrics = summarize(series)

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, seriesJSON), series); err != nil {
		return "", err
	}
	if err := writeTSV(filepath.Join(runDir, seriesTSV), seriesRows(series)); err != nil {
		return "", err
	}
	if err := writeTSV(filepath.Join(runDir, pimmTSV), pimmRows(series)); err != nil {
		return "", err
	}
	if len(series.Freqs) > 0 {
		if err := writeTSV(filepath.Join(runDir, vsdTSV), vsdRows(series)); err != nil {
			return "", err
		}
	}
	return runID, nil
}

// mkRunDir appends -1, -2, … when a run with the same name was saved in
// the same second.
func (s *Store) mkRunDir(name string, ts time.Time) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", name, ts.Unix())
	for n := 0; ; n++ {
		id := base
		if n > 0 {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		dir := s.Dir(id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
	}
}

func summarize(series *results.Series) map[string]float64 {
	var drift float64
	for _, r := range series.Records {
		if !r.Failed && r.NormDrift > drift {
			drift = r.NormDrift
		}
	}
	return map[string]float64{
		"norm_drift": drift,
		"completed":  float64(series.Completed()),
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func writeTSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
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
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

// Latest returns the id of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("storage: no runs in %s", s.baseDir)
	}
	return runs[len(runs)-1].ID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads the full record set back.
func (s *Store) LoadSeries(runID string) (*results.Series, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), seriesJSON))
	if err != nil {
		return nil, err
	}
	var series results.Series
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &series, nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
