package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/spinsim/internal/results"
)

// ExportData is the JSON export of one saved run.
type ExportData struct {
	Meta   *RunMetadata    `json:"meta,omitempty"`
	Series *results.Series `json:"series"`
}

func ExportJSON(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportRun writes runID as JSON to path, or to stdout when path is empty
// or "-".
func (s *Store) ExportRun(runID, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}
	data := ExportData{Meta: meta, Series: series}

	if path == "" || path == "-" {
		return ExportJSON(os.Stdout, data)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ExportJSON(f, data); err != nil {
		return err
	}
	return f.Close()
}
