package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/san-kum/spinsim/internal/results"
)

var seriesHeader = []string{"index", "value", "field", "m", "Rx", "Ry", "Rz", "norm_drift", "failed", "err"}

func seriesRows(s *results.Series) [][]string {
	rows := make([][]string, 0, s.Len()+1)
	rows = append(rows, seriesHeader)
	for _, r := range s.Records {
		rows = append(rows, []string{
			strconv.Itoa(r.Index),
			formatFloat(r.Value),
			r.Field.String(),
			r.M.String(),
			formatFloat(r.Rx),
			formatFloat(r.Ry),
			formatFloat(r.Rz),
			formatFloat(r.NormDrift),
			strconv.FormatBool(r.Failed),
			r.Err,
		})
	}
	return rows
}

// pimmRows is the spectrogram: one row per sweep value, one column per
// PIMM frequency. Failed points leave their cells empty.
func pimmRows(s *results.Series) [][]string {
	var freqs []float64
	for _, r := range s.Records {
		if !r.Failed && r.PIMM.Len() > 0 {
			freqs = r.PIMM.Freqs
			break
		}
	}
	header := make([]string, 0, len(freqs)+1)
	header = append(header, "value")
	for _, f := range freqs {
		header = append(header, formatFloat(f))
	}

	rows := [][]string{header}
	for _, r := range s.Records {
		row := make([]string, len(header))
		row[0] = formatFloat(r.Value)
		for k := range freqs {
			if k < len(r.PIMM.Amplitude) {
				row[k+1] = formatFloat(r.PIMM.Amplitude[k])
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// vsdRows holds the rectified DC voltage per sweep value and drive
// frequency.
func vsdRows(s *results.Series) [][]string {
	header := make([]string, 0, len(s.Freqs)+1)
	header = append(header, "value")
	for _, f := range s.Freqs {
		header = append(header, formatFloat(f))
	}

	rows := [][]string{header}
	for _, r := range s.Records {
		row := make([]string, len(header))
		row[0] = formatFloat(r.Value)
		for k, d := range r.Diode {
			if k+1 < len(row) && !d.Failed {
				row[k+1] = formatFloat(d.DC)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Spectrogram is a value × frequency grid read back from pimm.tsv or
// vsd.tsv. Missing cells are NaN.
type Spectrogram struct {
	Values []float64
	Freqs  []float64
	Data   [][]float64
}

// LoadSpectrogram reads "pimm" or "vsd" for runID.
func (s *Store) LoadSpectrogram(runID, kind string) (*Spectrogram, error) {
	var name string
	switch kind {
	case "pimm":
		name = pimmTSV
	case "vsd":
		name = vsdTSV
	default:
		return nil, fmt.Errorf("storage: unknown spectrogram %q", kind)
	}

	f, err := os.Open(filepath.Join(s.Dir(runID), name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Spectrogram{}, nil
	}

	sg := &Spectrogram{}
	for _, cell := range records[0][1:] {
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("%s header: %w", name, err)
		}
		sg.Freqs = append(sg.Freqs, v)
	}
	for _, rec := range records[1:] {
		v, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sg.Values = append(sg.Values, v)
		row := make([]float64, len(rec)-1)
		for k, cell := range rec[1:] {
			row[k] = parseOrNaN(cell)
		}
		sg.Data = append(sg.Data, row)
	}
	return sg, nil
}

func parseOrNaN(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nan
	}
	return v
}
