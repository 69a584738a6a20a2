package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/spinsim/internal/results"
)

// PlotOptions sizes every plot in this file.
type PlotOptions struct {
	Width  int
	Height int
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 80, Height: 12}
}

func (o PlotOptions) opts(caption string) []asciigraph.Option {
	return []asciigraph.Option{
		asciigraph.Height(o.Height),
		asciigraph.Width(o.Width),
		asciigraph.Caption(caption),
	}
}

// Resistance returns one resistance component per record; failed points
// are NaN. which is "rx", "ry" or "rz".
func Resistance(s *results.Series, which string) ([]float64, error) {
	pick := map[string]func(*results.Record) float64{
		"rx": func(r *results.Record) float64 { return r.Rx },
		"ry": func(r *results.Record) float64 { return r.Ry },
		"rz": func(r *results.Record) float64 { return r.Rz },
	}[which]
	if pick == nil {
		return nil, fmt.Errorf("viz: unknown resistance component %q", which)
	}
	out := make([]float64, s.Len())
	for i, r := range s.Records {
		if r.Failed {
			out[i] = math.NaN()
			continue
		}
		out[i] = pick(r)
	}
	return out, nil
}

// PeakFrequencies returns the PIMM peak (Hz) per record.
func PeakFrequencies(s *results.Series) []float64 {
	out := make([]float64, s.Len())
	for i, r := range s.Records {
		if r.Failed || r.PIMM.Len() == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i], _ = r.PIMM.Peak()
	}
	return out
}

// DiodeCurves returns one curve per drive frequency: the rectified DC
// voltage against the sweep index.
func DiodeCurves(s *results.Series) [][]float64 {
	curves := make([][]float64, len(s.Freqs))
	for j := range curves {
		curves[j] = make([]float64, s.Len())
		for i, r := range s.Records {
			if r.Failed || j >= len(r.Diode) || r.Diode[j].Failed {
				curves[j][i] = math.NaN()
				continue
			}
			curves[j][i] = r.Diode[j].DC
		}
	}
	return curves
}

func finite(data []float64) bool {
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// PlotResistance charts Rx, Ry or Rz against the sweep.
func PlotResistance(s *results.Series, which string, o PlotOptions) (string, error) {
	data, err := Resistance(s, which)
	if err != nil {
		return "", err
	}
	if !finite(data) {
		return "", fmt.Errorf("viz: %s has no completed points", s.Name)
	}
	caption := fmt.Sprintf("%s %s (Ohm) vs %s", s.Name, which, s.Mode)
	return asciigraph.Plot(data, o.opts(caption)...), nil
}

// PlotPeak charts the PIMM peak frequency in GHz.
func PlotPeak(s *results.Series, o PlotOptions) (string, error) {
	data := PeakFrequencies(s)
	for i := range data {
		data[i] /= 1e9
	}
	if !finite(data) {
		return "", fmt.Errorf("viz: %s has no PIMM spectra", s.Name)
	}
	caption := fmt.Sprintf("%s PIMM peak (GHz) vs %s", s.Name, s.Mode)
	return asciigraph.Plot(data, o.opts(caption)...), nil
}

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan, asciigraph.Yellow, asciigraph.Green,
	asciigraph.Red, asciigraph.Blue, asciigraph.Magenta,
}

// PlotDiode overlays the rectified voltage (uV) at every drive frequency.
func PlotDiode(s *results.Series, o PlotOptions) (string, error) {
	curves := DiodeCurves(s)
	if len(curves) == 0 {
		return "", fmt.Errorf("viz: %s has no spin-diode data", s.Name)
	}
	ok := false
	colors := make([]asciigraph.AnsiColor, len(curves))
	for j, c := range curves {
		for i := range c {
			c[i] *= 1e6
		}
		ok = ok || finite(c)
		colors[j] = seriesColors[j%len(seriesColors)]
	}
	if !ok {
		return "", fmt.Errorf("viz: %s has no completed points", s.Name)
	}
	caption := fmt.Sprintf("%s Vdc (uV) vs %s, %d frequencies", s.Name, s.Mode, len(curves))
	opts := append(o.opts(caption), asciigraph.SeriesColors(colors...))
	return asciigraph.PlotMany(curves, opts...), nil
}
