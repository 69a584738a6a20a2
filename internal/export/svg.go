// Package export renders saved sweeps as standalone SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/spinsim/internal/results"
	"github.com/san-kum/spinsim/internal/vecmath"
	"github.com/san-kum/spinsim/internal/viz"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

var palette = []string{"#00ccff", "#ffcc00", "#00ff88", "#ff4444", "#aa88ff", "#ff88cc"}

// CanvasToSVG draws every lit braille dot as a circle of radius 0.4·scale.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	w := int(float64(canvas.DotsX()) * scale)
	h := int(float64(canvas.DotsY()) * scale)

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, w, h, w, h)
	sb.WriteString(`<g fill="#00ff88">` + "\n")
	for y := 0; y < canvas.DotsY(); y++ {
		for x := 0; x < canvas.DotsX(); x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n",
				(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, 0.4*scale)
		}
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// SphereSVG renders the relaxed layer moments of r, or its trajectory when
// one was sampled, on the unit sphere.
func SphereSVG(r *results.Record, cells int, scale float64) string {
	traj := r.Trajectory
	if len(traj) == 0 {
		for _, l := range r.Layers {
			traj = append(traj, []vecmath.Vec3{l})
		}
	}
	canvas := viz.NewCanvas(cells, cells/2)
	viz.SphereView(canvas, viz.NewCamera(), traj)
	return CanvasToSVG(canvas, scale)
}

// Curve is one polyline. NaN in Y breaks the line.
type Curve struct {
	Label string
	X, Y  []float64
}

// CurvesToSVG plots curves on shared axes with 10% padding and a legend.
func CurvesToSVG(curves []Curve, width, height int, title string) (string, error) {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, c := range curves {
		if len(c.X) != len(c.Y) {
			return "", fmt.Errorf("export: curve %q has %d x and %d y values", c.Label, len(c.X), len(c.Y))
		}
		for i, y := range c.Y {
			if math.IsNaN(y) || math.IsInf(y, 0) {
				continue
			}
			minX, maxX = math.Min(minX, c.X[i]), math.Max(maxX, c.X[i])
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}
	if math.IsInf(minX, 1) {
		return "", fmt.Errorf("export: nothing to plot")
	}

	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	fmt.Fprintf(&sb, `<text x="8" y="16" fill="#cccccc" font-family="monospace" font-size="12">%s</text>`+"\n", escape(title))

	for k, c := range curves {
		color := palette[k%len(palette)]
		var d strings.Builder
		pen := false
		for i, y := range c.Y {
			if math.IsNaN(y) || math.IsInf(y, 0) {
				pen = false
				continue
			}
			px := (c.X[i] - minX) / rangeX * float64(width)
			py := float64(height) - (y-minY)/rangeY*float64(height)
			cmd := "L"
			if !pen {
				cmd = "M"
			}
			fmt.Fprintf(&d, "%s%.1f,%.1f ", cmd, px, py)
			pen = true
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>`+"\n", color, strings.TrimSpace(d.String()))
		if c.Label != "" {
			fmt.Fprintf(&sb, `<text x="%d" y="%d" fill="%s" font-family="monospace" font-size="11">%s</text>`+"\n",
				width-140, 16+14*k, color, escape(c.Label))
		}
	}
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// SeriesSVG plots one quantity of s against the swept value: "rx", "ry",
// "rz", "peak" (PIMM peak, GHz) or "diode" (Vdc per drive frequency, uV).
func SeriesSVG(s *results.Series, which string, width, height int) (string, error) {
	x := s.Values()
	var curves []Curve
	switch which {
	case "peak":
		y := viz.PeakFrequencies(s)
		for i := range y {
			y[i] /= 1e9
		}
		curves = []Curve{{Label: "f_peak (GHz)", X: x, Y: y}}
	case "diode":
		for j, y := range viz.DiodeCurves(s) {
			for i := range y {
				y[i] *= 1e6
			}
			curves = append(curves, Curve{Label: fmt.Sprintf("%.3g GHz", s.Freqs[j]/1e9), X: x, Y: y})
		}
		if len(curves) == 0 {
			return "", fmt.Errorf("export: %s has no spin-diode data", s.Name)
		}
	default:
		y, err := viz.Resistance(s, which)
		if err != nil {
			return "", err
		}
		curves = []Curve{{Label: which + " (Ohm)", X: x, Y: y}}
	}
	return CurvesToSVG(curves, width, height, fmt.Sprintf("%s: %s vs %s", s.Name, which, s.Mode))
}
