package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/spinsim/internal/results"
)

// Palette shared by the monitor, the plots and the CLI.
const (
	colorOK     = lipgloss.Color("#00ff88")
	colorWarn   = lipgloss.Color("#ffaa00")
	colorBad    = lipgloss.Color("#ff4444")
	colorAccent = lipgloss.Color("#00ccff")
	colorTitle  = lipgloss.Color("#00ffff")
	colorDim    = lipgloss.Color("#666688")
	colorLabel  = lipgloss.Color("#888899")
	colorFrame  = lipgloss.Color("#444466")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	Panel = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFrame).Padding(0, 1)
	Title = fg(colorTitle).Bold(true)

	Subtle  = fg(colorDim)
	KeyHint = fg(colorDim).Italic(true)

	StatusRunning = fg(colorOK).Bold(true)
	StatusPaused  = fg(colorWarn).Bold(true)
	StatusFailed  = fg(colorBad).Bold(true)

	MetricValue = fg(colorAccent).Bold(true)
	MetricLabel = fg(colorLabel).Width(12)

	SparkHigh = fg(colorOK)
	SparkMid  = fg(lipgloss.Color("#ffcc00"))
	SparkLow  = fg(colorBad)
)

// StatusStyle colours an update status.
func StatusStyle(s results.Status) lipgloss.Style {
	switch s {
	case results.StatusPointFailed, results.StatusFailed, results.StatusKilled:
		return StatusFailed
	case results.StatusInProgress:
		return StatusRunning
	default:
		return MetricValue
	}
}

// Metric renders "label value" on one line.
func Metric(label, value string) string {
	return MetricLabel.Render(label) + MetricValue.Render(value)
}

// ProgressBar renders percent (0..100) as a bar of the given width.
func ProgressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case percent >= 100:
		return SparkHigh.Render(bar)
	case percent > 40:
		return SparkMid.Render(bar)
	}
	return SparkLow.Render(bar)
}

// Sparkline squeezes values into width block characters. NaN entries
// (failed points) render as a gap.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi, ok := bounds(values)
	if !ok {
		return strings.Repeat(" ", min(width, len(values)))
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		v := values[i*step]
		if v != v {
			b.WriteRune(' ')
			continue
		}
		norm := (v - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))

		c := string(chars[idx])
		switch {
		case norm > 0.7:
			b.WriteString(SparkHigh.Render(c))
		case norm > 0.3:
			b.WriteString(SparkMid.Render(c))
		default:
			b.WriteString(SparkLow.Render(c))
		}
	}
	return b.String()
}

// bounds skips NaN; ok is false when every value is NaN.
func bounds(values []float64) (lo, hi float64, ok bool) {
	for _, v := range values {
		if v != v {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, ok
}

func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return Subtle.Render(left + " ◆ " + right)
}
