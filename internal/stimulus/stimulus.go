// Package stimulus describes what is applied to the stack at each sweep
// point and derives the concrete sweep grid from it.
package stimulus

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// Mode names the swept quantity.
type Mode string

const (
	ModeH     Mode = "H"
	ModePhi   Mode = "Phi"
	ModeTheta Mode = "Theta"
)

// ParseMode is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h":
		return ModeH, nil
	case "phi":
		return ModePhi, nil
	case "theta":
		return ModeTheta, nil
	}
	return "", dynamo.Configf("stimulus.mode", "unknown mode %q (want H, Phi or Theta)", s)
}

// Axis is a closed range; Min == Max means the quantity is held fixed.
type Axis struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

func Fixed(v float64) Axis { return Axis{Min: v, Max: v} }

func (a Axis) Varies() bool { return a.Min != a.Max }

const (
	DefaultMaxFrequency   = 60e9
	DefaultPulseAmplitude = 1e4
)

// Spec is one sweep request. Angles are in degrees, fields in A/m,
// frequencies in Hz, currents in A and times in seconds.
type Spec struct {
	Mode  Mode `yaml:"mode" json:"mode"`
	H     Axis `yaml:"h" json:"h"`
	Theta Axis `yaml:"theta" json:"theta"`
	Phi   Axis `yaml:"phi" json:"phi"`
	Steps int  `yaml:"steps" json:"steps"`
	Back  bool `yaml:"back" json:"back"`

	FreqMin   float64 `yaml:"freq_min" json:"freq_min"`
	FreqMax   float64 `yaml:"freq_max" json:"freq_max"`
	FreqSteps int     `yaml:"freq_steps" json:"freq_steps"`

	IAC   float64      `yaml:"iac" json:"iac"`
	IDC   float64      `yaml:"idc" json:"idc"`
	IDir  vecmath.Vec3 `yaml:"idir" json:"idir"`
	Phase float64      `yaml:"phase" json:"phase"` // degrees
	VDir  vecmath.Vec3 `yaml:"vdir" json:"vdir"`

	LLGTime  float64 `yaml:"llg_time" json:"llg_time"`
	LLGSteps int     `yaml:"llg_steps" json:"llg_steps"`

	MaxFrequency   float64 `yaml:"max_frequency" json:"max_frequency"`
	PulseAmplitude float64 `yaml:"pulse_amplitude" json:"pulse_amplitude"`
	PulseWidth     float64 `yaml:"pulse_width" json:"pulse_width"` // 0: one time step
}

// WithDefaults fills unset optional fields.
func (s Spec) WithDefaults() Spec {
	if s.MaxFrequency == 0 {
		s.MaxFrequency = DefaultMaxFrequency
	}
	if s.PulseAmplitude == 0 {
		s.PulseAmplitude = DefaultPulseAmplitude
	}
	if s.VDir.IsZero() {
		s.VDir = vecmath.New(1, 0, 0)
	}
	if s.IDir.IsZero() {
		s.IDir = vecmath.New(0, 1, 0)
	}
	if s.PulseWidth == 0 && s.LLGSteps > 0 {
		s.PulseWidth = s.LLGTime / float64(s.LLGSteps)
	}
	return s
}

func (s Spec) axis(m Mode) Axis {
	switch m {
	case ModeTheta:
		return s.Theta
	case ModePhi:
		return s.Phi
	default:
		return s.H
	}
}

// Validate rejects ambiguous or malformed requests before any integration.
func (s Spec) Validate() error {
	switch s.Mode {
	case ModeH, ModePhi, ModeTheta:
	default:
		return dynamo.Configf("stimulus.mode", "unknown mode %q (want H, Phi or Theta)", s.Mode)
	}

	var varying []Mode
	for _, m := range []Mode{ModeH, ModeTheta, ModePhi} {
		if s.axis(m).Varies() {
			varying = append(varying, m)
		}
	}
	switch {
	case len(varying) == 0:
		return dynamo.Configf("stimulus", "mode %s but no quantity varies", s.Mode)
	case len(varying) > 1:
		return dynamo.Configf("stimulus", "only one of H, Theta, Phi may vary, got %v", varying)
	case varying[0] != s.Mode:
		return dynamo.Configf("stimulus.mode", "mode %s but %s is the varying quantity", s.Mode, varying[0])
	}

	if s.Steps < 1 {
		return dynamo.Configf("stimulus.steps", "must be at least 1, got %d", s.Steps)
	}
	if !(s.LLGTime > 0) {
		return dynamo.Configf("stimulus.llg_time", "must be positive, got %g", s.LLGTime)
	}
	if s.LLGSteps < 2 {
		return dynamo.Configf("stimulus.llg_steps", "must be at least 2, got %d", s.LLGSteps)
	}
	if s.FreqSteps < 0 {
		return dynamo.Configf("stimulus.freq_steps", "must be non-negative, got %d", s.FreqSteps)
	}
	if s.FreqSteps > 0 {
		if s.FreqMin <= 0 || s.FreqMax < s.FreqMin {
			return dynamo.Configf("stimulus.freq", "need 0 < fmin <= fmax, got %g..%g", s.FreqMin, s.FreqMax)
		}
		nyquist := float64(s.LLGSteps) / (2 * s.LLGTime)
		if s.FreqMax >= nyquist {
			return dynamo.Configf("stimulus.freq_max", "%g Hz is at or above the Nyquist frequency %g Hz", s.FreqMax, nyquist)
		}
	}
	if s.MaxFrequency < 0 || s.PulseWidth < 0 {
		return dynamo.Configf("stimulus", "max_frequency and pulse_width must be non-negative")
	}
	for _, v := range []float64{s.H.Min, s.H.Max, s.Theta.Min, s.Theta.Max, s.Phi.Min, s.Phi.Max, s.IAC, s.IDC, s.Phase} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dynamo.Configf("stimulus", "non-finite value %g", v)
		}
	}
	return nil
}

// Sweep is the derived, immutable point grid.
type Sweep struct {
	Fields       []vecmath.Vec3
	Labels       []float64 // swept quantity per point
	Freqs        []float64 // spin-diode drive frequencies
	Dt           float64
	MaxFrequency float64
}

func (s Sweep) Len() int { return len(s.Fields) }

// linspace returns n evenly spaced values in [lo, hi]; one point yields lo.
func linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Sweep validates s (after defaults) and expands it into the point grid.
// With Back set the grid doubles and the second half is the negation of
// the first.
func (s Spec) Sweep() (Sweep, error) {
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return Sweep{}, err
	}

	values := linspace(s.axis(s.Mode).Min, s.axis(s.Mode).Max, s.Steps)
	n := len(values)
	total := n
	if s.Back {
		total = 2 * n
	}
	out := Sweep{
		Fields:       make([]vecmath.Vec3, total),
		Labels:       make([]float64, total),
		Freqs:        linspace(s.FreqMin, s.FreqMax, s.FreqSteps),
		Dt:           s.LLGTime / float64(s.LLGSteps),
		MaxFrequency: s.MaxFrequency,
	}

	for i, v := range values {
		h, theta, phi := s.H.Min, s.Theta.Min, s.Phi.Min
		switch s.Mode {
		case ModeH:
			h = v
		case ModeTheta:
			theta = v
		case ModePhi:
			phi = v
		}
		out.Fields[i] = vecmath.FromSpherical(h, theta, phi)
		out.Labels[i] = v
	}
	if s.Back {
		for i := 0; i < n; i++ {
			out.Fields[n+i] = out.Fields[i].Neg()
			out.Labels[n+i] = -out.Labels[i]
		}
	}
	return out, nil
}
