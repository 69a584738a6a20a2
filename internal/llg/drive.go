package llg

import (
	"math"

	"github.com/san-kum/spinsim/internal/vecmath"
)

// DriveKind selects the Oersted excitation waveform.
type DriveKind int

const (
	DriveNone DriveKind = iota
	DrivePulse
	DriveRF
)

func (k DriveKind) String() string {
	switch k {
	case DrivePulse:
		return "pulse"
	case DriveRF:
		return "rf"
	default:
		return "none"
	}
}

// rfScale maps the RF current amplitude to the Oersted field amplitude,
// matching the calibration of the measurement setup.
const rfScale = 1.0 / 8.0

// Drive is the time-dependent current excitation shared by every layer.
type Drive struct {
	Kind DriveKind
	Dir  vecmath.Vec3 // current direction, overridden by a layer's Idir

	// pulse
	Amplitude float64 // A/m
	Width     float64 // s

	// rf
	IAC   float64
	IDC   float64
	Freq  float64 // Hz
	Phase float64 // rad
}

// Pulse is a rectangular field step of amplitude a (A/m) for t < width.
func Pulse(dir vecmath.Vec3, a, width float64) Drive {
	return Drive{Kind: DrivePulse, Dir: dir.Normalize(), Amplitude: a, Width: width}
}

// RF is a sinusoidal current I(t) = idc + iac·sin(2πft); phaseDeg shifts the
// Oersted field only.
func RF(dir vecmath.Vec3, iac, idc, f, phaseDeg float64) Drive {
	return Drive{
		Kind:  DriveRF,
		Dir:   dir.Normalize(),
		IAC:   iac,
		IDC:   idc,
		Freq:  f,
		Phase: phaseDeg * math.Pi / 180,
	}
}

// Current is the drive current at t.
func (d Drive) Current(t float64) float64 {
	if d.Kind != DriveRF {
		return 0
	}
	return d.IDC + d.IAC*math.Sin(2*math.Pi*d.Freq*t)
}

// Oersted returns the drive field on a layer with Oersted coupling hoe and
// current direction idir (zero to use the drive direction).
func (d Drive) Oersted(idir vecmath.Vec3, hoe, t float64) vecmath.Vec3 {
	dir := d.Dir
	if !idir.IsZero() {
		dir = idir
	}
	switch d.Kind {
	case DrivePulse:
		if t < d.Width {
			return dir.Scale(d.Amplitude)
		}
	case DriveRF:
		return dir.Scale(hoe * d.IAC * rfScale * math.Sin(2*math.Pi*d.Freq*t+d.Phase))
	}
	return vecmath.Vec3{}
}
