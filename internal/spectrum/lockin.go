package spectrum

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/spinsim/internal/dynamo"
)

// Harmonic is one extracted spectral line of the mixing voltage.
type Harmonic struct {
	Freq      float64 `json:"freq"`
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"` // rad
}

// Diode is the spin-diode response at one drive frequency.
type Diode struct {
	Freq   float64  `json:"freq"`
	DC     float64  `json:"dc"`
	First  Harmonic `json:"first"`
	Second Harmonic `json:"second"`
	Failed bool     `json:"failed,omitempty"`
	Err    string   `json:"err,omitempty"`
}

// LockIn extracts the rectified voltage and the 1f/2f harmonics.
type LockIn struct {
	Cutoff       float64 `yaml:"cutoff" json:"cutoff"` // Hz
	Order        int     `yaml:"order" json:"order"`
	Neighborhood int     `yaml:"neighborhood" json:"neighborhood"` // FFT bins searched per harmonic
}

func DefaultLockIn() LockIn {
	return LockIn{Cutoff: 10e6, Order: 3, Neighborhood: 5}
}

// MixingVoltage is V(t) = -I(t)·R(t).
func MixingVoltage(current, r []float64) []float64 {
	v := make([]float64, len(r))
	for k := range v {
		v[k] = -current[k] * r[k]
	}
	return v
}

// PeakBin returns the index of the largest value among the width bins
// centred on center, clamped to the slice. Ties resolve to the lowest index.
func PeakBin(mag []float64, center, width int) int {
	if width < 1 {
		width = 1
	}
	lo := center - width/2
	hi := lo + width
	lo = max(lo, 0)
	hi = min(hi, len(mag))
	if lo >= hi {
		return min(max(center, 0), len(mag)-1)
	}
	return lo + floats.MaxIdx(mag[lo:hi])
}

// Rectify low-pass filters v sampled at dt to obtain the DC level and
// reads the harmonics at f and 2f from the unfiltered spectrum.
func (l LockIn) Rectify(v []float64, dt, f float64) (Diode, error) {
	n := len(v)
	if n < 4 || !(dt > 0) {
		return Diode{}, dynamo.Configf("lockin", "need at least 4 samples and dt > 0, got %d / %g", n, dt)
	}
	fs := 1 / dt

	chain, err := LowPass(l.Cutoff, fs, l.Order, stat.Mean(v, nil))
	if err != nil {
		return Diode{}, err
	}
	filtered := make([]float64, n)
	for k, x := range v {
		filtered[k] = chain.ProcessSample(x)
	}

	d := Diode{Freq: f, DC: stat.Mean(filtered, nil)}

	x := fft.FFTReal(v)
	half := n/2 + 1
	mag := make([]float64, half)
	for k := range mag {
		mag[k] = cmplx.Abs(x[k])
	}
	df := fs / float64(n)
	d.First = l.harmonic(x, mag, f, df, n)
	d.Second = l.harmonic(x, mag, 2*f, df, n)
	return d, nil
}

func (l LockIn) harmonic(x []complex128, mag []float64, f, df float64, n int) Harmonic {
	center := int(math.Round(f / df))
	if center >= len(mag)+l.Neighborhood/2 {
		return Harmonic{Freq: f}
	}
	k := PeakBin(mag, center, l.Neighborhood)
	return Harmonic{
		Freq:      float64(k) * df,
		Amplitude: 2 * mag[k] / float64(n),
		Phase:     cmplx.Phase(x[k]),
	}
}
