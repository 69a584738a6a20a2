package spectrum

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Spectrum is a one-sided magnitude spectrum.
type Spectrum struct {
	Freqs     []float64 `json:"freqs"`
	Amplitude []float64 `json:"amplitude"`
}

func (s Spectrum) Len() int { return len(s.Freqs) }

// Peak returns the frequency and amplitude of the strongest bin.
func (s Spectrum) Peak() (float64, float64) {
	if len(s.Amplitude) == 0 {
		return 0, 0
	}
	i := PeakBin(s.Amplitude, len(s.Amplitude)/2, len(s.Amplitude))
	return s.Freqs[i], s.Amplitude[i]
}

// BinFreqs returns k/(n·dt) for k = 0..n-1.
func BinFreqs(n int, dt float64) []float64 {
	out := make([]float64, n)
	df := 1 / (float64(n) * dt)
	for k := range out {
		out[k] = float64(k) * df
	}
	return out
}

// PIMM computes |FFT(mz)| over the strictly positive bins below Nyquist and
// drops every bin above fmax (no clipping when fmax <= 0).
func PIMM(mz []float64, dt, fmax float64) Spectrum {
	n := len(mz)
	if n < 4 {
		return Spectrum{}
	}
	x := fft.FFTReal(mz)
	df := 1 / (float64(n) * dt)

	var out Spectrum
	for k := 1; k < n/2; k++ {
		f := float64(k) * df
		if fmax > 0 && f > fmax {
			break
		}
		out.Freqs = append(out.Freqs, f)
		out.Amplitude = append(out.Amplitude, cmplx.Abs(x[k]))
	}
	return out
}
