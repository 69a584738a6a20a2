package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/spinsim/internal/dynamo"
)

func tone(n int, dt float64, fn func(t float64) float64) []float64 {
	out := make([]float64, n)
	for k := range out {
		out[k] = fn(float64(k) * dt)
	}
	return out
}

func TestPIMM_Truncation(t *testing.T) {
	const dt = 1e-12
	mz := tone(1000, dt, func(t float64) float64 { return math.Sin(2 * math.Pi * 10e9 * t) })

	s := PIMM(mz, dt, 60e9)
	if s.Len() != 60 {
		t.Fatalf("expected 60 bins up to 60 GHz, got %d", s.Len())
	}
	for _, f := range s.Freqs {
		if f > 60e9 || f <= 0 {
			t.Fatalf("bin at %g Hz outside (0, 60 GHz]", f)
		}
	}
	if f, a := s.Peak(); math.Abs(f-10e9) > 1 || math.Abs(a-500) > 1e-6 {
		t.Errorf("peak at %g Hz amplitude %g, want 10 GHz / 500", f, a)
	}

	full := PIMM(mz, dt, 0)
	if full.Len() != 499 {
		t.Errorf("unclipped spectrum has %d bins, want 499", full.Len())
	}
	if PIMM(mz[:3], dt, 0).Len() != 0 {
		t.Error("too-short input should give an empty spectrum")
	}
}

func TestPeakBin(t *testing.T) {
	tests := []struct {
		name   string
		mag    []float64
		center int
		want   int
	}{
		{"tie picks first", []float64{0, 5, 5, 1, 0}, 2, 1},
		{"clamped low", []float64{9, 1, 2, 3}, 0, 0},
		{"clamped high", []float64{0, 0, 1, 2, 7}, 4, 4},
		{"outside neighbourhood ignored", []float64{100, 0, 0, 1, 2, 1, 0}, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeakBin(tt.mag, tt.center, 5); got != tt.want {
				t.Errorf("PeakBin = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestButterworth_Cutoff(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4} {
		chain, err := LowPass(1e7, 1e9, order, 0)
		if err != nil {
			t.Fatal(err)
		}
		if db := chain.MagnitudeDB(1e7, 1e9); math.Abs(db+3.0103) > 0.01 {
			t.Errorf("order %d: |H(fc)| = %.4f dB, want -3.01", order, db)
		}
		if db := chain.MagnitudeDB(1e3, 1e9); math.Abs(db) > 1e-3 {
			t.Errorf("order %d: passband gain %.5f dB", order, db)
		}
	}

	chain, _ := LowPass(1e7, 1e9, 3, 0)
	if db := chain.MagnitudeDB(1e8, 1e9); db > -55 {
		t.Errorf("3rd order should give ~60 dB one decade above cutoff, got %.1f", db)
	}

	if _, err := ButterworthLowPass(1e7, 1e9, 0); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Error("order 0 should be rejected")
	}
	if _, err := ButterworthLowPass(6e8, 1e9, 3); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Error("cutoff above Nyquist should be rejected")
	}
}

func TestButterworthLowPass_Sections(t *testing.T) {
	for order := 1; order <= 5; order++ {
		coeffs, err := ButterworthLowPass(1e7, 1e12, order)
		if err != nil {
			t.Fatal(err)
		}
		if len(coeffs) != (order+1)/2 {
			t.Errorf("order %d: %d sections", order, len(coeffs))
		}
		last := coeffs[len(coeffs)-1]
		if odd := order%2 == 1; odd != (last.B2 == 0 && last.A2 == 0) {
			t.Errorf("order %d: last section %+v", order, last)
		}
		for i, c := range coeffs {
			if g := dcGain(c); math.Abs(g-1) > 1e-6 {
				t.Errorf("order %d section %d: DC gain %v", order, i, g)
			}
		}
	}
}

func TestLowPass_SteadyStateStart(t *testing.T) {
	const u = 2.5e-3
	chain, err := LowPass(10e6, 1e12, 3, u)
	if err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 2000; k++ {
		if y := chain.ProcessSample(u); math.Abs(y-u) > 1e-5*u {
			t.Fatalf("sample %d: y = %.12g, want %.12g", k, y, u)
		}
	}
}

func TestRectify_Harmonics(t *testing.T) {
	const (
		dt = 1e-12
		f  = 10e9
	)
	v := tone(1000, dt, func(t float64) float64 {
		return 0.3 + 0.2*math.Cos(2*math.Pi*f*t+0.5) + 0.05*math.Sin(2*math.Pi*2*f*t)
	})

	d, err := DefaultLockIn().Rectify(v, dt, f)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d.DC-0.3) > 1e-6 {
		t.Errorf("DC = %.9f, want 0.3", d.DC)
	}
	if math.Abs(d.First.Freq-f) > 1 || math.Abs(d.First.Amplitude-0.2) > 1e-9 || math.Abs(d.First.Phase-0.5) > 1e-9 {
		t.Errorf("first harmonic = %+v", d.First)
	}
	if math.Abs(d.Second.Freq-2*f) > 1 || math.Abs(d.Second.Amplitude-0.05) > 1e-9 || math.Abs(d.Second.Phase+math.Pi/2) > 1e-9 {
		t.Errorf("second harmonic = %+v", d.Second)
	}
}

func TestRectify_Errors(t *testing.T) {
	if _, err := DefaultLockIn().Rectify([]float64{1, 2, 3}, 1e-12, 1e9); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("short input: %v", err)
	}
	if _, err := DefaultLockIn().Rectify(make([]float64, 100), 0, 1e9); err == nil {
		t.Error("zero dt should fail")
	}
}

func TestRectify_HarmonicAboveNyquist(t *testing.T) {
	v := tone(1000, 1e-12, func(t float64) float64 { return math.Sin(2 * math.Pi * 400e9 * t) })
	d, err := DefaultLockIn().Rectify(v, 1e-12, 400e9)
	if err != nil {
		t.Fatal(err)
	}
	if d.Second.Amplitude != 0 || d.Second.Freq != 800e9 {
		t.Errorf("second harmonic beyond Nyquist = %+v", d.Second)
	}
	if math.Abs(d.First.Amplitude-1) > 1e-9 {
		t.Errorf("first harmonic amplitude = %g", d.First.Amplitude)
	}
}

func TestMixingVoltage(t *testing.T) {
	v := MixingVoltage([]float64{1, -2, 0.5}, []float64{10, 10, 4})
	want := []float64{-10, 20, -2}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("V[%d] = %g, want %g", i, v[i], want[i])
		}
	}
}

func TestBinFreqs(t *testing.T) {
	f := BinFreqs(4, 0.25)
	if f[1] != 1 || f[3] != 3 {
		t.Errorf("BinFreqs = %v", f)
	}
}
