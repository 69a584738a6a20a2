package spectrum

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"

	"github.com/san-kum/spinsim/internal/dynamo"
)

// ButterworthLowPass designs an order-n Butterworth low-pass: order/2
// second-order sections plus a first-order one for odd n.
func ButterworthLowPass(cutoff, fs float64, order int) ([]biquad.Coefficients, error) {
	if order < 1 {
		return nil, dynamo.Configf("lockin.order", "must be at least 1, got %d", order)
	}
	if !(cutoff > 0) || cutoff >= fs/2 {
		return nil, dynamo.Configf("lockin.cutoff", "%g Hz must lie in (0, %g)", cutoff, fs/2)
	}
	return pass.ButterworthLP(cutoff, order, fs), nil
}

// dcGain is H(z=1) of one section.
func dcGain(c biquad.Coefficients) float64 {
	return (c.B0 + c.B1 + c.B2) / (1 + c.A1 + c.A2)
}

// LowPass builds the cascade with every delay line preset to the steady
// state of a constant input u, so the output starts at the filter's
// DC response to u instead of ringing up from zero.
func LowPass(cutoff, fs float64, order int, u float64) (*biquad.Chain, error) {
	coeffs, err := ButterworthLowPass(cutoff, fs, order)
	if err != nil {
		return nil, err
	}
	chain := biquad.NewChain(coeffs)
	states := make([][2]float64, len(coeffs))
	in := u
	for i, c := range coeffs {
		y := dcGain(c) * in
		d1 := c.B2*in - c.A2*y
		d0 := c.B1*in - c.A1*y + d1
		states[i] = [2]float64{d0, d1}
		in = y
	}
	chain.SetState(states)
	return chain, nil
}
