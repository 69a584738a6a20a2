package integrators

import (
	"math"

	"github.com/san-kum/spinsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the Dormand-Prince 5(4) pair. Step advances with the fifth-order
// solution at the given dt; StepAdaptive additionally judges the step
// against the embedded fourth-order error estimate and suggests the next dt.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	tb tableau
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return r.stages(sys, x, t, dt)
}

// stages evaluates the six stage derivatives and returns the fifth-order
// solution.
func (r *RK45) stages(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	tb := &r.tb
	tb.reset(6, len(x))
	tb.eval(sys, x, t, 0, dt)
	tb.eval(sys, x, t, a2, dt, b21)
	tb.eval(sys, x, t, a3, dt, b31, b32)
	tb.eval(sys, x, t, a4, dt, b41, b42, b43)
	tb.eval(sys, x, t, a5, dt, b51, b52, b53, b54)
	tb.eval(sys, x, t, 1, dt, b61, b62, b63, b64, b65)
	return tb.combine(x, dt, c1, 0, c3, c4, c5, c6)
}

func (r *RK45) StepAdaptive(sys dynamo.System, x dynamo.State, t, dt, tol float64) (dynamo.State, float64, bool, error) {
	xNew := r.stages(sys, x, t, dt)
	if !xNew.IsValid() {
		return nil, dt, false, dynamo.ErrDiverged
	}
	k1, k3, k4, k5, k6 := r.tb.k[0], r.tb.k[2], r.tb.k[3], r.tb.k[4], r.tb.k[5]

	k7 := sys.Derive(xNew, t+dt)

	errMax := 0.0
	for i := range x {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(dt*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	errRatio := errMax / tol

	var dtNew float64
	switch {
	case errRatio > 1:
		dtNew = dt * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		dtNew = dt * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		dtNew = dt * r.maxScale
	}

	return xNew, dtNew, errRatio <= 1, nil
}
