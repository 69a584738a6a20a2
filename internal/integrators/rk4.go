package integrators

import "github.com/san-kum/spinsim/internal/dynamo"

// RK4 is the classical fixed-step fourth-order method. Each step costs four
// field evaluations and has no error estimate, so the window step count
// alone sets the accuracy.
type RK4 struct {
	tb tableau
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	r.tb.reset(4, len(x))
	r.tb.eval(sys, x, t, 0, dt)
	r.tb.eval(sys, x, t, 0.5, dt, 0.5)
	r.tb.eval(sys, x, t, 0.5, dt, 0, 0.5)
	r.tb.eval(sys, x, t, 1, dt, 0, 0, 1)
	return r.tb.combine(x, dt, 1.0/6, 1.0/3, 1.0/3, 1.0/6)
}
