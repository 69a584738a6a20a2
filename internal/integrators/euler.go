package integrators

import "github.com/san-kum/spinsim/internal/dynamo"

// Euler is first order; useful only for quick previews of long sweeps. |m|
// drifts quickly unless solver.renormalize is set.
type Euler struct {
	tb tableau
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	e.tb.reset(1, len(x))
	e.tb.eval(sys, x, t, 0, dt)
	return e.tb.combine(x, dt, 1)
}
