package integrators

import "github.com/san-kum/spinsim/internal/dynamo"

// tableau holds the stage derivatives and the trial state of an explicit
// Runge-Kutta step. Buffers are reused between steps of equal dimension.
type tableau struct {
	k     []dynamo.State
	trial dynamo.State
}

func (tb *tableau) reset(stages, n int) {
	if len(tb.k) == stages && len(tb.trial) == n {
		return
	}
	tb.k = make([]dynamo.State, stages)
	for i := range tb.k {
		tb.k[i] = make(dynamo.State, n)
	}
	tb.trial = make(dynamo.State, n)
}

// eval stores f(x + dt·Σ a[j]·k[j], t + c·dt) as stage len(a).
func (tb *tableau) eval(sys dynamo.System, x dynamo.State, t, c, dt float64, a ...float64) {
	in := x
	if len(a) > 0 {
		in = tb.trial
		weigh(in, x, dt, tb.k, a)
	}
	copy(tb.k[len(a)], sys.Derive(in, t+c*dt))
}

// combine returns a fresh x + dt·Σ b[j]·k[j].
func (tb *tableau) combine(x dynamo.State, dt float64, b ...float64) dynamo.State {
	out := make(dynamo.State, len(x))
	weigh(out, x, dt, tb.k, b)
	return out
}

func weigh(dst, x dynamo.State, dt float64, k []dynamo.State, w []float64) {
	copy(dst, x)
	for j, wj := range w {
		if wj == 0 {
			continue
		}
		for i := range dst {
			dst[i] += dt * wj * k[j][i]
		}
	}
}
