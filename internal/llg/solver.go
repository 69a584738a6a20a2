package llg

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/spinsim/internal/device"
	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/integrators"
	"github.com/san-kum/spinsim/internal/metrics"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// Ordering selects how coupled layers are advanced within one time step.
type Ordering string

const (
	Sequential   Ordering = "sequential"
	Synchronized Ordering = "synchronized"
)

// pollEvery is the number of steps between context checks.
const pollEvery = 256

// minSubstep bounds adaptive substeps from below, as a fraction of the
// window step.
const minSubstep = 1e-9

type Options struct {
	Integrator  string   `yaml:"integrator" json:"integrator"`
	Ordering    Ordering `yaml:"ordering" json:"ordering"`
	Renormalize bool     `yaml:"renormalize" json:"renormalize"`
	SampleEvery int      `yaml:"sample_every" json:"sample_every"`
	// Tolerance > 0 splits every window step into error-controlled
	// substeps. The trajectory is still sampled once per window step.
	Tolerance float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
}

func DefaultOptions() Options {
	return Options{
		Integrator:  integrators.Default,
		Ordering:    Sequential,
		SampleEvery: 10,
	}
}

func (o Options) validate() error {
	switch o.Ordering {
	case Sequential, Synchronized:
	default:
		return dynamo.Configf("solver.ordering", "unknown ordering %q (want %s or %s)", o.Ordering, Sequential, Synchronized)
	}
	if o.SampleEvery < 1 {
		return dynamo.Configf("solver.sample_every", "must be at least 1, got %d", o.SampleEvery)
	}
	if o.Tolerance < 0 {
		return dynamo.Configf("solver.tolerance", "must be non-negative, got %g", o.Tolerance)
	}
	integ, err := integrators.New(o.Integrator)
	if err != nil {
		return err
	}
	if _, ok := integ.(dynamo.AdaptiveIntegrator); o.Tolerance > 0 && !ok {
		return dynamo.Configf("solver.tolerance", "integrator %q has no error estimate", o.Integrator)
	}
	return nil
}

// Window is one integration run at a fixed applied field.
type Window struct {
	Field    vecmath.Vec3
	Drive    Drive
	Duration float64
	Steps    int
}

func (w Window) Dt() float64 { return w.Duration / float64(w.Steps) }

// Trajectory holds the per-layer moment after every step.
type Trajectory struct {
	Final     []vecmath.Vec3
	M         [][]vecmath.Vec3 // [layer][step]
	Dt        float64
	NormDrift float64
	Excursion float64 // degrees
}

func (tr *Trajectory) Steps() int {
	if len(tr.M) == 0 {
		return 0
	}
	return len(tr.M[0])
}

// Mz is the z component summed over layers at every step.
func (tr *Trajectory) Mz() []float64 {
	out := make([]float64, tr.Steps())
	for _, layer := range tr.M {
		for k, m := range layer {
			out[k] += m.Z
		}
	}
	return out
}

// Sample keeps every n-th step of each layer, always including the last.
func (tr *Trajectory) Sample(n int) [][]vecmath.Vec3 {
	if n < 1 {
		n = 1
	}
	out := make([][]vecmath.Vec3, len(tr.M))
	for i, layer := range tr.M {
		for k := n - 1; k < len(layer); k += n {
			out[i] = append(out[i], layer[k])
		}
		if len(layer) > 0 && len(layer)%n != 0 {
			out[i] = append(out[i], layer[len(layer)-1])
		}
	}
	return out
}

// Solver integrates one stack. It is safe for concurrent Run calls; every
// run gets its own stepper.
type Solver struct {
	stack *device.Stack
	terms []terms
	opts  Options
}

func NewSolver(stack *device.Stack, opts Options) (*Solver, error) {
	if opts.Integrator == "" {
		opts.Integrator = integrators.Default
	}
	if opts.Ordering == "" {
		opts.Ordering = Sequential
	}
	if opts.SampleEvery == 0 {
		opts.SampleEvery = 10
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Solver{stack: stack, terms: newTerms(stack), opts: opts}, nil
}

func (s *Solver) Stack() *device.Stack { return s.stack }
func (s *Solver) Options() Options     { return s.opts }

// Run integrates from m0 over w. Non-finite values abort the run with a
// *dynamo.SimulationError wrapping dynamo.ErrDiverged.
func (s *Solver) Run(ctx context.Context, m0 []vecmath.Vec3, w Window) (*Trajectory, error) {
	n := len(s.terms)
	if len(m0) != n {
		return nil, fmt.Errorf("%w: %d initial vectors for %d layers", dynamo.ErrDimensionMismatch, len(m0), n)
	}
	if w.Steps < 1 || !(w.Duration > 0) {
		return nil, dynamo.Configf("window", "need positive duration and steps, got %g s / %d", w.Duration, w.Steps)
	}
	integ, err := integrators.New(s.opts.Integrator)
	if err != nil {
		return nil, err
	}

	x := dynamo.Pack(m0)

	dt := w.Dt()
	tr := &Trajectory{M: make([][]vecmath.Vec3, n), Dt: dt}
	for i := range tr.M {
		tr.M[i] = make([]vecmath.Vec3, 0, w.Steps)
	}
	drift := metrics.NewNormDrift()
	excursion := metrics.NewExcursion()
	excursion.Observe(x, 0)

	full := &stackSystem{terms: s.terms, hext: w.Field, drive: w.Drive}
	single := &layerSystem{hext: w.Field, drive: w.Drive}
	prev := make(dynamo.State, len(x))
	// last suggested substep per layer, and for the full stack at [n]
	substep := make([]float64, n+1)
	for i := range substep {
		substep[i] = dt
	}

	for step := 0; step < w.Steps; step++ {
		if step%pollEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t := float64(step) * dt

		switch s.opts.Ordering {
		case Synchronized:
			if x, err = s.advance(integ, full, x, t, dt, &substep[n]); err != nil {
				return nil, &dynamo.SimulationError{Step: step, Time: t, Layer: -1, Wrapped: err}
			}
		default:
			// every layer sees both neighbours as they were at the start
			// of the step
			copy(prev, x)
			for i := 0; i < n; i++ {
				single.c = &s.terms[i]
				single.lo, single.up = neighbor{}, neighbor{}
				if i > 0 {
					single.lo = neighbor{m: prev.At(i - 1), ok: true}
				}
				if i+1 < n {
					single.up = neighbor{m: prev.At(i + 1), ok: true}
				}
				next, err := s.advance(integ, single, prev[3*i:3*i+3], t, dt, &substep[i])
				if err != nil {
					return nil, &dynamo.SimulationError{Step: step, Time: t, Layer: i, Wrapped: err}
				}
				copy(x[3*i:3*i+3], next)
			}
		}

		for i := 0; i < n; i++ {
			m := x.At(i)
			if !m.IsFinite() {
				return nil, &dynamo.SimulationError{Step: step, Time: t + dt, Layer: i, Wrapped: dynamo.ErrDiverged}
			}
			if s.opts.Renormalize {
				m = m.Normalize()
				x.Put(i, m)
			}
			tr.M[i] = append(tr.M[i], m)
		}
		drift.Observe(x, t+dt)
		excursion.Observe(x, t+dt)
	}

	tr.Final = x.Unpack()
	tr.NormDrift = drift.Value()
	tr.Excursion = excursion.Value()
	return tr, nil
}

// advance moves x from t to t+dt. Without a tolerance this is one fixed
// step. With one, it takes accepted adaptive substeps until dt is covered,
// carrying the last suggested substep in *h across calls.
func (s *Solver) advance(integ dynamo.Integrator, sys dynamo.System, x dynamo.State, t, dt float64, h *float64) (dynamo.State, error) {
	ai, ok := integ.(dynamo.AdaptiveIntegrator)
	if s.opts.Tolerance <= 0 || !ok {
		return integ.Step(sys, x, t, dt), nil
	}
	floor := dt * minSubstep
	for left := dt; left > 0; {
		sub := math.Min(*h, left)
		next, suggested, accepted, err := ai.StepAdaptive(sys, x, t, sub, s.opts.Tolerance)
		if err != nil {
			return nil, err
		}
		*h = math.Min(suggested, dt)
		if !accepted {
			if *h < floor {
				return nil, fmt.Errorf("%w: substep fell below %g s", dynamo.ErrDiverged, floor)
			}
			continue
		}
		x, t = next, t+sub
		if sub == left {
			left = 0
		} else {
			left -= sub
		}
	}
	return x, nil
}
