package sweep

import (
	"context"
	"fmt"

	"github.com/san-kum/spinsim/internal/device"
	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/llg"
	"github.com/san-kum/spinsim/internal/resistance"
	"github.com/san-kum/spinsim/internal/spectrum"
	"github.com/san-kum/spinsim/internal/stimulus"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// Job is one entry of the work queue.
type Job struct {
	Name     string
	Stack    *device.Stack
	Stimulus stimulus.Spec
	Initial  []vecmath.Vec3 // optional starting state, one vector per layer
}

// windowSolver integrates one window from a seed state. *llg.Solver is the
// only production implementation; it must be safe for concurrent Run calls.
type windowSolver interface {
	Run(ctx context.Context, m0 []vecmath.Vec3, w llg.Window) (*llg.Trajectory, error)
	Options() llg.Options
}

// plan is a validated job ready to run.
type plan struct {
	name   string
	stack  *device.Stack
	spec   stimulus.Spec
	sweep  stimulus.Sweep
	solver windowSolver
	model  *resistance.Model
	seed   []vecmath.Vec3
}

func newPlan(idx int, job Job, opts Options) (*plan, error) {
	name := job.Name
	if name == "" {
		name = fmt.Sprintf("job-%d", idx)
	}
	if job.Stack == nil {
		return nil, dynamo.Configf("job.stack", "%s: no layer stack", name)
	}

	spec := job.Stimulus.WithDefaults()
	sw, err := spec.Sweep()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	solver, err := llg.NewSolver(job.Stack, opts.Solver)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(sw.Freqs) > 0 {
		if _, err := spectrum.ButterworthLowPass(opts.LockIn.Cutoff, 1/sw.Dt, opts.LockIn.Order); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	p := &plan{
		name:   name,
		stack:  job.Stack,
		spec:   spec,
		sweep:  sw,
		solver: solver,
		model:  resistance.New(job.Stack),
	}
	switch {
	case job.Initial != nil:
		if len(job.Initial) != job.Stack.Len() {
			return nil, dynamo.Configf("job.initial", "%s: %d vectors for %d layers", name, len(job.Initial), job.Stack.Len())
		}
		p.seed = make([]vecmath.Vec3, len(job.Initial))
		for i, m := range job.Initial {
			p.seed[i] = m.Normalize()
		}
	default:
		p.seed = job.Stack.Uniform(sw.Fields[0])
	}
	return p, nil
}

func (p *plan) window(drive llg.Drive, field vecmath.Vec3) llg.Window {
	return llg.Window{
		Field:    field,
		Drive:    drive,
		Duration: p.spec.LLGTime,
		Steps:    p.spec.LLGSteps,
	}
}

func (p *plan) pulse() llg.Drive {
	return llg.Pulse(p.spec.IDir, p.spec.PulseAmplitude, p.spec.PulseWidth)
}

func (p *plan) rf(f float64) llg.Drive {
	return llg.RF(p.spec.IDir, p.spec.IAC, p.spec.IDC, f, p.spec.Phase)
}
