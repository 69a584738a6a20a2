package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/results"
	"github.com/san-kum/spinsim/internal/spectrum"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// runPoint simulates sweep point i from seed and returns its record and the
// relaxed state that seeds the next point.
func (d *Driver) runPoint(ctx context.Context, p *plan, i int, seed []vecmath.Vec3) (*results.Record, []vecmath.Vec3, error) {
	if d.opts.PointTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, d.opts.PointTimeout, dynamo.ErrTimeout)
		defer cancel()
	}

	field := p.sweep.Fields[i]
	tr, err := p.solver.Run(ctx, seed, p.window(p.pulse(), field))
	if err != nil {
		return nil, nil, pointErr(ctx, err)
	}

	r := p.model.At(tr.Final)
	rec := &results.Record{
		Index:      i,
		Value:      p.sweep.Labels[i],
		Field:      field,
		M:          p.stack.Average(tr.Final),
		Layers:     tr.Final,
		Rx:         r.Rxx,
		Ry:         r.Rxy,
		Rz:         r.Rzz,
		PIMM:       spectrum.PIMM(tr.Mz(), tr.Dt, p.sweep.MaxFrequency),
		Trajectory: tr.Sample(p.solver.Options().SampleEvery),
		NormDrift:  tr.NormDrift,
	}

	if len(p.sweep.Freqs) > 0 {
		rec.Diode = d.runDiode(ctx, p, field, tr.Final)
		if ctx.Err() != nil {
			return nil, nil, pointErr(ctx, ctx.Err())
		}
	}
	return rec, tr.Final, nil
}

// pointErr attaches the timeout cause when the point's own deadline fired.
func pointErr(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), dynamo.ErrTimeout) {
		return fmt.Errorf("%w: %w", dynamo.ErrTimeout, err)
	}
	return err
}

// runDiode runs one RF window per frequency, all seeded from the relaxed
// PIMM state, and reassembles them in frequency order. A failed frequency
// keeps its slot with Failed set.
func (d *Driver) runDiode(ctx context.Context, p *plan, field vecmath.Vec3, relaxed []vecmath.Vec3) []spectrum.Diode {
	freqs := p.sweep.Freqs
	out := make([]spectrum.Diode, len(freqs))

	errs := d.pool.Run(ctx, len(freqs), func(ctx context.Context, k int) error {
		f := freqs[k]
		drive := p.rf(f)
		tr, err := p.solver.Run(ctx, relaxed, p.window(drive, field))
		if err != nil {
			return err
		}
		r := p.model.Series(tr.M).Along(p.spec.VDir)
		current := make([]float64, len(r))
		for s := range current {
			current[s] = drive.Current(float64(s+1) * tr.Dt)
		}
		diode, err := d.opts.LockIn.Rectify(spectrum.MixingVoltage(current, r), tr.Dt, f)
		if err != nil {
			return err
		}
		out[k] = diode
		return nil
	})

	for k, err := range errs {
		if err == nil {
			continue
		}
		out[k] = spectrum.Diode{Freq: freqs[k], Failed: true, Err: err.Error()}
		d.log.Debug("frequency failed", "job", p.name, "freq", freqs[k], "err", err)
	}
	return out
}

func failedRecord(p *plan, i int, err error) *results.Record {
	return &results.Record{
		Index:  i,
		Value:  p.sweep.Labels[i],
		Field:  p.sweep.Fields[i],
		Rx:     math.NaN(),
		Ry:     math.NaN(),
		Rz:     math.NaN(),
		Failed: true,
		Err:    err.Error(),
	}
}
