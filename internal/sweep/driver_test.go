package sweep

import (
	"context"
	"errors"
	"io"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spinsim/internal/device"
	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/llg"
	"github.com/san-kum/spinsim/internal/results"
	"github.com/san-kum/spinsim/internal/stimulus"
	"github.com/san-kum/spinsim/internal/vecmath"
)

func pmaLayer(id int) device.Layer {
	return device.Layer{
		ID: id, Ms: 1.07, Ku: 305e3, Kdir: vecmath.New(0, 0, 1),
		Thickness: 1e-9, Alpha: 0.01, Hoe: 1,
		Rx0: 100, Ry0: 5, Width: 1e-6, Length: 1e-6,
	}
}

func mustStack(layers ...device.Layer) *device.Stack {
	s, err := device.NewStack(layers)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func fieldSweep(points int) stimulus.Spec {
	return stimulus.Spec{
		Mode:     stimulus.ModeH,
		H:        stimulus.Axis{Min: -4e5, Max: 4e5},
		Theta:    stimulus.Fixed(45),
		Phi:      stimulus.Fixed(30),
		Steps:    points,
		LLGTime:  2e-10,
		LLGSteps: 200,
	}
}

func withDiode(s stimulus.Spec) stimulus.Spec {
	s.FreqMin, s.FreqMax, s.FreqSteps = 5e9, 20e9, 4
	s.IAC, s.IDC = 1e-3, 0
	return s
}

func coupledStack() *device.Stack {
	a, b := pmaLayer(0), pmaLayer(1)
	a.J, a.AMR, a.SMR, a.AHE = 1e-4, 1, -0.5, 2
	b.Ku, b.AMR = 0, 0.8
	return mustStack(a, b)
}

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Solver.SampleEvery = 50
	return opts
}

// failingAt fails the RF window driven at freq and passes the rest through.
type failingAt struct {
	windowSolver
	freq float64
}

func (f failingAt) Run(ctx context.Context, m0 []vecmath.Vec3, w llg.Window) (*llg.Trajectory, error) {
	if w.Drive.Kind == llg.DriveRF && w.Drive.Freq == f.freq {
		return nil, &dynamo.SimulationError{Layer: 0, Wrapped: dynamo.ErrDiverged}
	}
	return f.windowSolver.Run(ctx, m0, w)
}

func drain(q *results.Queue) []results.Update {
	var out []results.Update
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		u, err := q.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out
		}
		Expect(err).NotTo(HaveOccurred())
		out = append(out, u)
	}
}

var _ = Describe("Driver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("a completed sweep", func() {
		It("streams every record in order and ends with ALL_DONE", func() {
			d := New(quietOptions())
			Expect(d.State()).To(Equal(Idle))
			Expect(d.Run(ctx, Job{Name: "pma", Stack: mustStack(pmaLayer(0)), Stimulus: fieldSweep(6)})).To(Succeed())
			Expect(d.State()).To(Equal(Completed))

			updates := drain(d.Updates())
			Expect(updates).NotTo(BeEmpty())
			last := updates[len(updates)-1]
			Expect(last.Status).To(Equal(results.StatusAllDone))
			Expect(last.Progress).To(BeNumerically("==", 100))

			next, progress := 0, 0.0
			for _, u := range updates {
				Expect(u.Progress).To(BeNumerically(">=", progress))
				progress = u.Progress
				for _, r := range u.Records {
					Expect(r.Index).To(Equal(next))
					next++
				}
			}
			Expect(next).To(Equal(6))

			series := d.Results()
			Expect(series).To(HaveLen(1))
			Expect(series[0].Len()).To(Equal(6))
			Expect(series[0].Records[0].Trajectory[0]).To(HaveLen(4))
		})

		It("refuses to run twice", func() {
			d := New(quietOptions())
			Expect(d.Run(ctx, Job{Stack: mustStack(pmaLayer(0)), Stimulus: fieldSweep(2)})).To(Succeed())
			Expect(d.Run(ctx, Job{Stack: mustStack(pmaLayer(0)), Stimulus: fieldSweep(2)})).To(MatchError(dynamo.ErrAlreadyStarted))
		})

		It("processes the work queue job by job", func() {
			d := New(quietOptions())
			Expect(d.Run(ctx,
				Job{Name: "first", Stack: mustStack(pmaLayer(0)), Stimulus: fieldSweep(3)},
				Job{Name: "second", Stack: coupledStack(), Stimulus: fieldSweep(2)},
			)).To(Succeed())

			series := d.Results()
			Expect(series).To(HaveLen(2))
			Expect(series[0].Name).To(Equal("first"))
			Expect(series[1].Len()).To(Equal(2))

			var done []string
			for _, u := range drain(d.Updates()) {
				if u.Status == results.StatusDone {
					done = append(done, u.Job)
				}
			}
			Expect(done).To(Equal([]string{"first", "second"}))
		})
	})

	Describe("the end-to-end PMA field sweep", func() {
		It("keeps Rx at Rx0 without magnetoresistance and Rz at zero", func() {
			layer := device.Layer{
				ID: 0, Ms: 1.07, Ku: 305e3, Kdir: vecmath.New(0, 0, 1),
				Thickness: 1e-9, Alpha: 0.01, Rx0: 100, Ry0: 5, Hoe: 1,
			}
			spec := stimulus.Spec{
				Mode:     stimulus.ModeH,
				H:        stimulus.Axis{Min: -800000, Max: 800000},
				Theta:    stimulus.Fixed(89.9),
				Phi:      stimulus.Fixed(45),
				Steps:    50,
				LLGTime:  1e-10,
				LLGSteps: 200,
			}
			d := New(quietOptions())
			Expect(d.Run(ctx, Job{Stack: mustStack(layer), Stimulus: spec})).To(Succeed())

			s := d.Results()[0]
			Expect(s.Len()).To(Equal(50))
			for i, r := range s.Records {
				Expect(r.Failed).To(BeFalse(), r.Err)
				Expect(r.Rx).To(BeNumerically("~", 100, 1e-9))
				Expect(r.Rz).To(BeZero())
				Expect(r.NormDrift).To(BeNumerically("<", 1e-3))
				if i > 0 {
					Expect(r.Value).To(BeNumerically(">", s.Records[i-1].Value))
				}
			}
		})

		It("follows the closed-form AMR/SMR law at the relaxed state", func() {
			layer := pmaLayer(0)
			layer.AMR, layer.SMR = 2, -1
			d := New(quietOptions())
			Expect(d.Run(ctx, Job{Stack: mustStack(layer), Stimulus: fieldSweep(5)})).To(Succeed())

			for _, r := range d.Results()[0].Records {
				m := r.Layers[0]
				Expect(r.Rx).To(BeNumerically("~", 100+2*m.X*m.X-m.Y*m.Y, 1e-9))
				Expect(r.M).To(Equal(m))
			}
		})
	})

	Describe("parallel execution", func() {
		It("matches a sequential run point for point", func() {
			job := Job{Name: "sv", Stack: coupledStack(), Stimulus: withDiode(fieldSweep(4))}

			par := quietOptions()
			par.Parallel, par.Workers = true, 4
			seq := quietOptions()
			seq.Parallel = false

			dp, ds := New(par), New(seq)
			Expect(dp.Run(ctx, job)).To(Succeed())
			Expect(ds.Run(ctx, job)).To(Succeed())

			a, b := dp.Results()[0], ds.Results()[0]
			Expect(a.Len()).To(Equal(b.Len()))
			rel := func(x, y float64) float64 {
				return math.Abs(x-y) / math.Max(1e-30, math.Max(math.Abs(x), math.Abs(y)))
			}
			for i := range a.Records {
				ra, rb := a.Records[i], b.Records[i]
				Expect(rel(ra.Rx, rb.Rx)).To(BeNumerically("<=", 1e-6))
				Expect(rel(ra.Ry, rb.Ry)).To(BeNumerically("<=", 1e-6))
				Expect(rel(ra.Rz, rb.Rz)).To(BeNumerically("<=", 1e-6))
				Expect(ra.PIMM.Amplitude).To(HaveLen(len(rb.PIMM.Amplitude)))
				for k := range ra.PIMM.Amplitude {
					Expect(rel(ra.PIMM.Amplitude[k], rb.PIMM.Amplitude[k])).To(BeNumerically("<=", 1e-6))
				}
				Expect(ra.Diode).To(HaveLen(4))
				for k, dio := range ra.Diode {
					Expect(dio.Failed).To(BeFalse(), dio.Err)
					Expect(dio.Freq).To(Equal(a.Freqs[k]))
					Expect(rel(dio.DC, rb.Diode[k].DC)).To(BeNumerically("<=", 1e-6))
				}
			}
		})

		It("keeps a failed frequency in its slot without failing the point", func() {
			opts := quietOptions()
			opts.Parallel, opts.Workers = true, 4
			d := New(opts)
			p, err := newPlan(0, Job{Name: "sv", Stack: coupledStack(), Stimulus: withDiode(fieldSweep(2))}, d.opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.sweep.Freqs).To(HaveLen(4))

			const bad = 2
			p.solver = failingAt{windowSolver: p.solver, freq: p.sweep.Freqs[bad]}
			rec, next, err := d.runPoint(ctx, p, 0, p.seed)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Failed).To(BeFalse())
			Expect(next).To(HaveLen(2))

			Expect(rec.Diode).To(HaveLen(4))
			for k, dio := range rec.Diode {
				Expect(dio.Freq).To(Equal(p.sweep.Freqs[k]))
				if k == bad {
					Expect(dio.Failed).To(BeTrue())
					Expect(dio.Err).To(ContainSubstring("diverged"))
					Expect(dio.DC).To(BeZero())
					continue
				}
				Expect(dio.Failed).To(BeFalse(), dio.Err)
				Expect(math.IsNaN(dio.DC)).To(BeFalse())
			}
		})

		It("never lets the RF branch seed the next point", func() {
			stack := coupledStack()
			plain, driven := New(quietOptions()), New(quietOptions())
			Expect(plain.Run(ctx, Job{Stack: stack, Stimulus: fieldSweep(4)})).To(Succeed())
			Expect(driven.Run(ctx, Job{Stack: stack, Stimulus: withDiode(fieldSweep(4))})).To(Succeed())

			a, b := plain.Results()[0], driven.Results()[0]
			for i := range a.Records {
				Expect(b.Records[i].Layers).To(Equal(a.Records[i].Layers))
				Expect(b.Records[i].PIMM.Amplitude).To(Equal(a.Records[i].PIMM.Amplitude))
			}
		})
	})

	Describe("cancellation", func() {
		It("keeps the completed points and emits KILLED", func() {
			var d *Driver
			opts := quietOptions()
			opts.OnRecord = func(job string, r *results.Record) {
				if r.Index == 2 {
					d.Cancel()
				}
			}
			d = New(opts)

			Expect(d.Run(ctx, Job{Stack: mustStack(pmaLayer(0)), Stimulus: fieldSweep(10)})).To(Succeed())
			Expect(d.State()).To(Equal(Cancelled))
			Expect(d.Results()[0].Len()).To(Equal(3))

			updates := drain(d.Updates())
			Expect(updates[len(updates)-1].Status).To(Equal(results.StatusKilled))
			for _, u := range updates {
				for _, r := range u.Records {
					Expect(r.Index).To(BeNumerically("<", 3))
				}
			}
		})

		It("discards a point interrupted mid-integration", func() {
			d := New(quietOptions())
			spec := fieldSweep(3)
			spec.LLGTime, spec.LLGSteps = 1e-8, 500_000

			errc := make(chan error, 1)
			go func() { errc <- d.Run(ctx, Job{Stack: mustStack(pmaLayer(0)), Stimulus: spec}) }()
			Eventually(d.State).Should(Equal(Running))
			d.Cancel()

			Eventually(errc, 10*time.Second).Should(Receive(BeNil()))
			Expect(d.State()).To(Equal(Cancelled))
			Expect(d.Results()[0].Len()).To(BeZero())
		})

		It("reports the caller's context error", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			d := New(quietOptions())
			Expect(d.Run(cctx, Job{Stack: mustStack(pmaLayer(0)), Stimulus: fieldSweep(3)})).To(MatchError(context.Canceled))
			Expect(d.State()).To(Equal(Cancelled))
		})
	})

	Describe("pause and resume", func() {
		It("holds at a point boundary until resumed", func() {
			var d *Driver
			opts := quietOptions()
			opts.OnRecord = func(job string, r *results.Record) {
				if r.Index == 1 {
					d.Pause()
				}
			}
			d = New(opts)

			errc := make(chan error, 1)
			go func() { errc <- d.Run(ctx, Job{Stack: mustStack(pmaLayer(0)), Stimulus: fieldSweep(5)}) }()

			Eventually(d.State).Should(Equal(Paused))
			Consistently(func() int { return d.Results()[0].Len() }, 100*time.Millisecond).Should(Equal(2))

			d.Resume()
			Eventually(errc, 10*time.Second).Should(Receive(BeNil()))
			Expect(d.State()).To(Equal(Completed))
			Expect(d.Results()[0].Len()).To(Equal(5))
		})

		It("can be cancelled while paused", func() {
			var d *Driver
			opts := quietOptions()
			opts.OnRecord = func(string, *results.Record) { d.Pause() }
			d = New(opts)

			errc := make(chan error, 1)
			go func() { errc <- d.Run(ctx, Job{Stack: mustStack(pmaLayer(0)), Stimulus: fieldSweep(5)}) }()
			Eventually(d.State).Should(Equal(Paused))
			d.Cancel()
			Eventually(errc).Should(Receive(BeNil()))
			Expect(d.State()).To(Equal(Cancelled))
			Expect(d.Results()[0].Len()).To(Equal(1))
		})
	})

	Describe("configuration errors", func() {
		It("fails before integrating anything", func() {
			spec := fieldSweep(5)
			spec.Theta = stimulus.Axis{Min: 0, Max: 90}
			d := New(quietOptions())

			err := d.Run(ctx,
				Job{Name: "ok", Stack: mustStack(pmaLayer(0)), Stimulus: fieldSweep(2)},
				Job{Name: "bad", Stack: mustStack(pmaLayer(0)), Stimulus: spec},
			)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
			Expect(d.State()).To(Equal(Failed))
			Expect(d.Results()).To(BeEmpty())

			updates := drain(d.Updates())
			Expect(updates).To(HaveLen(1))
			Expect(updates[0].Status).To(Equal(results.StatusFailed))
			Expect(updates[0].Job).To(Equal("bad"))
		})

		It("rejects a mismatched initial state", func() {
			d := New(quietOptions())
			err := d.Run(ctx, Job{Stack: coupledStack(), Stimulus: fieldSweep(2), Initial: []vecmath.Vec3{vecmath.New(0, 0, 1)}})
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		})

		It("rejects an empty queue", func() {
			Expect(errors.Is(New(quietOptions()).Run(ctx), dynamo.ErrConfiguration)).To(BeTrue())
		})
	})

	Describe("diverging points", func() {
		diverging := func() stimulus.Spec {
			return stimulus.Spec{
				Mode:     stimulus.ModeH,
				H:        stimulus.Axis{Min: 1e6, Max: 1.1e6},
				Theta:    stimulus.Fixed(45),
				Phi:      stimulus.Fixed(0),
				Steps:    3,
				LLGTime:  1e-6,
				LLGSteps: 100,
			}
		}

		It("are recorded as failed and skipped by default", func() {
			d := New(quietOptions())
			Expect(d.Run(ctx, Job{Stack: mustStack(pmaLayer(0)), Stimulus: diverging()})).To(Succeed())
			Expect(d.State()).To(Equal(Completed))

			s := d.Results()[0]
			Expect(s.Len()).To(Equal(3))
			Expect(s.Completed()).To(BeZero())
			Expect(s.Records[0].Err).To(ContainSubstring("diverged"))
			for _, r := range s.Records {
				Expect(r.Failed).To(BeTrue())
				Expect(math.IsNaN(r.Rx)).To(BeTrue())
				Expect(math.IsNaN(r.Ry)).To(BeTrue())
				Expect(math.IsNaN(r.Rz)).To(BeTrue())
			}

			failed := 0
			for _, u := range drain(d.Updates()) {
				if u.Status == results.StatusPointFailed {
					failed++
				}
			}
			Expect(failed).To(Equal(3))
		})

		It("stop the run under the fail policy", func() {
			opts := quietOptions()
			opts.Policy = PolicyFail
			d := New(opts)

			err := d.Run(ctx, Job{Stack: mustStack(pmaLayer(0)), Stimulus: diverging()})
			Expect(err).To(MatchError(dynamo.ErrDiverged))
			var se *dynamo.SimulationError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(d.State()).To(Equal(Failed))
			Expect(d.Results()[0].Len()).To(Equal(1))

			updates := drain(d.Updates())
			Expect(updates[len(updates)-1].Status).To(Equal(results.StatusFailed))
		})
	})

	Describe("point timeout", func() {
		It("tags errors caused by the point deadline", func() {
			tctx, cancel := context.WithDeadlineCause(ctx, time.Now().Add(-time.Second), dynamo.ErrTimeout)
			defer cancel()
			err := pointErr(tctx, tctx.Err())
			Expect(err).To(MatchError(dynamo.ErrTimeout))
			Expect(err).To(MatchError(context.DeadlineExceeded))

			cctx, cancel2 := context.WithCancel(ctx)
			cancel2()
			Expect(pointErr(cctx, cctx.Err())).NotTo(MatchError(dynamo.ErrTimeout))
		})
	})

	Describe("orderings", func() {
		It("runs the synchronized solver as well", func() {
			opts := quietOptions()
			opts.Solver.Ordering = "synchronized"
			d := New(opts)
			Expect(d.Run(ctx, Job{Stack: coupledStack(), Stimulus: fieldSweep(3)})).To(Succeed())
			Expect(d.Results()[0].Completed()).To(Equal(3))
		})
	})
})
