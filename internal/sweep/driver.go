package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/llg"
	"github.com/san-kum/spinsim/internal/results"
	"github.com/san-kum/spinsim/internal/spectrum"
)

// DefaultPointTimeout bounds one sweep point including its frequency fan-out.
const DefaultPointTimeout = 10 * time.Minute

type Options struct {
	Solver       llg.Options
	LockIn       spectrum.LockIn
	Parallel     bool
	Workers      int // 0: one less than the number of CPUs
	PointTimeout time.Duration
	Policy       Policy
	BatchSize    int

	// OnRecord is called on the driver goroutine after each point has been
	// merged. The record must not be modified.
	OnRecord func(job string, r *results.Record)

	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Solver:       llg.DefaultOptions(),
		LockIn:       spectrum.DefaultLockIn(),
		Parallel:     true,
		PointTimeout: DefaultPointTimeout,
		Policy:       PolicySkip,
		BatchSize:    1,
	}
}

var errCancelled = errors.New("sweep: cancelled")

// Driver runs a queue of sweep jobs once. It is safe to call Pause, Resume,
// Cancel, State and Results from other goroutines while Run is active.
type Driver struct {
	opts  Options
	log   *slog.Logger
	pool  *dynamo.Pool
	queue *results.Queue

	mu        sync.Mutex
	state     State
	pauseReq  bool
	cancelled bool
	cancelRun context.CancelFunc
	wake      chan struct{}
	aggs      []*results.Aggregator
}

func New(opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Policy == "" {
		opts.Policy = PolicySkip
	}
	if opts.LockIn == (spectrum.LockIn{}) {
		opts.LockIn = spectrum.DefaultLockIn()
	}
	workers := 1
	if opts.Parallel {
		workers = opts.Workers
	}
	return &Driver{
		opts:  opts,
		log:   opts.Logger,
		pool:  dynamo.NewPool(workers),
		queue: results.NewQueue(),
		wake:  make(chan struct{}, 1),
	}
}

func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Updates is the progress stream. It is closed after the final KILLED,
// ALL_DONE or FAILED update.
func (d *Driver) Updates() *results.Queue { return d.queue }

// Results returns deep copies of every job's series so far, in queue order.
func (d *Driver) Results() []*results.Series {
	d.mu.Lock()
	aggs := append([]*results.Aggregator(nil), d.aggs...)
	d.mu.Unlock()

	out := make([]*results.Series, len(aggs))
	for i, a := range aggs {
		out[i] = a.Snapshot()
	}
	return out
}

// Pause takes effect at the next point boundary.
func (d *Driver) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.state.Finished() {
		d.pauseReq = true
	}
}

func (d *Driver) Resume() {
	d.mu.Lock()
	d.pauseReq = false
	d.mu.Unlock()
	d.notify()
}

// Cancel stops the run after discarding the point in flight. Completed
// points are kept.
func (d *Driver) Cancel() {
	d.mu.Lock()
	d.cancelled = true
	if d.cancelRun != nil {
		d.cancelRun()
	}
	d.mu.Unlock()
	d.notify()
}

func (d *Driver) notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// boundary is the only place the run yields to pause and cancel requests.
func (d *Driver) boundary(ctx context.Context) error {
	for {
		d.mu.Lock()
		if d.cancelled {
			d.mu.Unlock()
			return errCancelled
		}
		if err := ctx.Err(); err != nil {
			d.mu.Unlock()
			return err
		}
		if !d.pauseReq {
			if d.state == Paused {
				d.state = Running
				d.log.Info("sweep resumed")
			}
			d.mu.Unlock()
			return nil
		}
		if d.state != Paused {
			d.state = Paused
			d.log.Info("sweep paused")
		}
		d.mu.Unlock()

		select {
		case <-d.wake:
		case <-ctx.Done():
		}
	}
}

func (d *Driver) isCancelled(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled || ctx.Err() != nil
}

// Run validates every job, then processes them in order. It returns nil when
// the queue completes or Cancel was called, the configuration error when a
// job is invalid, the context error when ctx ends, and the point error when
// PolicyFail stops the run.
func (d *Driver) Run(ctx context.Context, jobs ...Job) error {
	d.mu.Lock()
	if d.state != Idle {
		d.mu.Unlock()
		return dynamo.ErrAlreadyStarted
	}
	d.state = Running
	d.mu.Unlock()

	if len(jobs) == 0 {
		return d.fail("", dynamo.Configf("jobs", "work queue is empty"))
	}
	plans := make([]*plan, len(jobs))
	total := 0
	for i, job := range jobs {
		p, err := newPlan(i, job, d.opts)
		if err != nil {
			return d.fail(job.Name, err)
		}
		plans[i] = p
		total += p.sweep.Len()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	d.cancelRun = cancel
	if d.cancelled {
		cancel()
	}
	d.mu.Unlock()

	progress := results.NewProgress(total)
	start := time.Now()
	d.log.Info("sweep started", "jobs", len(plans), "points", total, "workers", d.pool.Workers())

	for _, p := range plans {
		err := d.runJob(runCtx, p, progress)
		switch {
		case err == nil:
			continue
		case errors.Is(err, errCancelled), d.isCancelled(runCtx):
			d.setState(Cancelled)
			d.queue.Push(results.Update{Job: p.name, Index: -1, Status: results.StatusKilled, Progress: progress.Percent()})
			d.queue.Close()
			d.log.Info("sweep cancelled", "job", p.name, "done", progress.Done(), "elapsed", time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		default:
			d.setState(Failed)
			d.queue.Push(results.Update{Job: p.name, Index: -1, Status: results.StatusFailed, Progress: progress.Percent(), Err: err.Error()})
			d.queue.Close()
			d.log.Error("sweep failed", "job", p.name, "err", err)
			return err
		}
	}

	d.setState(Completed)
	d.queue.Push(results.Update{Index: -1, Status: results.StatusAllDone, Progress: progress.Percent()})
	d.queue.Close()
	d.log.Info("sweep completed", "points", total, "elapsed", time.Since(start))
	return nil
}

func (d *Driver) fail(job string, err error) error {
	d.setState(Failed)
	d.queue.Push(results.Update{Job: job, Index: -1, Status: results.StatusFailed, Err: err.Error()})
	d.queue.Close()
	d.log.Error("sweep rejected", "job", job, "err", err)
	return err
}

func (d *Driver) runJob(ctx context.Context, p *plan, progress *results.Progress) error {
	series := results.NewSeries(p.name, string(p.spec.Mode), p.sweep.Freqs)
	agg := results.NewAggregator(series, p.sweep.Len(), d.opts.BatchSize, d.queue, progress)
	d.mu.Lock()
	d.aggs = append(d.aggs, agg)
	d.mu.Unlock()

	d.log.Info("job started", "job", p.name, "mode", p.spec.Mode, "points", p.sweep.Len(), "freqs", len(p.sweep.Freqs))

	seed := p.seed
	for i := 0; i < p.sweep.Len(); i++ {
		if err := d.boundary(ctx); err != nil {
			agg.Flush()
			return err
		}

		rec, next, err := d.runPoint(ctx, p, i, seed)
		if err != nil {
			if d.isCancelled(ctx) {
				d.log.Debug("in-flight point discarded", "job", p.name, "point", i)
				agg.Flush()
				return errCancelled
			}
			rec = failedRecord(p, i, err)
			if mergeErr := agg.Add(rec); mergeErr != nil {
				return mergeErr
			}
			if d.opts.Policy == PolicyFail {
				agg.Flush()
				return fmt.Errorf("job %s point %d: %w", p.name, i, err)
			}
			d.log.Warn("point failed", "job", p.name, "point", i, "value", p.sweep.Labels[i], "err", err)
		} else {
			if err := agg.Add(rec); err != nil {
				return err
			}
			seed = next
			d.log.Debug("point done", "job", p.name, "point", i, "value", rec.Value,
				"rx", rec.Rx, "ry", rec.Ry, "rz", rec.Rz, "norm_drift", rec.NormDrift)
		}

		if d.opts.OnRecord != nil {
			d.opts.OnRecord(p.name, rec)
		}
	}

	agg.Finish(results.StatusDone, nil)
	snap := agg.Snapshot()
	d.log.Info("job done", "job", p.name, "points", snap.Len(), "failed", snap.Len()-snap.Completed())
	return nil
}
