package results

import (
	"sync"
	"sync/atomic"
)

// Progress counts processed points across a whole run.
type Progress struct {
	total int64
	done  atomic.Int64
}

func NewProgress(total int) *Progress {
	return &Progress{total: int64(total)}
}

func (p *Progress) Advance() { p.done.Add(1) }

func (p *Progress) Done() int  { return int(p.done.Load()) }
func (p *Progress) Total() int { return int(p.total) }

// Percent never decreases and never exceeds 100.
func (p *Progress) Percent() float64 {
	if p.total <= 0 {
		return 100
	}
	d := p.done.Load()
	if d > p.total {
		d = p.total
	}
	return 100 * float64(d) / float64(p.total)
}

// Aggregator merges records of one job into its Series and streams them in
// batches of deep copies.
type Aggregator struct {
	mu       sync.Mutex
	series   *Series
	batch    int
	pending  []*Record
	queue    *Queue
	progress *Progress
}

// NewAggregator streams to q; batch < 1 means 1. A nil progress tracks this
// series alone.
func NewAggregator(series *Series, total, batch int, q *Queue, progress *Progress) *Aggregator {
	if batch < 1 {
		batch = 1
	}
	if progress == nil {
		progress = NewProgress(total)
	}
	return &Aggregator{series: series, batch: batch, queue: q, progress: progress}
}

// Add merges r and queues a copy for the next batch. A failed record is
// also announced on its own as POINT_FAILED.
func (a *Aggregator) Add(r *Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.series.Merge(r); err != nil {
		return err
	}
	a.progress.Advance()

	if r.Failed {
		a.push(Update{Status: StatusPointFailed, Index: r.Index, Records: []*Record{r.Clone()}, Err: r.Err})
	}
	a.pending = append(a.pending, r.Clone())
	if len(a.pending) >= a.batch {
		a.flushLocked()
	}
	return nil
}

// Flush emits any partially filled batch.
func (a *Aggregator) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flushLocked()
}

func (a *Aggregator) flushLocked() {
	if len(a.pending) == 0 {
		return
	}
	batch := a.pending
	a.pending = nil
	a.push(Update{Status: StatusInProgress, Index: batch[len(batch)-1].Index, Records: batch})
}

func (a *Aggregator) push(u Update) {
	u.Job = a.series.Name
	u.Progress = a.progress.Percent()
	if a.queue != nil {
		a.queue.Push(u)
	}
}

// Finish flushes and emits a status update for the job.
func (a *Aggregator) Finish(status Status, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flushLocked()
	u := Update{Status: status, Index: a.series.Len() - 1}
	if err != nil {
		u.Err = err.Error()
	}
	a.push(u)
}

// Snapshot returns a deep copy of the series so far.
func (a *Aggregator) Snapshot() *Series {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.series.Clone()
}

func (a *Aggregator) Progress() *Progress { return a.progress }
