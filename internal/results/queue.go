package results

import (
	"context"
	"io"
	"sync"
)

// Queue is an unbounded, append-only FIFO of updates with a single producer
// and any number of readers. Push never blocks.
type Queue struct {
	mu     sync.Mutex
	items  []Update
	signal chan struct{}
	done   chan struct{}
	closed bool
}

func NewQueue() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends u. Pushing to a closed queue is a no-op.
func (q *Queue) Push(u Update) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, u)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Close marks the end of the stream. Buffered updates remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) pop() (Update, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) > 0 {
		u := q.items[0]
		q.items[0] = Update{}
		q.items = q.items[1:]
		return u, true, q.closed
	}
	return Update{}, false, q.closed
}

// Next blocks until an update is available. It returns io.EOF once the
// queue is closed and drained.
func (q *Queue) Next(ctx context.Context) (Update, error) {
	for {
		u, ok, closed := q.pop()
		if ok {
			return u, nil
		}
		if closed {
			return Update{}, io.EOF
		}
		select {
		case <-q.signal:
		case <-q.done:
		case <-ctx.Done():
			return Update{}, ctx.Err()
		}
	}
}

// Drain removes and returns everything currently buffered.
func (q *Queue) Drain() []Update {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Done is closed when the producer closes the queue.
func (q *Queue) Done() <-chan struct{} { return q.done }
