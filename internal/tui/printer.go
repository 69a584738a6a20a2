package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/san-kum/spinsim/internal/results"
)

// Printer writes one line per update for non-interactive output.
type Printer struct {
	w     io.Writer
	final results.Status
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, final: -1}
}

// Follow prints every update from q until the queue is closed and drained,
// then returns nil. A cancelled ctx returns ctx.Err().
func (p *Printer) Follow(ctx context.Context, q *results.Queue) error {
	for {
		u, err := q.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		p.Print(u)
	}
}

func (p *Printer) Print(u results.Update) {
	if u.Terminal() {
		p.final = u.Status
	}
	switch u.Status {
	case results.StatusInProgress:
		for _, r := range u.Records {
			if r.Failed {
				continue
			}
			fmt.Fprintf(p.w, "[%5.1f%%] %s #%d value=%.4g Rx=%.6g Ry=%.6g Rz=%.6g\n",
				u.Progress, u.Job, r.Index, r.Value, r.Rx, r.Ry, r.Rz)
		}
	case results.StatusPointFailed:
		fmt.Fprintf(p.w, "[%5.1f%%] %s #%d failed: %s\n", u.Progress, u.Job, u.Index, u.Err)
	case results.StatusDone:
		fmt.Fprintf(p.w, "%s done\n", u.Job)
	case results.StatusFailed:
		fmt.Fprintf(p.w, "%s failed: %s\n", u.Job, u.Err)
	case results.StatusKilled:
		fmt.Fprintf(p.w, "cancelled at %.1f%%\n", u.Progress)
	case results.StatusAllDone:
		fmt.Fprintf(p.w, "all jobs done\n")
	}
}

// Final is the terminal status seen, or -1 if none arrived.
func (p *Printer) Final() results.Status { return p.final }
