package sweep

import "fmt"

// State of a Driver. Idle → Running ⇄ Paused → Completed | Cancelled | Failed.
type State int

const (
	Idle State = iota
	Running
	Paused
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) Finished() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Policy decides what a diverged or timed-out point does to the sweep.
type Policy string

const (
	// PolicySkip records the point as failed and moves on.
	PolicySkip Policy = "skip"
	// PolicyFail stops the whole run at the first failed point.
	PolicyFail Policy = "fail"
)
