package results

import "fmt"

// Status tags every streamed update.
type Status int

const (
	StatusInProgress Status = iota
	StatusPointFailed
	StatusDone
	StatusFailed
	StatusKilled
	StatusAllDone
)

var statusNames = map[Status]string{
	StatusInProgress:  "IN_PROGRESS",
	StatusPointFailed: "POINT_FAILED",
	StatusDone:        "DONE",
	StatusFailed:      "FAILED",
	StatusKilled:      "KILLED",
	StatusAllDone:     "ALL_DONE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether s always ends the run. FAILED ends it only as a
// run-level update; see Update.Terminal.
func (s Status) Terminal() bool {
	return s == StatusKilled || s == StatusAllDone
}

// Update is one item on the progress queue. Records are deep copies owned
// by the consumer.
type Update struct {
	Job      string    `json:"job"`
	Index    int       `json:"index"` // last sweep index covered, -1 if none
	Status   Status    `json:"status"`
	Records  []*Record `json:"records,omitempty"`
	Progress float64   `json:"progress"` // percent of all points in the run
	Err      string    `json:"err,omitempty"`
}

// Terminal reports whether no further updates follow for the whole run.
func (u Update) Terminal() bool {
	return u.Status.Terminal() || (u.Status == StatusFailed && u.Index < 0)
}
