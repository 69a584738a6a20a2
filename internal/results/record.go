// Package results accumulates per-point sweep output and streams it to
// consumers through an append-only queue.
package results

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/san-kum/spinsim/internal/spectrum"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// Record is the outcome of one sweep point. It is never mutated after it
// has been merged into a Series.
type Record struct {
	Index int          `json:"index"`
	Value float64      `json:"value"` // swept quantity
	Field vecmath.Vec3 `json:"field"`

	M      vecmath.Vec3   `json:"m"`      // moment-weighted mean
	Layers []vecmath.Vec3 `json:"layers"` // relaxed per-layer moments

	Rx float64 `json:"rx"` // NaN on a failed point
	Ry float64 `json:"ry"`
	Rz float64 `json:"rz"`

	PIMM  spectrum.Spectrum `json:"pimm"`
	Diode []spectrum.Diode  `json:"diode,omitempty"`

	Trajectory [][]vecmath.Vec3 `json:"trajectory,omitempty"` // [layer][sample]
	NormDrift  float64          `json:"norm_drift"`

	Failed bool   `json:"failed,omitempty"`
	Err    string `json:"err,omitempty"`
}

type recordJSON Record

// wireRecord shadows the resistances so NaN travels as null.
type wireRecord struct {
	*recordJSON
	Rx *float64 `json:"rx"`
	Ry *float64 `json:"ry"`
	Rz *float64 `json:"rz"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		recordJSON: (*recordJSON)(&r),
		Rx:         finiteOrNil(r.Rx),
		Ry:         finiteOrNil(r.Ry),
		Rz:         finiteOrNil(r.Rz),
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	w := wireRecord{recordJSON: (*recordJSON)(r)}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Rx, r.Ry, r.Rz = nilOrNaN(w.Rx), nilOrNaN(w.Ry), nilOrNaN(w.Rz)
	return nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nilOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	c.Layers = append([]vecmath.Vec3(nil), r.Layers...)
	c.PIMM = spectrum.Spectrum{
		Freqs:     append([]float64(nil), r.PIMM.Freqs...),
		Amplitude: append([]float64(nil), r.PIMM.Amplitude...),
	}
	c.Diode = append([]spectrum.Diode(nil), r.Diode...)
	if r.Trajectory != nil {
		c.Trajectory = make([][]vecmath.Vec3, len(r.Trajectory))
		for i, layer := range r.Trajectory {
			c.Trajectory[i] = append([]vecmath.Vec3(nil), layer...)
		}
	}
	return &c
}

// Series is the ordered record list of one sweep job.
type Series struct {
	Name    string    `json:"name"`
	Mode    string    `json:"mode"`
	Freqs   []float64 `json:"freqs,omitempty"` // spin-diode drive frequencies
	Records []*Record `json:"records"`
}

func NewSeries(name, mode string, freqs []float64) *Series {
	return &Series{Name: name, Mode: mode, Freqs: append([]float64(nil), freqs...)}
}

func (s *Series) Len() int { return len(s.Records) }

// Merge appends r, which must carry the next sweep index.
func (s *Series) Merge(r *Record) error {
	if r.Index != len(s.Records) {
		return fmt.Errorf("results: record index %d out of order, expected %d", r.Index, len(s.Records))
	}
	s.Records = append(s.Records, r)
	return nil
}

// Values returns the swept quantity of every record.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Value
	}
	return out
}

// Completed counts records that did not fail.
func (s *Series) Completed() int {
	n := 0
	for _, r := range s.Records {
		if !r.Failed {
			n++
		}
	}
	return n
}

// Clone deep-copies the series and every record.
func (s *Series) Clone() *Series {
	c := NewSeries(s.Name, s.Mode, s.Freqs)
	c.Records = make([]*Record, len(s.Records))
	for i, r := range s.Records {
		c.Records[i] = r.Clone()
	}
	return c
}
