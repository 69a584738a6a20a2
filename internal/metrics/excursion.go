package metrics

import (
	"math"

	"github.com/san-kum/spinsim/internal/dynamo"
)

// Excursion reports the largest angle, in degrees, that any layer moved away
// from its orientation at the first observed sample.
type Excursion struct {
	name    string
	initial dynamo.State
	maxDeg  float64
	samples int
}

func NewExcursion() *Excursion {
	return &Excursion{name: "excursion_deg"}
}

func (e *Excursion) Name() string {
	return e.name
}

func (e *Excursion) Observe(x dynamo.State, t float64) {
	if e.samples == 0 {
		e.initial = x.Clone()
	}
	e.samples++
	if len(x) != len(e.initial) {
		return
	}
	for i := 0; i < x.Layers(); i++ {
		a, b := e.initial.At(i), x.At(i)
		na, nb := a.Norm(), b.Norm()
		if na == 0 || nb == 0 {
			continue
		}
		c := math.Max(-1, math.Min(1, a.Dot(b)/(na*nb)))
		e.maxDeg = math.Max(e.maxDeg, math.Acos(c)*180/math.Pi)
	}
}

func (e *Excursion) Value() float64 {
	return e.maxDeg
}

func (e *Excursion) Reset() {
	e.initial = nil
	e.maxDeg = 0
	e.samples = 0
}
