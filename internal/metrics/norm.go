package metrics

import (
	"math"

	"github.com/san-kum/spinsim/internal/dynamo"
)

// NormDrift tracks the largest deviation of any layer's |m| from 1 seen over
// a run. The state is the packed [mx0 my0 mz0 mx1 ...] vector.
type NormDrift struct {
	name     string
	maxDrift float64
	samples  int
}

func NewNormDrift() *NormDrift {
	return &NormDrift{name: "norm_drift"}
}

func (n *NormDrift) Name() string { return n.name }

func (n *NormDrift) Observe(x dynamo.State, t float64) {
	n.maxDrift = math.Max(n.maxDrift, x.MaxNormDrift())
	n.samples++
}

func (n *NormDrift) Value() float64 {
	return n.maxDrift
}

func (n *NormDrift) Reset() {
	n.maxDrift = 0
	n.samples = 0
}
