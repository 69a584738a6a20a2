package device

import (
	"sort"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// GMR holds the parallel and antiparallel resistances of the pseudo-GMR
// (current perpendicular to plane) term between layers 0 and 1.
type GMR struct {
	RP  float64 `yaml:"rp" json:"rp"`
	RAP float64 `yaml:"rap" json:"rap"`
}

// DefaultGMR is used when a stack is built without explicit values.
var DefaultGMR = GMR{RP: 100, RAP: 200}

// Stack is an ordered, immutable sequence of layers. Layer i couples only to
// i-1 and i+1.
type Stack struct {
	layers []Layer
	gmr    GMR
}

type StackOption func(*Stack)

func WithGMR(g GMR) StackOption {
	return func(s *Stack) { s.gmr = g }
}

// NewStack validates every layer, orders them by ID and checks the IDs run
// 0..n-1 without gaps.
func NewStack(layers []Layer, opts ...StackOption) (*Stack, error) {
	if len(layers) == 0 {
		return nil, dynamo.Configf("stack", "at least one layer is required")
	}
	s := &Stack{layers: make([]Layer, len(layers)), gmr: DefaultGMR}
	for i, p := range layers {
		l, err := NewLayer(p)
		if err != nil {
			return nil, err
		}
		s.layers[i] = l
	}
	sort.SliceStable(s.layers, func(i, j int) bool { return s.layers[i].ID < s.layers[j].ID })
	for i, l := range s.layers {
		if l.ID != i {
			return nil, dynamo.Configf("stack", "layer ids must be contiguous from 0, found %d at position %d", l.ID, i)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Stack) Len() int { return len(s.layers) }

func (s *Stack) Layer(i int) Layer { return s.layers[i] }

// Layers returns a copy of the ordered layers.
func (s *Stack) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

func (s *Stack) GMR() GMR { return s.gmr }

// Neighbors returns the indices below and above layer i; -1 marks a missing
// neighbour.
func (s *Stack) Neighbors(i int) (lower, upper int) {
	lower, upper = i-1, i+1
	if upper >= len(s.layers) {
		upper = -1
	}
	return lower, upper
}

// Coupling returns J and J2 between layer i and its neighbour n.
func (s *Stack) Coupling(i, n int) (j, j2 float64) {
	if n < 0 || n >= len(s.layers) {
		return 0, 0
	}
	lo := min(i, n)
	return s.layers[lo].J, s.layers[lo].J2
}

// MomentWeights returns Ms·th per layer normalized to sum 1.
func (s *Stack) MomentWeights() []float64 {
	w := make([]float64, len(s.layers))
	var total float64
	for i, l := range s.layers {
		w[i] = l.Moment()
		total += w[i]
	}
	for i := range w {
		w[i] /= total
	}
	return w
}

// Average returns the moment-weighted mean of per-layer vectors.
func (s *Stack) Average(m []vecmath.Vec3) vecmath.Vec3 {
	var avg vecmath.Vec3
	for i, w := range s.MomentWeights() {
		avg = avg.Add(m[i].Scale(w))
	}
	return avg
}

// Uniform returns a state with every layer along dir. A zero dir falls back
// to each layer's anisotropy axis.
func (s *Stack) Uniform(dir vecmath.Vec3) []vecmath.Vec3 {
	m := make([]vecmath.Vec3, len(s.layers))
	u := dir.Normalize()
	for i, l := range s.layers {
		if u.IsZero() {
			m[i] = l.Kdir
		} else {
			m[i] = u
		}
	}
	return m
}
