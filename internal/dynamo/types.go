package dynamo

import (
	"math"

	"github.com/san-kum/spinsim/internal/vecmath"
)

// State is the packed magnetization of a stack, [mx0 my0 mz0 mx1 ...], one
// triplet per layer.
type State []float64

// Pack lays out one triplet per moment.
func Pack(ms []vecmath.Vec3) State {
	s := make(State, 3*len(ms))
	for i, m := range ms {
		s.Put(i, m)
	}
	return s
}

// Layers is the number of complete triplets.
func (s State) Layers() int { return len(s) / 3 }

func (s State) At(i int) vecmath.Vec3 {
	return vecmath.FromSlice(s[3*i : 3*i+3])
}

func (s State) Put(i int, v vecmath.Vec3) {
	s[3*i], s[3*i+1], s[3*i+2] = v.X, v.Y, v.Z
}

// Unpack is the inverse of Pack.
func (s State) Unpack() []vecmath.Vec3 {
	ms := make([]vecmath.Vec3, s.Layers())
	for i := range ms {
		ms[i] = s.At(i)
	}
	return ms
}

func (s State) Clone() State {
	return append(State(nil), s...)
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Distance is the Euclidean distance between two states of equal length.
func (s State) Distance(o State) float64 {
	sum := 0.0
	for i := range s {
		d := s[i] - o[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// MaxNormDrift is max over layers of ||m_i| - 1|.
func (s State) MaxNormDrift() float64 {
	drift := 0.0
	for i := 0; i < s.Layers(); i++ {
		drift = math.Max(drift, math.Abs(s.At(i).Norm()-1))
	}
	return drift
}

// System is an ODE right-hand side dX/dt = f(X, t). Time-dependent
// excitation lives inside the system.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Integrator advances a System by one fixed step. Implementations may keep
// scratch buffers and are not safe for concurrent use; the returned State is
// always freshly allocated.
type Integrator interface {
	Step(sys System, x State, t float64, dt float64) State
}

// AdaptiveIntegrator also judges a step against an embedded error estimate.
// ok reports whether the step met tol; next is meaningful only then. dtNext
// is the suggested size for the following attempt either way. A non-finite
// result returns ErrDiverged.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt, tol float64) (next State, dtNext float64, ok bool, err error)
}

// Metric accumulates a scalar over the samples of one integration.
type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}
