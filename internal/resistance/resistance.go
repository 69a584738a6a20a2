// Package resistance maps per-layer magnetization onto the longitudinal,
// transverse and perpendicular resistances of the device.
package resistance

import (
	"github.com/san-kum/spinsim/internal/device"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// Values are the three resistances at one instant.
type Values struct {
	Rxx float64 `json:"rxx"`
	Rxy float64 `json:"rxy"`
	Rzz float64 `json:"rzz"`
}

// Along picks the resistance probed by a voltage measured along vdir:
// x → Rxx, y → Rxy, z → Rzz.
func (v Values) Along(vdir vecmath.Vec3) float64 {
	switch vdir.DominantAxis() {
	case 1:
		return v.Rxy
	case 2:
		return v.Rzz
	default:
		return v.Rxx
	}
}

// Model holds the parallel-resistor mixing parameters of a stack. Layers act
// as parallel channels; the w/l ratio of layer 0 scales the planar Hall term
// of every layer.
type Model struct {
	layers []device.Layer
	ratio  float64
	gmr    device.GMR
}

func New(s *device.Stack) *Model {
	return &Model{
		layers: s.Layers(),
		ratio:  s.Layer(0).AspectRatio(),
		gmr:    s.GMR(),
	}
}

func (m *Model) longitudinal(i int, v vecmath.Vec3) float64 {
	l := &m.layers[i]
	return l.Rx0 + l.AMR*v.X*v.X + l.SMR*v.Y*v.Y
}

func (m *Model) transverse(i int, v vecmath.Vec3) float64 {
	l := &m.layers[i]
	return l.Ry0 + 0.5*l.AHE*v.Z + m.ratio*(l.SMR-l.AMR)*v.X*v.Y
}

// gmrTerm is the pseudo-GMR resistance between layers 0 and 1, zero for a
// single layer.
func (m *Model) gmrTerm(a, b vecmath.Vec3) float64 {
	na, nb := a.Norm(), b.Norm()
	cos := 1.0
	if na > 0 && nb > 0 {
		cos = a.Dot(b) / (na * nb)
	}
	return m.gmr.RP + (m.gmr.RAP-m.gmr.RP)/2*(1-cos)
}

// At evaluates the model for one magnetization state, indexed by layer. A
// zero channel resistance shorts the whole stack.
func (m *Model) At(mag []vecmath.Vec3) Values {
	var gx, gy float64
	for i := range m.layers {
		gx += 1 / m.longitudinal(i, mag[i])
		gy += 1 / m.transverse(i, mag[i])
	}
	v := Values{Rxx: 1 / gx, Rxy: 1 / gy}
	if len(m.layers) >= 2 {
		v.Rzz = m.gmrTerm(mag[0], mag[1])
	}
	return v
}

// Series is the resistance time series of a trajectory.
type Series struct {
	Rxx, Rxy, Rzz []float64
}

// Along returns the series probed along vdir; see Values.Along.
func (s Series) Along(vdir vecmath.Vec3) []float64 {
	switch vdir.DominantAxis() {
	case 1:
		return s.Rxy
	case 2:
		return s.Rzz
	default:
		return s.Rxx
	}
}

// Series evaluates the model at every step of traj, indexed [layer][step].
func (m *Model) Series(traj [][]vecmath.Vec3) Series {
	if len(traj) == 0 {
		return Series{}
	}
	n := len(traj[0])
	out := Series{
		Rxx: make([]float64, n),
		Rxy: make([]float64, n),
		Rzz: make([]float64, n),
	}
	mag := make([]vecmath.Vec3, len(traj))
	for k := 0; k < n; k++ {
		for i := range traj {
			mag[i] = traj[i][k]
		}
		v := m.At(mag)
		out.Rxx[k], out.Rxy[k], out.Rzz[k] = v.Rxx, v.Rxy, v.Rzz
	}
	return out
}
