package llg

import (
	"math"

	"github.com/san-kum/spinsim/internal/device"
	"github.com/san-kum/spinsim/internal/vecmath"
)

const (
	// GammaPrime is μ0·γ for a free electron, m/(A·s).
	GammaPrime = 2.211e5
	Mu0        = 4 * math.Pi * 1e-7
)

// terms caches the per-layer prefactors of the effective field and torque.
type terms struct {
	anis  float64      // 2Ku/Ms
	k     vecmath.Vec3 // anisotropy axis
	demag vecmath.Vec3 // (Ms/μ0)·diag(N)

	// exchange prefactors J/(Ms·th), 2·J2/(Ms·th) towards the layer below
	// and above
	jLo, j2Lo float64
	jUp, j2Up float64

	pre   float64 // -γ'/(1+α²)
	alpha float64

	hoe  float64
	idir vecmath.Vec3
}

func newTerms(s *device.Stack) []terms {
	out := make([]terms, s.Len())
	for i := range out {
		l := s.Layer(i)
		lower, upper := s.Neighbors(i)
		jLo, j2Lo := s.Coupling(i, lower)
		jUp, j2Up := s.Coupling(i, upper)
		area := l.Ms * l.Thickness
		out[i] = terms{
			anis:  2 * l.Ku / l.Ms,
			k:     l.Kdir,
			demag: l.Demag.Scale(l.Ms / Mu0),
			jLo:   jLo / area,
			j2Lo:  2 * j2Lo / area,
			jUp:   jUp / area,
			j2Up:  2 * j2Up / area,
			pre:   -GammaPrime / (1 + l.Alpha*l.Alpha),
			alpha: l.Alpha,
			hoe:   l.Hoe,
			idir:  l.Idir,
		}
	}
	return out
}

// neighbor is an adjacent layer's moment as seen by the layer being
// evaluated. A missing neighbour contributes nothing.
type neighbor struct {
	m  vecmath.Vec3
	ok bool
}

// field assembles the effective field on a layer with moment m. hext already
// includes the Oersted contribution.
func (c *terms) field(m, hext vecmath.Vec3, lo, up neighbor) vecmath.Vec3 {
	h := hext
	h = h.Add(c.k.Scale(c.anis * m.Dot(c.k)))
	h = h.Sub(c.demag.Mul(m))
	if lo.ok {
		h = h.Add(lo.m.Scale(c.jLo + c.j2Lo*m.Dot(lo.m)))
	}
	if up.ok {
		h = h.Add(up.m.Scale(c.jUp + c.j2Up*m.Dot(up.m)))
	}
	return h
}

// torque is the Landau-Lifshitz right-hand side for one layer.
func (c *terms) torque(m, h vecmath.Vec3) vecmath.Vec3 {
	mxh := m.Cross(h)
	return mxh.Add(m.Cross(mxh).Scale(c.alpha)).Scale(c.pre)
}
