package llg

import (
	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// stackSystem is the full coupled 3N-dimensional system.
type stackSystem struct {
	terms []terms
	hext  vecmath.Vec3
	drive Drive
}

func (s *stackSystem) StateDim() int { return 3 * len(s.terms) }

func (s *stackSystem) Derive(x dynamo.State, t float64) dynamo.State {
	n := len(s.terms)
	dx := make(dynamo.State, 3*n)
	for i := range s.terms {
		c := &s.terms[i]
		var lo, up neighbor
		if i > 0 {
			lo = neighbor{m: x.At(i-1), ok: true}
		}
		if i+1 < n {
			up = neighbor{m: x.At(i+1), ok: true}
		}
		m := x.At(i)
		h := c.field(m, s.hext.Add(s.drive.Oersted(c.idir, c.hoe, t)), lo, up)
		dx.Put(i, c.torque(m, h))
	}
	return dx
}

// layerSystem evolves a single layer with its neighbours held fixed.
type layerSystem struct {
	c      *terms
	hext   vecmath.Vec3
	drive  Drive
	lo, up neighbor
}

func (s *layerSystem) StateDim() int { return 3 }

func (s *layerSystem) Derive(x dynamo.State, t float64) dynamo.State {
	m := x.At(0)
	h := s.c.field(m, s.hext.Add(s.drive.Oersted(s.c.idir, s.c.hoe, t)), s.lo, s.up)
	dm := s.c.torque(m, h)
	return dynamo.Pack([]vecmath.Vec3{dm})
}
