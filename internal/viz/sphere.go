package viz

import (
	"math"

	"github.com/san-kum/spinsim/internal/vecmath"
)

// Camera is an orthographic view of the unit sphere.
type Camera struct {
	RotX, RotZ float64 // rad
	Zoom       float64
}

// NewCamera tilts the view so the z axis points up and slightly toward the
// viewer.
func NewCamera() *Camera {
	return &Camera{RotX: -math.Pi / 2.6, RotZ: -math.Pi / 6, Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(4, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.25, c.Zoom/1.2) }

// Rotate applies the Z rotation first, then X.
func (c *Camera) Rotate(p vecmath.Vec3) vecmath.Vec3 {
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// Project maps p onto canvas dots. Depth grows toward the viewer.
func (c *Camera) Project(p vecmath.Vec3, canvas *Canvas) (x, y int, depth float64) {
	r := c.Rotate(p).Scale(c.Zoom)
	w, h := float64(canvas.DotsX()), float64(canvas.DotsY())
	radius := math.Min(w, h)/2 - 1
	x = int(math.Round(w/2 + r.X*radius))
	y = int(math.Round(h/2 - r.Z*radius))
	return x, y, -r.Y
}

// drawPath joins consecutive projected points.
func drawPath(canvas *Canvas, cam *Camera, pts []vecmath.Vec3, frontOnly bool) {
	var px, py int
	have := false
	for _, p := range pts {
		x, y, d := cam.Project(p, canvas)
		if frontOnly && d < 0 {
			have = false
			continue
		}
		if have {
			canvas.DrawLine(px, py, x, y)
		} else {
			canvas.Set(x, y)
		}
		px, py, have = x, y, true
	}
}

func circle(n int, at func(t float64) vecmath.Vec3) []vecmath.Vec3 {
	pts := make([]vecmath.Vec3, n+1)
	for i := range pts {
		pts[i] = at(2 * math.Pi * float64(i) / float64(n))
	}
	return pts
}

// SphereView draws the front half of an equator and two meridians, then
// every trajectory in full. traj is indexed [layer][sample].
func SphereView(canvas *Canvas, cam *Camera, traj [][]vecmath.Vec3) {
	const seg = 48
	drawPath(canvas, cam, circle(seg, func(t float64) vecmath.Vec3 {
		return vecmath.New(math.Cos(t), math.Sin(t), 0)
	}), true)
	drawPath(canvas, cam, circle(seg, func(t float64) vecmath.Vec3 {
		return vecmath.New(math.Cos(t), 0, math.Sin(t))
	}), true)
	drawPath(canvas, cam, circle(seg, func(t float64) vecmath.Vec3 {
		return vecmath.New(0, math.Cos(t), math.Sin(t))
	}), true)

	for _, layer := range traj {
		drawPath(canvas, cam, layer, false)
	}
}

// RenderSphere is SphereView on a fresh canvas of w x h cells.
func RenderSphere(w, h int, cam *Camera, traj [][]vecmath.Vec3) string {
	canvas := NewCanvas(w, h)
	SphereView(canvas, cam, traj)
	return canvas.String()
}
