// Package device holds the immutable physical description of a magnetic
// multilayer: per-layer parameters and the ordered stack that defines the
// exchange-coupling topology.
package device

import (
	"math"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// Layer is one macrospin layer. J and J2 describe the coupling to the layer
// directly above (ID+1) and are ignored on the top layer.
type Layer struct {
	ID        int          `yaml:"id" json:"id"`
	Ms        float64      `yaml:"ms" json:"ms"`               // saturation magnetization, T
	Ku        float64      `yaml:"ku" json:"ku"`               // uniaxial anisotropy, J/m^3
	Kdir      vecmath.Vec3 `yaml:"kdir" json:"kdir"`           // anisotropy axis
	J         float64      `yaml:"j" json:"j"`                 // bilinear IEC, J/m^2
	J2        float64      `yaml:"j2" json:"j2"`               // biquadratic IEC, J/m^2
	Thickness float64      `yaml:"thickness" json:"thickness"` // m
	Alpha     float64      `yaml:"alpha" json:"alpha"`
	Demag     vecmath.Vec3 `yaml:"demag" json:"demag"` // diagonal of N

	AMR    float64 `yaml:"amr" json:"amr"`
	SMR    float64 `yaml:"smr" json:"smr"`
	AHE    float64 `yaml:"ahe" json:"ahe"`
	Rx0    float64 `yaml:"rx0" json:"rx0"`
	Ry0    float64 `yaml:"ry0" json:"ry0"`
	Width  float64 `yaml:"width" json:"width"`
	Length float64 `yaml:"length" json:"length"`

	Hoe  float64      `yaml:"hoe" json:"hoe"`   // Oersted field per unit drive
	Idir vecmath.Vec3 `yaml:"idir" json:"idir"` // zero: use the stimulus direction
}

// NewLayer validates p and returns a copy with Kdir (and a non-zero Idir)
// normalized to unit length.
func NewLayer(p Layer) (Layer, error) {
	if !(p.Ms > 0) {
		return Layer{}, dynamo.Configf("layer.ms", "layer %d: must be positive, got %g", p.ID, p.Ms)
	}
	if !(p.Thickness > 0) {
		return Layer{}, dynamo.Configf("layer.thickness", "layer %d: must be positive, got %g", p.ID, p.Thickness)
	}
	if p.Alpha < 0 || math.IsNaN(p.Alpha) {
		return Layer{}, dynamo.Configf("layer.alpha", "layer %d: must be non-negative, got %g", p.ID, p.Alpha)
	}
	if p.Kdir.IsZero() {
		if p.Ku != 0 {
			return Layer{}, dynamo.Configf("layer.kdir", "layer %d: zero anisotropy axis with Ku=%g", p.ID, p.Ku)
		}
		p.Kdir = vecmath.New(0, 0, 1)
	}
	if !p.Kdir.IsFinite() || !p.Demag.IsFinite() || !p.Idir.IsFinite() {
		return Layer{}, dynamo.Configf("layer", "layer %d: non-finite vector parameter", p.ID)
	}
	p.Kdir = p.Kdir.Normalize()
	p.Idir = p.Idir.Normalize()
	return p, nil
}

// UnmarshalYAML decodes a layer with Hoe defaulting to 1 when the key is
// absent.
func (l *Layer) UnmarshalYAML(node *yaml.Node) error {
	type plain Layer
	p := plain{Hoe: 1}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*l = Layer(p)
	return nil
}

// AspectRatio is w/l, or 0 when no length is set.
func (l Layer) AspectRatio() float64 {
	if l.Length == 0 {
		return 0
	}
	return l.Width / l.Length
}

// Moment is the areal moment weight Ms·th used for averaging.
func (l Layer) Moment() float64 { return l.Ms * l.Thickness }
