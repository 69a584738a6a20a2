package device

import (
	"errors"
	"math"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/vecmath"
)

func baseLayer(id int) Layer {
	return Layer{ID: id, Ms: 1.07, Ku: 305e3, Kdir: vecmath.New(0, 0, 1), Thickness: 1e-9, Alpha: 0.01}
}

func TestNewLayer_NormalizesKdir(t *testing.T) {
	dirs := []vecmath.Vec3{
		vecmath.New(0, 0, 5),
		vecmath.New(1, 1, 0),
		vecmath.New(1e-3, -2e-3, 7e-4),
		vecmath.New(-300, 12, 0.5),
	}
	for _, d := range dirs {
		p := baseLayer(0)
		p.Kdir = d
		l, err := NewLayer(p)
		if err != nil {
			t.Fatalf("NewLayer(%v): %v", d, err)
		}
		if math.Abs(l.Kdir.Norm()-1) > 1e-6 {
			t.Errorf("|Kdir| = %v for input %v", l.Kdir.Norm(), d)
		}
	}
}

func TestNewLayer_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Layer)
	}{
		{"zero Ms", func(l *Layer) { l.Ms = 0 }},
		{"zero thickness", func(l *Layer) { l.Thickness = 0 }},
		{"negative alpha", func(l *Layer) { l.Alpha = -0.1 }},
		{"zero Kdir with Ku", func(l *Layer) { l.Kdir = vecmath.Vec3{} }},
		{"NaN demag", func(l *Layer) { l.Demag = vecmath.New(math.NaN(), 0, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseLayer(0)
			tt.mutate(&p)
			_, err := NewLayer(p)
			if !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestNewLayer_ZeroKdirWithoutAnisotropy(t *testing.T) {
	p := baseLayer(0)
	p.Ku = 0
	p.Kdir = vecmath.Vec3{}
	l, err := NewLayer(p)
	if err != nil {
		t.Fatal(err)
	}
	if l.Kdir != vecmath.New(0, 0, 1) {
		t.Errorf("Kdir = %v, want [0 0 1]", l.Kdir)
	}
}

func TestNewStack(t *testing.T) {
	s, err := NewStack([]Layer{baseLayer(1), baseLayer(0), baseLayer(2)})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < s.Len(); i++ {
		if s.Layer(i).ID != i {
			t.Errorf("layer %d has id %d", i, s.Layer(i).ID)
		}
	}
	if s.GMR() != DefaultGMR {
		t.Errorf("GMR = %+v, want default", s.GMR())
	}

	if _, err := NewStack(nil); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Error("empty stack should fail")
	}
	if _, err := NewStack([]Layer{baseLayer(0), baseLayer(2)}); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Error("gap in ids should fail")
	}
}

func TestStack_Topology(t *testing.T) {
	layers := []Layer{baseLayer(0), baseLayer(1), baseLayer(2)}
	layers[0].J = -1e-3
	layers[1].J = 2e-3
	layers[1].J2 = 5e-4
	layers[2].J = 99 // top layer, no partner
	s, err := NewStack(layers, WithGMR(GMR{RP: 10, RAP: 12}))
	if err != nil {
		t.Fatal(err)
	}

	if lo, up := s.Neighbors(0); lo != -1 || up != 1 {
		t.Errorf("Neighbors(0) = %d,%d", lo, up)
	}
	if lo, up := s.Neighbors(2); lo != 1 || up != -1 {
		t.Errorf("Neighbors(2) = %d,%d", lo, up)
	}
	if j, _ := s.Coupling(1, 0); j != -1e-3 {
		t.Errorf("Coupling(1,0) J = %g", j)
	}
	if j, j2 := s.Coupling(1, 2); j != 2e-3 || j2 != 5e-4 {
		t.Errorf("Coupling(1,2) = %g,%g", j, j2)
	}
	if j, _ := s.Coupling(2, -1); j != 0 {
		t.Errorf("missing neighbour coupling = %g", j)
	}
	if s.GMR().RAP != 12 {
		t.Error("WithGMR not applied")
	}
}

func TestStack_Weights(t *testing.T) {
	a := baseLayer(0)
	b := baseLayer(1)
	b.Thickness = 3e-9
	s, err := NewStack([]Layer{a, b})
	if err != nil {
		t.Fatal(err)
	}
	w := s.MomentWeights()
	if math.Abs(w[0]-0.25) > 1e-12 || math.Abs(w[1]-0.75) > 1e-12 {
		t.Errorf("weights = %v", w)
	}
	avg := s.Average([]vecmath.Vec3{vecmath.New(1, 0, 0), vecmath.New(0, 1, 0)})
	if math.Abs(avg.X-0.25) > 1e-12 || math.Abs(avg.Y-0.75) > 1e-12 {
		t.Errorf("Average = %v", avg)
	}

	m := s.Uniform(vecmath.Vec3{})
	if m[0] != vecmath.New(0, 0, 1) {
		t.Errorf("Uniform(0) should fall back to Kdir, got %v", m[0])
	}
	m = s.Uniform(vecmath.New(2, 0, 0))
	if m[1] != vecmath.New(1, 0, 0) {
		t.Errorf("Uniform along x = %v", m[1])
	}
}

func TestLayers_ReturnsCopy(t *testing.T) {
	s, _ := NewStack([]Layer{baseLayer(0)})
	ls := s.Layers()
	ls[0].Ms = 99
	if s.Layer(0).Ms == 99 {
		t.Error("Layers() leaked internal slice")
	}
}

func TestLayerYAMLDefaults(t *testing.T) {
	var l Layer
	src := "id: 1\nms: 1.2\nthickness: 1e-9\nkdir: \"[0 0 1]\"\n"
	if err := yaml.Unmarshal([]byte(src), &l); err != nil {
		t.Fatal(err)
	}
	if l.Hoe != 1 {
		t.Errorf("Hoe = %g, want default 1", l.Hoe)
	}
	if l.ID != 1 || l.Ms != 1.2 || l.Kdir.Z != 1 {
		t.Errorf("decoded %+v", l)
	}

	if err := yaml.Unmarshal([]byte("id: 0\nhoe: 0\n"), &l); err != nil {
		t.Fatal(err)
	}
	if l.Hoe != 0 {
		t.Errorf("explicit hoe: 0 should be kept, got %g", l.Hoe)
	}
}
