// Package vecmath provides the 3-vector value type used for magnetization,
// fields and tensor diagonals throughout the solver.
package vecmath

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vec3 is a double-precision 3-vector. The zero value is the zero vector.
type Vec3 struct {
	X, Y, Z float64
}

func New(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// FromSlice reads the first three components of s.
func FromSlice(s []float64) Vec3 {
	return Vec3{X: s[0], Y: s[1], Z: s[2]}
}

// FromSpherical builds r·(sinθcosφ, sinθsinφ, cosθ) with angles in degrees.
func FromSpherical(r, thetaDeg, phiDeg float64) Vec3 {
	theta := thetaDeg * math.Pi / 180
	phi := phiDeg * math.Pi / 180
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return Vec3{X: r * st * cp, Y: r * st * sp, Z: r * ct}
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v.X * f, v.Y * f, v.Z * f}
}
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

// Mul is the component-wise product, used for diagonal tensors.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns the unit vector along v. The zero vector is returned
// unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

// IsFinite reports whether no component is NaN or Inf.
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Component returns the i-th component (0=x, 1=y, 2=z).
func (v Vec3) Component(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// DominantAxis returns the index of the component with the largest magnitude,
// the first one on ties.
func (v Vec3) DominantAxis() int {
	axis, best := 0, math.Abs(v.X)
	if a := math.Abs(v.Y); a > best {
		axis, best = 1, a
	}
	if a := math.Abs(v.Z); a > best {
		axis = 2
	}
	return axis
}

func (v Vec3) Slice() []float64 { return []float64{v.X, v.Y, v.Z} }

// String encodes v the way parameter tables do: "[x y z]".
func (v Vec3) String() string {
	return "[" + fmtFloat(v.X) + " " + fmtFloat(v.Y) + " " + fmtFloat(v.Z) + "]"
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// Parse decodes a bracketed triple such as "[1 0 0]". Commas are accepted as
// separators as well.
func Parse(s string) (Vec3, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	fields := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(fields) != 3 {
		return Vec3{}, fmt.Errorf("vector %q: expected 3 components, got %d", s, len(fields))
	}
	var out [3]float64
	for i, f := range fields {
		val, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("vector %q: %w", s, err)
		}
		out[i] = val
	}
	return Vec3{out[0], out[1], out[2]}, nil
}

// UnmarshalYAML accepts either a sequence [x, y, z] or a string "[x y z]".
func (v *Vec3) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := Parse(node.Value)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	}
	var xs []float64
	if err := node.Decode(&xs); err != nil {
		return err
	}
	if len(xs) != 3 {
		return fmt.Errorf("line %d: expected 3 components, got %d", node.Line, len(xs))
	}
	*v = FromSlice(xs)
	return nil
}

func (v Vec3) MarshalYAML() (interface{}, error) {
	return []float64{v.X, v.Y, v.Z}, nil
}

func (v Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{v.X, v.Y, v.Z})
}

func (v *Vec3) UnmarshalJSON(data []byte) error {
	var xs [3]float64
	if err := json.Unmarshal(data, &xs); err != nil {
		return err
	}
	*v = Vec3{xs[0], xs[1], xs[2]}
	return nil
}
