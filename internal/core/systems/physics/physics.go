package physics

import "math"

// Vec3 is a 3D vector value.
type Vec3 struct {
	X float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y float64 `json:"y" yaml:"y" mapstructure:"y"`
	Z float64 `json:"z" yaml:"z" mapstructure:"z"`
}

func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3         { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3         { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(k float64) Vec3    { return Vec3{v.X * k, v.Y * k, v.Z * k} }
func (v Vec3) Length() float64         { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }
func (v Vec3) IsZero() bool            { return v.X == 0 && v.Y == 0 && v.Z == 0 }
func (v Vec3) Distance(o Vec3) float64 { return o.Sub(v).Length() }

// Normalized returns the unit vector of v, or the zero vector when v has no length.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Transform3D is a plain in-memory Transform.
type Transform3D struct {
	Pos     Vec3
	Heading float64
}

var _ Transform = (*Transform3D)(nil)

func NewTransform(pos Vec3) *Transform3D { return &Transform3D{Pos: pos} }

func (t *Transform3D) Position() Vec3     { return t.Pos }
func (t *Transform3D) SetPosition(p Vec3) { t.Pos = p }
func (t *Transform3D) Yaw() float64       { return t.Heading }
func (t *Transform3D) SetYaw(yaw float64) { t.Heading = NormalizeAngle(yaw) }

// YawOf returns the heading that faces along dir on the XZ plane.
func YawOf(dir Vec3) float64 { return math.Atan2(dir.X, dir.Z) }

// NormalizeAngle wraps a to (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// LerpAngle interpolates from a to b along the shortest arc. t is clamped to [0, 1].
func LerpAngle(a, b, t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	return NormalizeAngle(a + NormalizeAngle(b-a)*t)
}
