package vmath

// Vec3 is a plain 3-component vector. Values, not pointers, are passed around;
// components mutate their own fields in place.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func One() Vec3 { return Vec3{1, 1, 1} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mul is the component-wise product.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// InBox reports whether v lies inside the axis-aligned box centered at c with
// full extent size. Bounds are inclusive.
func (v Vec3) InBox(c, size Vec3) bool {
	hx, hy, hz := size.X/2, size.Y/2, size.Z/2
	return v.X >= c.X-hx && v.X <= c.X+hx &&
		v.Y >= c.Y-hy && v.Y <= c.Y+hy &&
		v.Z >= c.Z-hz && v.Z <= c.Z+hz
}
