package geom

import "fmt"

// Transform is a rigid 2D transform: optional mirror about the x axis,
// then a counter-clockwise rotation in degrees, then a translation.
// The zero value is the identity.
type Transform struct {
	Rotation float64
	Mirror   bool
	Offset   Point
}

// Identity returns the identity transform.
func Identity() Transform { return Transform{} }

// Translate returns a pure translation.
func Translate(dx, dy float64) Transform {
	return Transform{Offset: Point{dx, dy}}
}

// Rotate returns a pure rotation about the origin.
func Rotate(deg float64) Transform {
	return Transform{Rotation: NormalizeAngle(deg)}
}

// Apply maps a point through the transform.
func (t Transform) Apply(p Point) Point {
	return t.ApplyVector(p).Add(t.Offset)
}

// ApplyVector maps a direction, ignoring the translation.
func (t Transform) ApplyVector(v Point) Point {
	if t.Mirror {
		v.Y = -v.Y
	}
	return fromVec(rotation(t.Rotation).Mul2x1(v.vec()))
}

// ApplyAngle maps an orientation in degrees.
func (t Transform) ApplyAngle(deg float64) float64 {
	if t.Mirror {
		deg = -deg
	}
	return NormalizeAngle(deg + t.Rotation)
}

// Compose returns the transform equivalent to applying u first, then t.
func (t Transform) Compose(u Transform) Transform {
	rot := u.Rotation
	if t.Mirror {
		rot = -rot
	}
	return Transform{
		Rotation: NormalizeAngle(t.Rotation + rot),
		Mirror:   t.Mirror != u.Mirror,
		Offset:   t.Apply(u.Offset),
	}
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	inv := Transform{Mirror: t.Mirror}
	if t.Mirror {
		// M R(r) is an involution up to its offset.
		inv.Rotation = NormalizeAngle(t.Rotation)
	} else {
		inv.Rotation = NormalizeAngle(-t.Rotation)
	}
	inv.Offset = inv.ApplyVector(t.Offset.Neg())
	return inv
}

// IsIdentity reports whether t leaves every point in place.
func (t Transform) IsIdentity() bool {
	return !t.Mirror && NormalizeAngle(t.Rotation) == 0 && t.Offset == (Point{})
}

func (t Transform) String() string {
	m := ""
	if t.Mirror {
		m = " mirror"
	}
	return fmt.Sprintf("r%g%s %v", t.Rotation, m, t.Offset)
}
