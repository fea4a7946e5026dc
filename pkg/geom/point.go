// Package geom holds the 2D primitives shared by the layout engine:
// points, rigid transforms, paths, polygons and arc sampling.
//
// Coordinates are float64 in layout units (microns by convention).
// Angles are in degrees, counter-clockwise from +x.
package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the coincidence tolerance used for point comparisons.
const Epsilon = 1e-9

// Point is a 2D point or vector.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }
func (p Point) Norm() float64 { return math.Hypot(p.X, p.Y) }
func (p Point) Dist(q Point) float64 { return p.Sub(q).Norm() }
func (p Point) Neg() Point { return Point{-p.X, -p.Y} }
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Rot90 rotates the vector 90 degrees counter-clockwise.
func (p Point) Rot90() Point {
	return Point{-p.Y, p.X}
}

// Normalize returns the unit vector along p. The zero vector is returned
// unchanged.
func (p Point) Normalize() Point {
	n := p.Norm()
	if n == 0 {
		return p
	}
	return Point{p.X / n, p.Y / n}
}

// Rotate rotates the vector counter-clockwise by deg degrees about the origin.
func (p Point) Rotate(deg float64) Point {
	return fromVec(rotation(deg).Mul2x1(p.vec()))
}

// Eq reports whether p and q coincide within eps.
func (p Point) Eq(q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

// Angle returns the direction of the vector in degrees, in [0, 360).
func (p Point) Angle() float64 {
	return NormalizeAngle(mgl64.RadToDeg(math.Atan2(p.Y, p.X)))
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

func (p Point) vec() mgl64.Vec2 { return mgl64.Vec2{p.X, p.Y} }

func fromVec(v mgl64.Vec2) Point { return Point{v[0], v[1]} }

// Dir returns the unit vector pointing at deg degrees.
func Dir(deg float64) Point {
	return Point{1, 0}.Rotate(deg)
}

// NormalizeAngle maps deg into [0, 360).
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360-1e-12 {
		a = 0
	}
	return a
}

// rotation returns the 2x2 rotation matrix for deg degrees. Quarter turns
// are exact so Manhattan geometry stays on the grid.
func rotation(deg float64) mgl64.Mat2 {
	a := NormalizeAngle(deg)
	if q := a / 90; q == math.Trunc(q) {
		switch int(q) {
		case 0:
			return mgl64.Ident2()
		case 1:
			return mgl64.Mat2{0, 1, -1, 0}
		case 2:
			return mgl64.Mat2{-1, 0, 0, -1}
		case 3:
			return mgl64.Mat2{0, -1, 1, 0}
		}
	}
	return mgl64.Rotate2D(mgl64.DegToRad(a))
}
