package geom

import (
	"math"
)

// Polygon is a closed simple polygon given by its vertices; the closing
// edge from the last vertex back to the first is implicit.
type Polygon []Point

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min, Max Point
}

// EmptyRect returns a rect that any Extend call replaces.
func EmptyRect() Rect {
	return Rect{
		Min: Point{math.Inf(1), math.Inf(1)},
		Max: Point{math.Inf(-1), math.Inf(-1)},
	}
}

// Empty reports whether r contains no points.
func (r Rect) Empty() bool {
	return r.Min.X > r.Max.X || r.Min.Y > r.Max.Y
}

// Width and Height of the box.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of the box.
func (r Rect) Center() Point { return r.Min.Lerp(r.Max, 0.5) }

// ExtendPoint grows r to contain p.
func (r Rect) ExtendPoint(p Point) Rect {
	return Rect{
		Min: Point{math.Min(r.Min.X, p.X), math.Min(r.Min.Y, p.Y)},
		Max: Point{math.Max(r.Max.X, p.X), math.Max(r.Max.Y, p.Y)},
	}
}

// Extend grows r to contain o.
func (r Rect) Extend(o Rect) Rect {
	if o.Empty() {
		return r
	}
	return r.ExtendPoint(o.Min).ExtendPoint(o.Max)
}

// Contains reports whether p lies inside r, boundary included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Area returns the signed area; positive for counter-clockwise winding.
func (pg Polygon) Area() float64 {
	var a float64
	for i := range pg {
		j := (i + 1) % len(pg)
		a += pg[i].Cross(pg[j])
	}
	return a / 2
}

// BBox returns the bounding box of the vertices.
func (pg Polygon) BBox() Rect {
	r := EmptyRect()
	for _, p := range pg {
		r = r.ExtendPoint(p)
	}
	return r
}

// Transform maps every vertex through t. Mirroring flips the winding, so
// the vertex order is reversed to keep the orientation of the input.
func (pg Polygon) Transform(t Transform) Polygon {
	out := make(Polygon, len(pg))
	for i, p := range pg {
		out[i] = t.Apply(p)
	}
	if t.Mirror {
		return out.Reverse()
	}
	return out
}

// Reverse returns the polygon with the opposite winding.
func (pg Polygon) Reverse() Polygon {
	out := make(Polygon, len(pg))
	for i, p := range pg {
		out[len(pg)-1-i] = p
	}
	return out
}

// Contains reports whether p is inside the polygon (even-odd rule).
func (pg Polygon) Contains(p Point) bool {
	in := false
	for i, j := 0, len(pg)-1; i < len(pg); j, i = i, i+1 {
		a, b := pg[i], pg[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// Rectangle returns an axis-aligned w x h rectangle centered on center,
// counter-clockwise from the lower-left corner.
func Rectangle(center Point, w, h float64) Polygon {
	hw, hh := w/2, h/2
	return Polygon{
		{center.X - hw, center.Y - hh},
		{center.X + hw, center.Y - hh},
		{center.X + hw, center.Y + hh},
		{center.X - hw, center.Y + hh},
	}
}

// Box returns the rectangle spanning two opposite corners.
func Box(a, b Point) Polygon {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Polygon{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
}

// Circle returns a polygonal approximation of a full circle.
func Circle(center Point, radius float64, opts ArcOptions) (Polygon, error) {
	pts, err := Arc(center, radius, 0, 0, CCW, opts)
	if err != nil {
		return nil, err
	}
	// The last point repeats the first.
	return Polygon(pts[:len(pts)-1]), nil
}
