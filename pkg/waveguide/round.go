package waveguide

import (
	"math"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// Round replaces every corner of a polyline with a circular arc of the
// given radius tangent to both segments. Straight-through vertices are
// dropped. Two arcs may not overlap on a shared segment, and a segment
// that doubles back on itself cannot be rounded.
func Round(path geom.Path, radius float64, arc geom.ArcOptions) (geom.Path, error) {
	if err := geom.ValidatePath(path); err != nil {
		return nil, err
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "bend radius must be positive, got %g", radius)
	}
	path = path.Simplify()
	n := len(path)

	// Tangent length of the fillet at each interior vertex.
	tan := make([]float64, n)
	for i := 1; i < n-1; i++ {
		u0 := path[i].Sub(path[i-1]).Normalize()
		u1 := path[i+1].Sub(path[i]).Normalize()
		cos := u0.Dot(u1)
		if cos <= -1+parallelEps {
			return nil, pdkerr.New(pdkerr.CodeDegeneratePath, "path reverses at %v", path[i])
		}
		theta := math.Acos(math.Max(-1, math.Min(1, cos)))
		tan[i] = radius * math.Tan(theta/2)
	}
	for i := 0; i < n-1; i++ {
		if l := path[i].Dist(path[i+1]); tan[i]+tan[i+1] > l+geom.Epsilon {
			return nil, pdkerr.New(pdkerr.CodeInvalidArgument,
				"segment %v-%v of length %g is too short for radius %g", path[i], path[i+1], l, radius)
		}
	}

	out := geom.Path{path[0]}
	push := func(p geom.Point) {
		if !out[len(out)-1].Eq(p, geom.Epsilon) {
			out = append(out, p)
		}
	}
	for i := 1; i < n-1; i++ {
		p := path[i]
		u0 := p.Sub(path[i-1]).Normalize()
		u1 := path[i+1].Sub(p).Normalize()
		a := p.Sub(u0.Scale(tan[i]))
		b := p.Add(u1.Scale(tan[i]))

		dir, toCenter := geom.CCW, u0.Rot90()
		if u0.Cross(u1) < 0 {
			dir, toCenter = geom.CW, toCenter.Neg()
		}
		c := a.Add(toCenter.Scale(radius))
		pts, err := geom.Arc(c, radius, a.Sub(c).Angle(), b.Sub(c).Angle(), dir, arc)
		if err != nil {
			return nil, err
		}
		pts[0], pts[len(pts)-1] = a, b
		for _, q := range pts {
			push(q)
		}
	}
	push(path[n-1])
	return out, nil
}
