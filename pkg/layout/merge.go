package layout

import (
	"sort"

	"github.com/akavel/polyclip-go"

	"github.com/chazu/siphon/pkg/geom"
)

// Merge unions the polygons of each layer. The result contours follow
// the even-odd rule: a contour lying inside another is a hole.
func Merge(shapes []Shape) map[Layer][]geom.Polygon {
	out := make(map[Layer][]geom.Polygon)
	for layer, polys := range ByLayer(shapes) {
		var acc polyclip.Polygon
		for _, p := range polys {
			if len(p) < 3 {
				continue
			}
			next := polyclip.Polygon{toContour(p)}
			if acc == nil {
				acc = next
				continue
			}
			acc = acc.Construct(polyclip.UNION, next)
		}
		for _, c := range acc {
			if len(c) >= 3 {
				out[layer] = append(out[layer], fromContour(c))
			}
		}
	}
	return out
}

// SortedLayers returns the layers of m ordered by number then datatype.
func SortedLayers[V any](m map[Layer]V) []Layer {
	layers := make([]Layer, 0, len(m))
	for l := range m {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool {
		if layers[i].Number != layers[j].Number {
			return layers[i].Number < layers[j].Number
		}
		return layers[i].Datatype < layers[j].Datatype
	})
	return layers
}

func toContour(p geom.Polygon) polyclip.Contour {
	c := make(polyclip.Contour, len(p))
	for i, pt := range p {
		c[i] = polyclip.Point{X: pt.X, Y: pt.Y}
	}
	return c
}

func fromContour(c polyclip.Contour) geom.Polygon {
	p := make(geom.Polygon, len(c))
	for i, pt := range c {
		p[i] = geom.Point{X: pt.X, Y: pt.Y}
	}
	return p
}
