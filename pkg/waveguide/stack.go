package waveguide

import (
	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// Section is one layer of a waveguide cross-section: a strip of Width
// centered Offset to the left of the shared centerline.
type Section struct {
	Layer  layout.Layer
	Width  Width
	Offset float64
}

// Stack outlines every section along the same centerline, in order.
// Nothing is returned unless every section succeeds.
func Stack(path geom.Path, sections []Section, opts Options) ([]layout.Shape, error) {
	if len(sections) == 0 {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "waveguide stack has no sections")
	}
	out := make([]layout.Shape, 0, len(sections))
	for i, sec := range sections {
		poly, err := Offset(path, sec.Offset, sec.Width, opts)
		if err != nil {
			return nil, pdkerr.Wrap(pdkerr.GetCode(err), err, "section %d on %s", i, sec.Layer)
		}
		out = append(out, layout.Shape{Layer: sec.Layer, Polygon: poly})
	}
	return out, nil
}

// DrawStack outlines the sections and inserts them into cell.
func DrawStack(cell layout.Cell, path geom.Path, sections []Section, opts Options) ([]layout.Shape, error) {
	shapes, err := Stack(path, sections, opts)
	if err != nil {
		return nil, err
	}
	for _, s := range shapes {
		if err := cell.InsertPolygon(s.Layer, s.Polygon); err != nil {
			return nil, err
		}
	}
	return shapes, nil
}
