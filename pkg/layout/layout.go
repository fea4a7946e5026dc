// Package layout defines the capability interface between the cell
// engine and a layout database. Implementations (memory, sdfx) store
// polygons and cell references behind this interface so the engine never
// depends on a concrete layout tool.
package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/siphon/pkg/geom"
)

// Layer identifies a mask layer by GDS-style number and datatype.
type Layer struct {
	Number   int
	Datatype int
}

func (l Layer) String() string {
	return fmt.Sprintf("%d/%d", l.Number, l.Datatype)
}

// ParseLayer parses "number/datatype"; a bare number means datatype 0.
func ParseLayer(s string) (Layer, error) {
	num, dt, found := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.Atoi(num)
	if err != nil {
		return Layer{}, fmt.Errorf("layer %q: bad number: %w", s, err)
	}
	l := Layer{Number: n}
	if found {
		if l.Datatype, err = strconv.Atoi(dt); err != nil {
			return Layer{}, fmt.Errorf("layer %q: bad datatype: %w", s, err)
		}
	}
	if l.Number < 0 || l.Datatype < 0 {
		return Layer{}, fmt.Errorf("layer %q: negative component", s)
	}
	return l, nil
}

// Shape is a polygon on a layer.
type Shape struct {
	Layer   Layer
	Polygon geom.Polygon
}

// Ref is a placement of a child cell inside a parent.
type Ref struct {
	Cell      Cell
	Transform geom.Transform
}

// Cell is a named container of shapes and child references.
type Cell interface {
	Name() string

	// InsertPolygon adds a polygon on layer. Polygons need at least
	// three vertices.
	InsertPolygon(layer Layer, poly geom.Polygon) error

	// InsertCell references child with the given placement transform.
	// The child is shared, not copied.
	InsertCell(child Cell, t geom.Transform) error

	// Shapes returns the polygons inserted directly into this cell.
	Shapes() []Shape

	// Refs returns the child placements in insertion order.
	Refs() []Ref
}

// Backend creates cells.
type Backend interface {
	NewCell(name string) Cell
}

// Discarder is implemented by backends that track the cells they create.
// Discard forgets a cell that was never completed, such as the target of
// a failed draw.
type Discarder interface {
	Discard(c Cell)
}
