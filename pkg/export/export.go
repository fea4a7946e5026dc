// Package export writes flattened layout cells to SVG, PNG and DXF.
package export

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// Options control what is exported and at which resolution.
type Options struct {
	// Merge unions overlapping polygons of each layer before writing.
	Merge bool

	// Scale is output units per layout unit: SVG user units or PNG
	// pixels. DXF is always written in layout units.
	Scale float64

	// Margin is added around the bounding box, in layout units.
	Margin float64

	// LayerName names a layer in the output. Nil prints number/datatype.
	LayerName func(layout.Layer) (string, bool)
}

// DefaultOptions returns unmerged output at 10 units per micron with a
// 5 micron margin.
func DefaultOptions() Options {
	return Options{Scale: 10, Margin: 5}
}

func (o Options) name(l layout.Layer) string {
	if o.LayerName != nil {
		if n, ok := o.LayerName(l); ok {
			return n
		}
	}
	return strings.Replace(l.String(), "/", "_", 1)
}

// Drawing is a cell flattened into per-layer polygons.
type Drawing struct {
	Layers []layout.Layer
	Polys  map[layout.Layer][]geom.Polygon
	Bounds geom.Rect
}

// Flatten collects the geometry of cell, merged per layer when
// opts.Merge is set.
func Flatten(cell layout.Cell, opts Options) (*Drawing, error) {
	shapes, err := layout.Flatten(cell)
	if err != nil {
		return nil, err
	}
	if len(shapes) == 0 {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "cell %q has no geometry to export", cell.Name())
	}
	var polys map[layout.Layer][]geom.Polygon
	if opts.Merge {
		polys = layout.Merge(shapes)
	} else {
		polys = layout.ByLayer(shapes)
	}
	bounds := geom.EmptyRect()
	for _, ps := range polys {
		for _, p := range ps {
			bounds = bounds.Extend(p.BBox())
		}
	}
	m := opts.Margin
	bounds.Min = bounds.Min.Sub(geom.Pt(m, m))
	bounds.Max = bounds.Max.Add(geom.Pt(m, m))
	return &Drawing{Layers: layout.SortedLayers(polys), Polys: polys, Bounds: bounds}, nil
}

// File writes cell to path in the format named by its extension:
// .svg, .png or .dxf.
func File(path string, cell layout.Cell, opts Options) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".dxf" {
		return DXF(path, cell, opts)
	}
	var write func(*os.File) error
	switch ext {
	case ".svg":
		write = func(f *os.File) error { return SVG(f, cell, opts) }
	case ".png":
		write = func(f *os.File) error { return PNG(f, cell, opts) }
	default:
		return pdkerr.New(pdkerr.CodeInvalidArgument, "unsupported export format %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// palette holds fill colours cycled through by layer order.
var palette = []color.NRGBA{
	{0x1f, 0x77, 0xb4, 0xb0},
	{0xff, 0x7f, 0x0e, 0xb0},
	{0x2c, 0xa0, 0x2c, 0xb0},
	{0xd6, 0x27, 0x28, 0xb0},
	{0x94, 0x67, 0xbd, 0xb0},
	{0x8c, 0x56, 0x4b, 0xb0},
	{0xe3, 0x77, 0xc2, 0xb0},
	{0x7f, 0x7f, 0x7f, 0xb0},
}

func layerColor(i int) color.NRGBA {
	return palette[i%len(palette)]
}
