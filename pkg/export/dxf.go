package export

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/siphon/pkg/layout"
)

// DXF writes the outline of every polygon of cell to path as line
// segments in layout units. The sdfx writer has a single layer, so
// layers are flattened together.
func DXF(path string, cell layout.Cell, opts Options) error {
	d, err := Flatten(cell, opts)
	if err != nil {
		return err
	}
	var lines []*sdf.Line2
	for _, l := range d.Layers {
		for _, p := range d.Polys[l] {
			for i, a := range p {
				b := p[(i+1)%len(p)]
				lines = append(lines, &sdf.Line2{v2.Vec{X: a.X, Y: a.Y}, v2.Vec{X: b.X, Y: b.Y}})
			}
		}
	}
	out := render.NewDXF(path)
	out.Lines(lines)
	if err := out.Save(); err != nil {
		return fmt.Errorf("export: dxf %s: %w", path, err)
	}
	return nil
}
