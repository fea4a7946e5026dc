package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
)

// SVG writes cell as one even-odd filled path per layer, grouped by
// layer name. The y axis points up as in the layout.
func SVG(w io.Writer, cell layout.Cell, opts Options) error {
	d, err := Flatten(cell, opts)
	if err != nil {
		return err
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultOptions().Scale
	}
	width := int(math.Ceil(d.Bounds.Width() * scale))
	height := int(math.Ceil(d.Bounds.Height() * scale))

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title(cell.Name())
	for i, l := range d.Layers {
		c := layerColor(i)
		style := fmt.Sprintf("fill:#%02x%02x%02x;fill-opacity:%.2f;fill-rule:evenodd;stroke:none",
			c.R, c.G, c.B, float64(c.A)/255)
		canvas.Gid(opts.name(l))
		canvas.Path(pathData(d.Polys[l], d.Bounds, scale), style)
		canvas.Gend()
	}
	canvas.End()
	return nil
}

// pathData maps polygons into SVG user space: origin at the top left of
// bounds, y flipped.
func pathData(polys []geom.Polygon, bounds geom.Rect, scale float64) string {
	var b strings.Builder
	for _, p := range polys {
		for i, q := range p {
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&b, "%s%.3f %.3f ", cmd, (q.X-bounds.Min.X)*scale, (bounds.Max.Y-q.Y)*scale)
		}
		b.WriteString("Z ")
	}
	return strings.TrimSpace(b.String())
}
