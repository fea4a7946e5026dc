package export

import (
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/pdkerr"
)

// maxPixels bounds the raster size of a PNG preview.
const maxPixels = 1 << 26

// PNG rasterizes cell onto a white background, one colour per layer.
func PNG(w io.Writer, cell layout.Cell, opts Options) error {
	img, err := Raster(cell, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Raster renders cell into an image with opts.Scale pixels per unit.
func Raster(cell layout.Cell, opts Options) (*image.NRGBA, error) {
	d, err := Flatten(cell, opts)
	if err != nil {
		return nil, err
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultOptions().Scale
	}
	width := int(math.Ceil(d.Bounds.Width() * scale))
	height := int(math.Ceil(d.Bounds.Height() * scale))
	if width <= 0 || height <= 0 || width*height > maxPixels {
		return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "raster of %dx%d pixels is out of range; lower the scale", width, height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for i, l := range d.Layers {
		z := vector.NewRasterizer(width, height)
		z.DrawOp = draw.Over
		for _, p := range d.Polys[l] {
			for j, q := range p {
				x := float32((q.X - d.Bounds.Min.X) * scale)
				y := float32((d.Bounds.Max.Y - q.Y) * scale)
				if j == 0 {
					z.MoveTo(x, y)
				} else {
					z.LineTo(x, y)
				}
			}
			z.ClosePath()
		}
		z.Draw(img, img.Bounds(), image.NewUniform(layerColor(i)), image.Point{})
	}
	return img, nil
}
