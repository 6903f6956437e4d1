package octree

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nvr-ai/go-pixel/colors"
)

// DrawQuantizer adapts the octree to image/draw.Quantizer so it can drive
// paletted encoders such as image/gif.
type DrawQuantizer struct {
	// Size is the palette size used when the palette passed to Quantize has
	// no spare capacity. Zero means 256.
	Size int
}

var _ draw.Quantizer = DrawQuantizer{}

// Quantize appends up to cap(p)-len(p) colors to p. Fully transparent pixels
// are ignored.
func (d DrawQuantizer) Quantize(p color.Palette, m image.Image) color.Palette {
	target := cap(p) - len(p)
	if target <= 0 {
		target = d.Size
		if target <= 0 {
			target = 256
		}
	}

	q := New()
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			_ = q.AddColor(colors.RGB{R: c.R, G: c.G, B: c.B})
		}
	}

	palette, err := q.MakePalette(target)
	if err != nil {
		return p
	}
	for _, c := range palette {
		p = append(p, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
	}
	return p
}
