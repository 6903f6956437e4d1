package images

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/colors"
	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/parallel"
)

// ErrInvalidBlockSize is returned by Pixelate for block sizes below 1.
var ErrInvalidBlockSize = errors.New("images: block size must be >= 1")

// Mapper maps a color to its palette representative. Implementations must be
// safe for concurrent use.
type Mapper interface {
	Map(c colors.RGB) colors.RGB
}

// ColorSink accepts colors one at a time, e.g. an octree quantizer.
type ColorSink interface {
	AddColor(c colors.RGB) error
}

// ApplyPalette replaces the color of every pixel with m.Map of it. Alpha is
// kept.
func ApplyPalette(f *Frame, m Mapper, pool *parallel.Pool) error {
	return ApplyPaletteSplit(f, m, -1, pool)
}

// ApplyPaletteSplit recolors only pixels in columns strictly greater than
// xLimit, leaving the left part untouched for side-by-side comparison. A
// negative xLimit recolors the whole frame.
func ApplyPaletteSplit(f *Frame, m Mapper, xLimit int, pool *parallel.Pool) error {
	if err := f.Validate(); err != nil {
		return err
	}
	start := xLimit + 1
	if start < 0 {
		start = 0
	}
	if start >= f.Width {
		return nil
	}

	pool.Rows(f.Height, func(from, to int) {
		for y := from; y < to; y++ {
			for x := start; x < f.Width; x++ {
				off := f.Offset(x, y)
				c := pixelAt(f.Pix, off)
				setPixel(f.Pix, off, m.Map(c.RGB()).RGBA(c.A))
			}
		}
	})
	return nil
}

// DarkenEdges paints c over every pixel whose mask value is above zero.
//
// Arguments:
//   - f: The frame to paint into.
//   - mask: An edge mask with the frame's geometry.
//   - c: The overlay color, typically colors.Black.
//   - pool: The worker pool, nil runs inline.
func DarkenEdges(f *Frame, mask *grid.Grid[float32], c colors.RGBA, pool *parallel.Pool) error {
	if err := checkGrid(f, mask.Rows(), mask.Cols()); err != nil {
		return err
	}
	pool.Rows(f.Height, func(from, to int) {
		for y := from; y < to; y++ {
			off := f.Offset(0, y)
			for x, v := range mask.Row(y) {
				if v > 0 {
					setPixel(f.Pix, off+x*BytesPerPixel, c)
				}
			}
		}
	})
	return nil
}

// BoostSaturation scales the HSV saturation of every pixel by factor.
// A factor of 1 leaves the frame unchanged.
func BoostSaturation(f *Frame, factor float64, pool *parallel.Pool) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if factor == 1 {
		return nil
	}
	pool.Rows(f.Height, func(from, to int) {
		for i := f.Offset(0, from); i < f.Offset(0, to); i += BytesPerPixel {
			c := pixelAt(f.Pix, i)
			setPixel(f.Pix, i, colors.BoostSaturation(c.RGB(), factor).RGBA(c.A))
		}
	})
	return nil
}

// Pixelate replaces every size x size block with its mean color. Blocks at
// the right and bottom edges are clipped to the frame. Alpha is kept per
// pixel.
func Pixelate(f *Frame, size int, pool *parallel.Pool) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if size < 1 {
		return errors.Wrapf(ErrInvalidBlockSize, "got %d", size)
	}
	if size == 1 {
		return nil
	}

	blockRows := (f.Height + size - 1) / size
	pool.Rows(blockRows, func(from, to int) {
		for by := from; by < to; by++ {
			y0, y1 := by*size, min((by+1)*size, f.Height)
			for x0 := 0; x0 < f.Width; x0 += size {
				x1 := min(x0+size, f.Width)

				var sum colors.Sum
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						sum.Add(pixelAt(f.Pix, f.Offset(x, y)).RGB())
					}
				}
				mean := sum.Mean(uint64((y1 - y0) * (x1 - x0)))

				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						off := f.Offset(x, y)
						setPixel(f.Pix, off, mean.RGBA(f.Pix[off+3]))
					}
				}
			}
		}
	})
	return nil
}

// FeedQuantizer adds every pixel of the frame to sink and stops at the first
// error.
func FeedQuantizer(f *Frame, sink ColorSink) error {
	if err := f.Validate(); err != nil {
		return err
	}
	for i := 0; i < len(f.Pix); i += BytesPerPixel {
		if err := sink.AddColor(pixelAt(f.Pix, i).RGB()); err != nil {
			return errors.Wrapf(err, "pixel %d", i/BytesPerPixel)
		}
	}
	return nil
}
