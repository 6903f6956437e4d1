package images

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/colors"
	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/parallel"
)

// ToColorGrid copies the frame into a color grid of the same geometry.
//
// Arguments:
//   - f: The source frame.
//   - g: The destination grid, rows == f.Height and cols == f.Width.
//   - pool: The worker pool, nil runs inline.
//
// Returns:
//   - ErrFrameSize if the geometries differ.
func ToColorGrid(f *Frame, g *grid.Grid[colors.RGBA], pool *parallel.Pool) error {
	if err := checkGrid(f, g.Rows(), g.Cols()); err != nil {
		return err
	}
	pool.Rows(f.Height, func(from, to int) {
		for y := from; y < to; y++ {
			row := g.Row(y)
			off := f.Offset(0, y)
			for x := range row {
				row[x] = pixelAt(f.Pix, off+x*BytesPerPixel)
			}
		}
	})
	return nil
}

// FromColorGrid writes a color grid back into the frame.
func FromColorGrid(g *grid.Grid[colors.RGBA], f *Frame, pool *parallel.Pool) error {
	if err := checkGrid(f, g.Rows(), g.Cols()); err != nil {
		return err
	}
	pool.Rows(f.Height, func(from, to int) {
		for y := from; y < to; y++ {
			row := g.Row(y)
			off := f.Offset(0, y)
			for x, c := range row {
				setPixel(f.Pix, off+x*BytesPerPixel, c)
			}
		}
	})
	return nil
}

// ToGray converts the frame to luminance with BT.601 weights. Alpha is
// ignored.
func ToGray(f *Frame, g *grid.Grid[float32], pool *parallel.Pool) error {
	if err := checkGrid(f, g.Rows(), g.Cols()); err != nil {
		return err
	}
	pool.Rows(f.Height, func(from, to int) {
		for y := from; y < to; y++ {
			row := g.Row(y)
			p := f.Pix[f.Offset(0, y):f.Offset(0, y+1)]
			for x := range row {
				i := x * BytesPerPixel
				row[x] = colors.LumaR*float32(p[i]) + colors.LumaG*float32(p[i+1]) + colors.LumaB*float32(p[i+2])
			}
		}
	})
	return nil
}

// FillGray writes gray values as opaque pixels (v, v, v, 255). Values are
// rounded and clamped to [0, 255].
func FillGray(g *grid.Grid[float32], f *Frame, pool *parallel.Pool) error {
	if err := checkGrid(f, g.Rows(), g.Cols()); err != nil {
		return err
	}
	pool.Rows(f.Height, func(from, to int) {
		for y := from; y < to; y++ {
			row := g.Row(y)
			off := f.Offset(0, y)
			for x, v := range row {
				c := colors.Clamp8(v)
				setPixel(f.Pix, off+x*BytesPerPixel, colors.RGBA{R: c, G: c, B: c, A: 255})
			}
		}
	})
	return nil
}

func checkGrid(f *Frame, rows, cols int) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if rows != f.Height || cols != f.Width {
		return errors.Wrapf(ErrFrameSize, "grid %dx%d for frame %dx%d", rows, cols, f.Height, f.Width)
	}
	return nil
}
