package kernels

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/parallel"
)

// ErrInvalidWindow is returned for median windows that are not odd and positive.
var ErrInvalidWindow = errors.New("kernels: median window must be odd and >= 1")

// Median replaces every cell with the median of the window x window
// neighborhood around it. Near the border the window is clipped to the grid,
// so no padding is assumed. When a clipped window holds an even number of
// samples the upper middle value is used. dst must not alias src.
func Median[T grid.Number](src, dst *grid.Grid[T], window int, pool *parallel.Pool) error {
	if window < 1 || window%2 == 0 {
		return errors.Wrapf(ErrInvalidWindow, "window %d", window)
	}
	if src == dst {
		return errors.Wrap(grid.ErrAliased, "median")
	}
	if !src.SameShape(dst) {
		return errors.Wrapf(grid.ErrShapeMismatch, "%v vs %v", src, dst)
	}

	r := window / 2
	rows, cols := src.Rows(), src.Cols()

	pool.Rows(rows, func(from, to int) {
		buf := make([]T, 0, window*window)
		for y := from; y < to; y++ {
			y0, y1 := max(y-r, 0), min(y+r, rows-1)
			out := dst.Row(y)
			for x := 0; x < cols; x++ {
				x0, x1 := max(x-r, 0), min(x+r, cols-1)
				buf = buf[:0]
				for yy := y0; yy <= y1; yy++ {
					buf = append(buf, src.Row(yy)[x0:x1+1]...)
				}
				slices.Sort(buf)
				out[x] = buf[len(buf)/2]
			}
		}
	})
	return nil
}
