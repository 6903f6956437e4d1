package grid

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/parallel"
)

// Number is the set of element types the numeric operations accept.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Options configures the numeric operations.
type Options struct {
	// Padding is the thickness of the replicated border the caller has
	// already written with PadBorders. Zero means the grid has no padding and
	// operations fall back to bounds-checked sampling.
	Padding int
	// Pool fans the operation out over row ranges. Nil runs inline.
	Pool *parallel.Pool
}

// Radius returns the half-extent of a kernel, max(rows, cols) / 2.
func Radius[T any](kernel *Grid[T]) int {
	r := kernel.rows
	if kernel.cols > r {
		r = kernel.cols
	}
	return r / 2
}

// Convolve correlates src with kernel into dst:
//
//	dst[y][x] = sum over (ky, kx) of src[y+ky-cy][x+kx-cx] * kernel[ky][kx]
//
// where (cy, cx) is the kernel's center. This equals textbook convolution with
// the kernel flipped on both axes. With opts.Padding > 0 only the interior
// [p, rows-p) x [p, cols-p) of dst is written and no bounds checks are made;
// the padding must be at least the kernel radius. With no padding every cell
// is written and taps outside the grid contribute zero.
func Convolve[T Number](src *Grid[T], kernel *Grid[float32], dst *Grid[T], opts Options) error {
	if src == dst {
		return errors.Wrap(ErrAliased, "convolve")
	}
	if !src.SameShape(dst) {
		return shapeError(src.rows, src.cols, dst.rows, dst.cols)
	}

	kr, kc := kernel.rows, kernel.cols
	cy, cx := kr/2, kc/2
	p := opts.Padding

	if p < 0 {
		return errors.Wrapf(ErrInvalidPadding, "padding %d", p)
	}

	if p > 0 {
		if p < cy || p < cx || 2*p >= src.rows || 2*p >= src.cols {
			return errors.Wrapf(ErrInvalidPadding, "padding %d for %dx%d kernel on %v", p, kr, kc, src)
		}
		opts.Pool.Rows(src.rows-2*p, func(from, to int) {
			for y := from + p; y < to+p; y++ {
				out := dst.Row(y)
				for x := p; x < src.cols-p; x++ {
					var acc float32
					for ky := 0; ky < kr; ky++ {
						base := (y+ky-cy)*src.cols + x - cx
						in := src.data[base : base+kc]
						w := kernel.data[ky*kc : ky*kc+kc]
						for kx := range w {
							acc += float32(in[kx]) * w[kx]
						}
					}
					out[x] = T(acc)
				}
			}
		})
		return nil
	}

	opts.Pool.Rows(src.rows, func(from, to int) {
		for y := from; y < to; y++ {
			out := dst.Row(y)
			for x := 0; x < src.cols; x++ {
				var acc float32
				for ky := 0; ky < kr; ky++ {
					sy := y + ky - cy
					if sy < 0 || sy >= src.rows {
						continue
					}
					for kx := 0; kx < kc; kx++ {
						sx := x + kx - cx
						if sx < 0 || sx >= src.cols {
							continue
						}
						acc += float32(src.data[sy*src.cols+sx]) * kernel.data[ky*kc+kx]
					}
				}
				out[x] = T(acc)
			}
		}
	})
	return nil
}

// Morph applies dilation (max) or erosion (min) of src by a structuring
// element into dst. Element cells that are non-zero take part. Cells closer
// to the border than the element radius are set to zero.
func Morph[T Number](src *Grid[T], element *Grid[float32], dilate bool, dst *Grid[T], opts Options) error {
	if src == dst {
		return errors.Wrap(ErrAliased, "morph")
	}
	if !src.SameShape(dst) {
		return shapeError(src.rows, src.cols, dst.rows, dst.cols)
	}

	ry, rx := element.rows/2, element.cols/2
	offsets := make([]int, 0, element.Len())
	for ky := 0; ky < element.rows; ky++ {
		for kx := 0; kx < element.cols; kx++ {
			if element.data[ky*element.cols+kx] != 0 {
				offsets = append(offsets, (ky-ry)*src.cols+(kx-rx))
			}
		}
	}

	opts.Pool.Rows(src.rows, func(from, to int) {
		var zero T
		for y := from; y < to; y++ {
			out := dst.Row(y)
			if y < ry || y >= src.rows-ry {
				for x := range out {
					out[x] = zero
				}
				continue
			}
			for x := 0; x < src.cols; x++ {
				if x < rx || x >= src.cols-rx || len(offsets) == 0 {
					out[x] = zero
					continue
				}
				i := y*src.cols + x
				best := src.data[i+offsets[0]]
				for _, o := range offsets[1:] {
					v := src.data[i+o]
					if dilate && v > best || !dilate && v < best {
						best = v
					}
				}
				out[x] = best
			}
		}
	})
	return nil
}

// MinMax returns the smallest and largest values in a single pass.
// An empty grid yields two zero values.
func MinMax[T Number](g *Grid[T]) (T, T) {
	if len(g.data) == 0 {
		var zero T
		return zero, zero
	}
	mn, mx := g.data[0], g.data[0]
	for _, v := range g.data[1:] {
		if v < mn {
			mn = v
		} else if v > mx {
			mx = v
		}
	}
	return mn, mx
}

// Rescale linearly maps [min, max] of g onto [lo, hi] in place. When every
// value is equal the grid is left unchanged and ErrDegenerateRange returned.
func Rescale[T Number](g *Grid[T], lo, hi T, opts Options) error {
	mn, mx := MinMax(g)
	if mn == mx {
		return errors.Wrapf(ErrDegenerateRange, "all values equal %v", mn)
	}

	base := float64(mn)
	scale := (float64(hi) - float64(lo)) / (float64(mx) - base)
	out := float64(lo)

	opts.Pool.Rows(g.rows, func(from, to int) {
		data := g.data[from*g.cols : to*g.cols]
		for i, v := range data {
			data[i] = T(out + (float64(v)-base)*scale)
		}
	})
	return nil
}

// Threshold zeroes every value <= min + ratio*(max-min).
func Threshold[T Number](g *Grid[T], ratio float64, opts Options) {
	mn, mx := MinMax(g)
	cut := float64(mn) + ratio*(float64(mx)-float64(mn))
	opts.Pool.Rows(g.rows, func(from, to int) {
		data := g.data[from*g.cols : to*g.cols]
		for i, v := range data {
			if float64(v) <= cut {
				data[i] = 0
			}
		}
	})
}

// Scale multiplies every value by f.
func Scale[T Number](g *Grid[T], f float64, opts Options) {
	opts.Pool.Rows(g.rows, func(from, to int) {
		data := g.data[from*g.cols : to*g.cols]
		for i, v := range data {
			data[i] = T(float64(v) * f)
		}
	})
}

// Abs replaces every value with its absolute value.
func Abs[T Number](g *Grid[T], opts Options) {
	opts.Pool.Rows(g.rows, func(from, to int) {
		data := g.data[from*g.cols : to*g.cols]
		for i, v := range data {
			if v < 0 {
				data[i] = -v
			}
		}
	})
}

// Add stores a+b elementwise into dst. dst may alias a or b.
func Add[T Number](a, b, dst *Grid[T], opts Options) error {
	return zip(a, b, dst, opts, func(x, y T) T { return x + y })
}

// Sub stores a-b elementwise into dst.
func Sub[T Number](a, b, dst *Grid[T], opts Options) error {
	return zip(a, b, dst, opts, func(x, y T) T { return x - y })
}

// Mul stores a*b elementwise into dst.
func Mul[T Number](a, b, dst *Grid[T], opts Options) error {
	return zip(a, b, dst, opts, func(x, y T) T { return x * y })
}

// Div stores a/b elementwise into dst. Cells whose divisor is zero become zero.
func Div[T Number](a, b, dst *Grid[T], opts Options) error {
	return zip(a, b, dst, opts, func(x, y T) T {
		if y == 0 {
			return 0
		}
		return x / y
	})
}

func zip[T Number](a, b, dst *Grid[T], opts Options, fn func(x, y T) T) error {
	if !a.SameShape(b) {
		return shapeError(a.rows, a.cols, b.rows, b.cols)
	}
	if !a.SameShape(dst) {
		return shapeError(a.rows, a.cols, dst.rows, dst.cols)
	}
	opts.Pool.Rows(a.rows, func(from, to int) {
		lo, hi := from*a.cols, to*a.cols
		x, y, out := a.data[lo:hi], b.data[lo:hi], dst.data[lo:hi]
		for i := range out {
			out[i] = fn(x[i], y[i])
		}
	})
	return nil
}
