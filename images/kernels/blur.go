package kernels

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/grid"
)

// BlurKind selects the pre-blur applied before edge detection.
type BlurKind int

const (
	BlurNone BlurKind = iota
	BlurGaussian
	BlurBox
	BlurMedian
	BlurBilateral
)

var blurNames = map[BlurKind]string{
	BlurNone:      "none",
	BlurGaussian:  "gaussian",
	BlurBox:       "box",
	BlurMedian:    "median",
	BlurBilateral: "bilateral",
}

// String returns the configuration name of the blur.
func (k BlurKind) String() string {
	if s, ok := blurNames[k]; ok {
		return s
	}
	return fmt.Sprintf("BlurKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k BlurKind) MarshalText() ([]byte, error) {
	if _, ok := blurNames[k]; !ok {
		return nil, errors.Wrapf(ErrInvalidParameter, "blur kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *BlurKind) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for kind, s := range blurNames {
		if s == name {
			*k = kind
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidParameter, "unknown blur kind %q", name)
}

var (
	gaussianX = GaussianX()
	gaussianY = GaussianY()
)

// GaussianBlur applies the fixed 5-tap Gaussian to g in place, horizontally
// into tmp and vertically back into g. Borders are re-padded before each pass
// and after the last one, so opts.Padding must be at least GaussianRadius.
func GaussianBlur(g, tmp *grid.Grid[float32], opts grid.Options) error {
	if opts.Padding < GaussianRadius {
		return errors.Wrapf(grid.ErrInvalidPadding, "gaussian blur needs padding >= %d, got %d", GaussianRadius, opts.Padding)
	}
	return separable(g, tmp, gaussianX, gaussianY, opts)
}

// SeparableBlur runs a row kernel then a column kernel over g in place using
// tmp as the intermediate, re-padding between passes.
func SeparableBlur(g, tmp, row, col *grid.Grid[float32], opts grid.Options) error {
	if r := max(grid.Radius(row), grid.Radius(col)); opts.Padding < r {
		return errors.Wrapf(grid.ErrInvalidPadding, "separable blur needs padding >= %d, got %d", r, opts.Padding)
	}
	return separable(g, tmp, row, col, opts)
}

func separable(g, tmp, row, col *grid.Grid[float32], opts grid.Options) error {
	if err := g.PadBorders(opts.Padding); err != nil {
		return err
	}
	if err := grid.Convolve(g, row, tmp, opts); err != nil {
		return errors.Wrap(err, "horizontal pass")
	}
	if err := tmp.PadBorders(opts.Padding); err != nil {
		return err
	}
	if err := grid.Convolve(tmp, col, g, opts); err != nil {
		return errors.Wrap(err, "vertical pass")
	}
	return g.PadBorders(opts.Padding)
}

// BoxBlur applies a separable box blur of the given radius to g in place.
// Both passes use a sliding window, so the cost per pixel does not depend on
// the radius:
//   - Compute an initial sum over the first window.
//   - For each step, subtract the sample leaving the window and add the one
//     entering it.
//
// The blur runs on the interior only and requires opts.Padding >= radius.
func BoxBlur(g, tmp *grid.Grid[float32], radius int, opts grid.Options) error {
	if radius < 0 {
		return errors.Wrapf(ErrInvalidParameter, "box radius %d", radius)
	}
	if radius == 0 {
		return nil
	}
	p := opts.Padding
	if p < radius {
		return errors.Wrapf(grid.ErrInvalidPadding, "box blur needs padding >= %d, got %d", radius, p)
	}
	if !g.SameShape(tmp) {
		return errors.Wrapf(grid.ErrShapeMismatch, "%v vs %v", g, tmp)
	}
	if err := g.PadBorders(p); err != nil {
		return err
	}

	rows, cols := g.Rows(), g.Cols()
	inv := 1 / float32(2*radius+1)

	// Horizontal pass: one window per interior row.
	opts.Pool.Rows(rows-2*p, func(from, to int) {
		for y := from + p; y < to+p; y++ {
			in, out := g.Row(y), tmp.Row(y)
			var sum float32
			for x := p - radius; x <= p+radius; x++ {
				sum += in[x]
			}
			for x := p; x < cols-p; x++ {
				out[x] = sum * inv
				if x+radius+1 < cols {
					sum += in[x+radius+1] - in[x-radius]
				}
			}
		}
	})
	if err := tmp.PadBorders(p); err != nil {
		return err
	}

	// Vertical pass: each chunk keeps running column sums and slides them
	// down its own rows.
	opts.Pool.Rows(rows-2*p, func(from, to int) {
		sums := make([]float32, cols)
		y0 := from + p
		for y := y0 - radius; y <= y0+radius; y++ {
			row := tmp.Row(y)
			for x := p; x < cols-p; x++ {
				sums[x] += row[x]
			}
		}
		for y := y0; y < to+p; y++ {
			out := g.Row(y)
			for x := p; x < cols-p; x++ {
				out[x] = sums[x] * inv
			}
			if y+radius+1 >= rows {
				continue
			}
			enter, leave := tmp.Row(y+radius+1), tmp.Row(y-radius)
			for x := p; x < cols-p; x++ {
				sums[x] += enter[x] - leave[x]
			}
		}
	})

	return g.PadBorders(p)
}
