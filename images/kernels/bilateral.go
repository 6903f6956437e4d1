package kernels

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"

	"github.com/nvr-ai/go-pixel/colors"
	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/parallel"
)

// Bilateral is an edge-preserving smoothing filter. Each output cell is the
// weighted mean of its (2r+1)^2 neighborhood where the weight is the product
// of a spatial Gaussian over the offset and a range Gaussian over the value
// difference. The spatial term is precomputed once per radius and sigma as
// the outer product of one-dimensional Gaussian taps.
//
// A Bilateral is immutable after construction and safe for concurrent use.
type Bilateral struct {
	radius       int
	spatialSigma float32
	rangeSigma   float32
	// spatial holds exp(-(dx^2+dy^2) / (2 sigma_s^2)) in row-major order.
	spatial []float32
	// rangeCoef is -1 / (2 sigma_r^2).
	rangeCoef float32
}

// NewBilateral validates parameters and builds the spatial lookup table.
func NewBilateral(radius int, spatialSigma, rangeSigma float32) (*Bilateral, error) {
	if radius < 1 {
		return nil, errors.Wrapf(ErrInvalidParameter, "bilateral radius %d", radius)
	}
	if spatialSigma <= 0 || rangeSigma <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "bilateral sigmas %v/%v", spatialSigma, rangeSigma)
	}

	size := 2*radius + 1
	b := &Bilateral{
		radius:       radius,
		spatialSigma: spatialSigma,
		rangeSigma:   rangeSigma,
		spatial:      make([]float32, size*size),
		rangeCoef:    -1 / (2 * rangeSigma * rangeSigma),
	}

	taps, err := Gaussian1D(radius, float64(spatialSigma))
	if err != nil {
		return nil, err
	}
	// Rescaled so the center weight is exactly 1.
	w := taps.Data()
	center := w[radius]
	for i := range w {
		w[i] /= center
	}
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			b.spatial[dy*size+dx] = w[dy] * w[dx]
		}
	}
	return b, nil
}

// Radius returns the neighborhood radius.
func (b *Bilateral) Radius() int { return b.radius }

// Spatial returns the spatial weight for an offset within the radius.
func (b *Bilateral) Spatial(dx, dy int) float32 {
	size := 2*b.radius + 1
	return b.spatial[(dy+b.radius)*size+dx+b.radius]
}

// Gray filters an intensity grid. Neighbors outside the grid are skipped and
// the weights renormalized, so a uniform region is reproduced unchanged.
func (b *Bilateral) Gray(src, dst *grid.Grid[float32], pool *parallel.Pool) error {
	if err := checkPair(src, dst); err != nil {
		return err
	}

	r, size := b.radius, 2*b.radius+1
	rows, cols := src.Rows(), src.Cols()
	data := src.Data()

	pool.Rows(rows, func(from, to int) {
		for y := from; y < to; y++ {
			out := dst.Row(y)
			for x := 0; x < cols; x++ {
				center := data[y*cols+x]
				var acc, norm float32
				for dy := -r; dy <= r; dy++ {
					yy := y + dy
					if yy < 0 || yy >= rows {
						continue
					}
					sw := b.spatial[(dy+r)*size:]
					for dx := -r; dx <= r; dx++ {
						xx := x + dx
						if xx < 0 || xx >= cols {
							continue
						}
						v := data[yy*cols+xx]
						d := v - center
						w := sw[dx+r] * math32.Exp(d*d*b.rangeCoef)
						acc += w * v
						norm += w
					}
				}
				out[x] = acc / norm
			}
		}
	})
	return nil
}

// Color filters an RGBA grid using the squared RGB distance as the range
// term. Alpha is copied from the center pixel.
func (b *Bilateral) Color(src, dst *grid.Grid[colors.RGBA], pool *parallel.Pool) error {
	if src == dst {
		return errors.Wrap(grid.ErrAliased, "bilateral")
	}
	if !src.SameShape(dst) {
		return errors.Wrapf(grid.ErrShapeMismatch, "%v vs %v", src, dst)
	}

	r, size := b.radius, 2*b.radius+1
	rows, cols := src.Rows(), src.Cols()
	data := src.Data()

	pool.Rows(rows, func(from, to int) {
		for y := from; y < to; y++ {
			out := dst.Row(y)
			for x := 0; x < cols; x++ {
				center := data[y*cols+x]
				c := center.RGB()
				var accR, accG, accB, norm float32
				for dy := -r; dy <= r; dy++ {
					yy := y + dy
					if yy < 0 || yy >= rows {
						continue
					}
					sw := b.spatial[(dy+r)*size:]
					for dx := -r; dx <= r; dx++ {
						xx := x + dx
						if xx < 0 || xx >= cols {
							continue
						}
						n := data[yy*cols+xx]
						w := sw[dx+r] * math32.Exp(colors.DistanceSq(c, n.RGB())*b.rangeCoef)
						accR += w * float32(n.R)
						accG += w * float32(n.G)
						accB += w * float32(n.B)
						norm += w
					}
				}
				out[x] = colors.RGBA{
					R: colors.Clamp8(accR / norm),
					G: colors.Clamp8(accG / norm),
					B: colors.Clamp8(accB / norm),
					A: center.A,
				}
			}
		}
	})
	return nil
}

// Downsampler approximates Bilateral.Gray by shrinking the grid by factor,
// filtering at the reduced size and scaling the result back up with bilinear
// interpolation. Values are quantized to 8 bits along the way. The radius
// applies at the reduced size, so it covers radius*factor source pixels.
//
// All scratch images and grids are allocated once for the geometry. A
// Downsampler is not safe for concurrent use.
type Downsampler struct {
	filter     *Bilateral
	rows, cols int
	factor     int

	full   *image.Gray // 8-bit copy of the source
	small  *image.RGBA // source shrunk to the reduced size
	lowIn  *grid.Grid[float32]
	lowOut *grid.Grid[float32]
	lowImg *image.Gray // filtered result at the reduced size
	up     *image.RGBA // result scaled back to rows x cols
}

// NewDownsampler allocates the buffers for rows x cols grids. factor <= 1
// runs the exact filter and allocates nothing.
func NewDownsampler(b *Bilateral, rows, cols, factor int) (*Downsampler, error) {
	if b == nil {
		return nil, errors.Wrap(ErrInvalidParameter, "downsampler needs a bilateral filter")
	}
	if rows < 1 || cols < 1 {
		return nil, errors.Wrapf(ErrInvalidParameter, "downsampler geometry %dx%d", cols, rows)
	}

	s := &Downsampler{filter: b, rows: rows, cols: cols, factor: factor}
	if factor <= 1 {
		return s, nil
	}
	sw, sh := max(cols/factor, 1), max(rows/factor, 1)
	s.full = image.NewGray(image.Rect(0, 0, cols, rows))
	s.small = image.NewRGBA(image.Rect(0, 0, sw, sh))
	s.lowIn = grid.New[float32](sh, sw)
	s.lowOut = grid.New[float32](sh, sw)
	s.lowImg = image.NewGray(image.Rect(0, 0, sw, sh))
	s.up = image.NewRGBA(image.Rect(0, 0, cols, rows))
	return s, nil
}

// Factor returns the downsampling factor.
func (s *Downsampler) Factor() int { return s.factor }

// Filter smooths src into dst. Both must have the geometry the Downsampler
// was built for.
func (s *Downsampler) Filter(src, dst *grid.Grid[float32], pool *parallel.Pool) error {
	if err := checkPair(src, dst); err != nil {
		return err
	}
	if src.Rows() != s.rows || src.Cols() != s.cols {
		return errors.Wrapf(grid.ErrShapeMismatch, "%v for downsampler %dx%d", src, s.rows, s.cols)
	}
	if s.factor <= 1 {
		return s.filter.Gray(src, dst, pool)
	}

	writeGray(src, s.full)
	xdraw.ApproxBiLinear.Scale(s.small, s.small.Rect, s.full, s.full.Rect, xdraw.Src, nil)
	readRed(s.small, s.lowIn)

	if err := s.filter.Gray(s.lowIn, s.lowOut, pool); err != nil {
		return err
	}

	writeGray(s.lowOut, s.lowImg)
	xdraw.ApproxBiLinear.Scale(s.up, s.up.Rect, s.lowImg, s.lowImg.Rect, xdraw.Src, nil)
	readRed(s.up, dst)
	return nil
}

func writeGray(g *grid.Grid[float32], img *image.Gray) {
	cols := g.Cols()
	for y := 0; y < g.Rows(); y++ {
		row := g.Row(y)
		pix := img.Pix[y*img.Stride : y*img.Stride+cols]
		for x, v := range row {
			pix[x] = colors.Clamp8(v)
		}
	}
}

// readRed copies the red channel, which equals the gray level of an image
// scaled from a gray source.
func readRed(img *image.RGBA, g *grid.Grid[float32]) {
	for y := 0; y < g.Rows(); y++ {
		row := g.Row(y)
		pix := img.Pix[y*img.Stride:]
		for x := range row {
			row[x] = float32(pix[x*4])
		}
	}
}

func checkPair(src, dst *grid.Grid[float32]) error {
	if src == dst {
		return errors.Wrap(grid.ErrAliased, "bilateral")
	}
	if !src.SameShape(dst) {
		return errors.Wrapf(grid.ErrShapeMismatch, "%v vs %v", src, dst)
	}
	return nil
}
