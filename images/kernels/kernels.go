// Package kernels holds the immutable convolution kernels and structuring
// elements used by the engine, and the filter bank built on top of them:
// separable Gaussian and box blurs, a median filter and a bilateral filter.
//
// Kernels are returned as fresh grids so callers may not corrupt the shared
// coefficients.
package kernels

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/nvr-ai/go-pixel/grid"
)

// ErrInvalidParameter is returned for kernel sizes or sigmas that cannot
// produce a usable kernel.
var ErrInvalidParameter = errors.New("kernels: invalid parameter")

// GaussianTaps are the fixed 5-tap Gaussian coefficients used for pre-blur.
var GaussianTaps = [5]float32{0.02808743, 0.23430939, 0.47520637, 0.23430939, 0.02808743}

// GaussianRadius is the radius of the fixed 5-tap Gaussian.
const GaussianRadius = 2

// SobelX returns the horizontal Sobel operator. Correlating with it yields a
// positive response where intensity grows to the right.
func SobelX() *grid.Grid[float32] {
	return fromRows([][]float32{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	})
}

// SobelY returns the vertical Sobel operator, positive where intensity grows
// downwards.
func SobelY() *grid.Grid[float32] {
	return fromRows([][]float32{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	})
}

// GaussianX returns the 5-tap Gaussian as a 1x5 row kernel.
func GaussianX() *grid.Grid[float32] {
	g := grid.New[float32](1, len(GaussianTaps))
	copy(g.Data(), GaussianTaps[:])
	return g
}

// GaussianY returns the 5-tap Gaussian as a 5x1 column kernel.
func GaussianY() *grid.Grid[float32] {
	g := grid.New[float32](len(GaussianTaps), 1)
	copy(g.Data(), GaussianTaps[:])
	return g
}

// Gaussian1D builds normalized Gaussian taps exp(-x^2 / (2 sigma^2)) for
// x in [-radius, radius], returned as a 1 x (2*radius+1) row kernel.
func Gaussian1D(radius int, sigma float64) (*grid.Grid[float32], error) {
	if radius < 0 || sigma <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "gaussian radius %d sigma %v", radius, sigma)
	}

	taps := make([]float64, 2*radius+1)
	inv := 1 / (2 * sigma * sigma)
	for i := range taps {
		x := float64(i - radius)
		taps[i] = math.Exp(-x * x * inv)
	}
	floats.Scale(1/floats.Sum(taps), taps)

	g := grid.New[float32](1, len(taps))
	for i, v := range taps {
		g.Data()[i] = float32(v)
	}
	return g, nil
}

// Square returns an n x n structuring element with every cell on.
func Square(n int) *grid.Grid[float32] {
	if n < 1 {
		n = 1
	}
	return grid.NewFilled[float32](n, n, 1)
}

// Ellipse returns an h x w structuring element approximating the ellipse
// inscribed in the box. Each row is filled between the two columns where the
// ellipse crosses it.
func Ellipse(h, w int) *grid.Grid[float32] {
	if h < 1 {
		h = 1
	}
	if w < 1 {
		w = 1
	}

	g := grid.New[float32](h, w)
	r, c := h/2, w/2
	var invR2 float32
	if r > 0 {
		invR2 = 1 / float32(r*r)
	}

	for i := 0; i < h; i++ {
		dy := i - r
		j1, j2 := 0, 0
		if abs(dy) <= r {
			dx := int(float32(c) * math32.Sqrt(float32(r*r-dy*dy)*invR2))
			j1 = max(c-dx, 0)
			j2 = min(c+dx+1, w)
		}
		row := g.Row(i)
		for j := j1; j < j2; j++ {
			row[j] = 1
		}
	}
	return g
}

func fromRows(rows [][]float32) *grid.Grid[float32] {
	g := grid.New[float32](len(rows), len(rows[0]))
	for y, row := range rows {
		copy(g.Row(y), row)
	}
	return g
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
