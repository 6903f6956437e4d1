package grid

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pixel/parallel"
)

func box3() *Grid[float32] {
	return NewFilled[float32](3, 3, 1)
}

func TestConvolveZerosYieldsZeros(t *testing.T) {
	pool := parallel.NewPool(4)
	defer pool.Close()

	kernel := New[float32](3, 3)
	copy(kernel.Data(), []float32{-1, 0, 1, -2, 0, 2, -1, 0, 1})

	for _, padding := range []int{0, 1, 2} {
		src := New[float32](32, 40)
		dst := NewFilled[float32](32, 40, 99)
		require.NoError(t, Convolve(src, kernel, dst, Options{Padding: padding, Pool: pool}))
		for y := padding; y < 32-padding; y++ {
			for x := padding; x < 40-padding; x++ {
				require.Zero(t, dst.Get(x, y), "padding %d at (%d,%d)", padding, x, y)
			}
		}
	}
}

func TestConvolveIsCorrelation(t *testing.T) {
	// A kernel with a single tap to the right of center shifts the image left.
	kernel := New[float32](3, 3)
	kernel.Set(2, 1, 1)

	src := ramp(5, 5)
	dst := New[float32](5, 5)
	require.NoError(t, Convolve(src, kernel, dst, Options{}))

	assert.Equal(t, src.Get(3, 2), dst.Get(2, 2))
	// The last column samples outside the grid and gets zero.
	assert.Zero(t, dst.Get(4, 2))
}

func TestConvolvePaddedMatchesFullOnInterior(t *testing.T) {
	src := ramp(12, 15)
	require.NoError(t, src.PadBorders(1))

	full := New[float32](12, 15)
	padded := New[float32](12, 15)
	require.NoError(t, Convolve(src, box3(), full, Options{}))
	require.NoError(t, Convolve(src, box3(), padded, Options{Padding: 1, Pool: parallel.NewPool(3)}))

	for y := 1; y < 11; y++ {
		for x := 1; x < 14; x++ {
			assert.InDelta(t, full.Get(x, y), padded.Get(x, y), 1e-3)
		}
	}
	// Border cells are not written by the padded form.
	assert.Zero(t, padded.Get(0, 0))
}

func TestConvolveRejectsBadInput(t *testing.T) {
	src := New[float32](10, 10)

	err := Convolve(src, box3(), src, Options{})
	assert.True(t, errors.Is(err, ErrAliased))

	err = Convolve(src, box3(), New[float32](10, 11), Options{})
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	five := NewFilled[float32](5, 5, 1)
	err = Convolve(src, five, New[float32](10, 10), Options{Padding: 1})
	assert.True(t, errors.Is(err, ErrInvalidPadding))
}

func TestConvolveIntegerGrid(t *testing.T) {
	src := NewFilled[int32](4, 4, 2)
	dst := New[int32](4, 4)
	require.NoError(t, Convolve(src, box3(), dst, Options{Padding: 1}))
	assert.Equal(t, int32(18), dst.Get(1, 1))
}

func TestMorphDilateAndErode(t *testing.T) {
	src := New[float32](7, 7)
	src.Set(3, 3, 255)

	dilated := New[float32](7, 7)
	require.NoError(t, Morph(src, box3(), true, dilated, Options{}))
	for y := 2; y <= 4; y++ {
		for x := 2; x <= 4; x++ {
			assert.Equal(t, float32(255), dilated.Get(x, y))
		}
	}
	assert.Zero(t, dilated.Get(1, 1))

	eroded := New[float32](7, 7)
	require.NoError(t, Morph(dilated, box3(), false, eroded, Options{}))
	assert.Equal(t, float32(255), eroded.Get(3, 3))
	assert.Zero(t, eroded.Get(2, 3))
}

func TestMorphZeroesBorder(t *testing.T) {
	src := NewFilled[uint8](6, 6, 9)
	dst := New[uint8](6, 6)
	require.NoError(t, Morph(src, box3(), true, dst, Options{}))
	for i := 0; i < 6; i++ {
		assert.Zero(t, dst.Get(i, 0))
		assert.Zero(t, dst.Get(0, i))
		assert.Zero(t, dst.Get(i, 5))
		assert.Zero(t, dst.Get(5, i))
	}
	assert.Equal(t, uint8(9), dst.Get(2, 3))
}

func TestMinMax(t *testing.T) {
	g := ramp(3, 3)
	g.Set(1, 1, -5)
	mn, mx := MinMax(g)
	assert.Equal(t, float32(-5), mn)
	assert.Equal(t, float32(8), mx)

	mi, mxi := MinMax(New[int](0, 0))
	assert.Zero(t, mi)
	assert.Zero(t, mxi)
}

func TestRescale(t *testing.T) {
	g := ramp(1, 5) // 0..4
	require.NoError(t, Rescale(g, 0, 255, Options{}))
	assert.Equal(t, []float32{0, 63.75, 127.5, 191.25, 255}, g.Data())
}

func TestRescaleDegenerateLeavesValues(t *testing.T) {
	g := NewFilled[float32](4, 4, 3)
	err := Rescale(g, 0, 255, Options{})
	assert.True(t, errors.Is(err, ErrDegenerateRange))
	for _, v := range g.Data() {
		assert.Equal(t, float32(3), v)
	}
}

func TestThreshold(t *testing.T) {
	g := ramp(1, 11) // 0..10
	Threshold(g, 0.5, Options{})
	for x := 0; x <= 5; x++ {
		assert.Zero(t, g.Get(x, 0))
	}
	for x := 6; x <= 10; x++ {
		assert.Equal(t, float32(x), g.Get(x, 0))
	}
}

func TestElementwise(t *testing.T) {
	a := NewFilled[int](2, 3, 6)
	b := NewFilled[int](2, 3, 3)
	b.Set(0, 0, 0)
	dst := New[int](2, 3)

	require.NoError(t, Add(a, b, dst, Options{}))
	assert.Equal(t, 9, dst.Get(1, 1))
	require.NoError(t, Sub(a, b, dst, Options{}))
	assert.Equal(t, 3, dst.Get(1, 1))
	require.NoError(t, Mul(a, b, dst, Options{}))
	assert.Equal(t, 18, dst.Get(1, 1))
	require.NoError(t, Div(a, b, dst, Options{}))
	assert.Equal(t, 2, dst.Get(1, 1))
	assert.Equal(t, 0, dst.Get(0, 0))

	before := dst.Clone()
	err := Add(a, New[int](3, 2), dst, Options{})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	assert.Equal(t, before.Data(), dst.Data())
}

func TestScaleAndAbs(t *testing.T) {
	g := NewFilled[float32](2, 2, -2)
	Abs(g, Options{})
	Scale(g, 1.5, Options{})
	assert.Equal(t, []float32{3, 3, 3, 3}, g.Data())
}

func TestRadius(t *testing.T) {
	assert.Equal(t, 1, Radius(box3()))
	assert.Equal(t, 2, Radius(New[float32](1, 5)))
}
