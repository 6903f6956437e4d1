package kernels

import (
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pixel/colors"
	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/parallel"
)

func TestMedianSuppressesOutlier(t *testing.T) {
	pool := parallel.NewPool(2)
	defer pool.Close()

	src := grid.NewFilled[float32](9, 9, 10)
	src.Set(4, 4, 255)
	dst := grid.New[float32](9, 9)

	require.NoError(t, Median(src, dst, 3, pool))
	for _, v := range dst.Data() {
		assert.Equal(t, float32(10), v)
	}
}

func TestMedianClipsAtBoundary(t *testing.T) {
	src, err := grid.FromSlice(3, 3, []uint8{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	require.NoError(t, err)
	dst := grid.New[uint8](3, 3)
	require.NoError(t, Median(src, dst, 3, nil))

	// Corner window {1,2,4,5}: upper middle of four samples.
	assert.Equal(t, uint8(4), dst.Get(0, 0))
	// Edge window {1,2,3,4,5,6}.
	assert.Equal(t, uint8(4), dst.Get(1, 0))
	// Center sees the full window.
	assert.Equal(t, uint8(5), dst.Get(1, 1))
	assert.Equal(t, uint8(8), dst.Get(2, 2))
}

func TestMedianWindowOne(t *testing.T) {
	src := grid.New[float32](4, 4)
	src.Set(1, 2, 7)
	dst := grid.New[float32](4, 4)
	require.NoError(t, Median(src, dst, 1, nil))
	assert.Equal(t, src.Data(), dst.Data())
}

func TestMedianRejectsBadWindow(t *testing.T) {
	src := grid.New[float32](4, 4)
	for _, w := range []int{0, -3, 4} {
		assert.ErrorIs(t, Median(src, grid.New[float32](4, 4), w, nil), ErrInvalidWindow)
	}
	assert.ErrorIs(t, Median(src, src, 3, nil), grid.ErrAliased)
}

func TestNewBilateralValidation(t *testing.T) {
	_, err := NewBilateral(0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewBilateral(2, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewBilateral(2, 1, -1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	b, err := NewBilateral(2, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Radius())
	assert.Equal(t, float32(1), b.Spatial(0, 0))
	assert.Equal(t, b.Spatial(-2, 1), b.Spatial(1, 2))
	assert.Less(t, b.Spatial(2, 2), b.Spatial(1, 1))
}

func TestBilateralSpatialMatchesGaussian(t *testing.T) {
	b, err := NewBilateral(3, 1.5, 10)
	require.NoError(t, err)
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			want := math.Exp(-float64(dx*dx+dy*dy) / (2 * 1.5 * 1.5))
			assert.InDelta(t, want, b.Spatial(dx, dy), 1e-6, "offset %d,%d", dx, dy)
		}
	}
	// Separable: each weight is the product of its row and column terms.
	assert.InDelta(t, b.Spatial(2, 0)*b.Spatial(0, 3), b.Spatial(2, 3), 1e-7)
}

func TestBilateralFlatRegionUnchanged(t *testing.T) {
	b, err := NewBilateral(3, 2, 0.1)
	require.NoError(t, err)
	pool := parallel.NewPool(3)
	defer pool.Close()

	src := grid.NewFilled[float32](24, 24, 137)
	dst := grid.New[float32](24, 24)
	require.NoError(t, b.Gray(src, dst, pool))
	for _, v := range dst.Data() {
		assert.InDelta(t, 137, v, 1e-3)
	}

	csrc := grid.NewFilled(24, 24, colors.RGBA{R: 40, G: 90, B: 200, A: 255})
	cdst := grid.New[colors.RGBA](24, 24)
	require.NoError(t, b.Color(csrc, cdst, pool))
	for _, v := range cdst.Data() {
		assert.Equal(t, colors.RGBA{R: 40, G: 90, B: 200, A: 255}, v)
	}
}

func TestBilateralPreservesStepEdge(t *testing.T) {
	b, err := NewBilateral(2, 2, 5)
	require.NoError(t, err)

	src := grid.New[float32](10, 10)
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			src.Set(x, y, 200)
		}
	}
	dst := grid.New[float32](10, 10)
	require.NoError(t, b.Gray(src, dst, nil))

	// The range term makes the far side of the edge contribute nothing.
	assert.InDelta(t, 0, dst.Get(4, 5), 1e-3)
	assert.InDelta(t, 200, dst.Get(5, 5), 1e-3)
}

func TestDownsamplerFlat(t *testing.T) {
	b, err := NewBilateral(1, 1, 10)
	require.NoError(t, err)
	ds, err := NewDownsampler(b, 32, 48, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Factor())

	src := grid.NewFilled[float32](32, 48, 90)
	dst := grid.New[float32](32, 48)
	require.NoError(t, ds.Filter(src, dst, nil))
	for _, v := range dst.Data() {
		assert.InDelta(t, 90, v, 1)
	}
	require.NoError(t, ds.Filter(src, dst, nil))
	assert.ErrorIs(t, ds.Filter(src, grid.New[float32](4, 4), nil), grid.ErrShapeMismatch)

	other := grid.New[float32](16, 16)
	assert.ErrorIs(t, ds.Filter(other, grid.New[float32](16, 16), nil), grid.ErrShapeMismatch)
}

func TestDownsamplerFactorOneIsExact(t *testing.T) {
	b, err := NewBilateral(2, 2, 5)
	require.NoError(t, err)
	ds, err := NewDownsampler(b, 10, 10, 1)
	require.NoError(t, err)

	src := grid.New[float32](10, 10)
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			src.Set(x, y, 200)
		}
	}
	want := grid.New[float32](10, 10)
	require.NoError(t, b.Gray(src, want, nil))
	got := grid.New[float32](10, 10)
	require.NoError(t, ds.Filter(src, got, nil))
	assert.Equal(t, want.Data(), got.Data())
}

func TestNewDownsamplerValidation(t *testing.T) {
	b, err := NewBilateral(1, 1, 10)
	require.NoError(t, err)
	_, err = NewDownsampler(nil, 8, 8, 2)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewDownsampler(b, 0, 8, 2)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDownsamplerReusesBuffers(t *testing.T) {
	b, err := NewBilateral(2, 2, 25)
	require.NoError(t, err)
	ds, err := NewDownsampler(b, 240, 320, 4)
	require.NoError(t, err)
	src := genGray(240, 320)
	dst := grid.New[float32](240, 320)
	require.NoError(t, ds.Filter(src, dst, nil))

	const runs = 10
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	for i := 0; i < runs; i++ {
		require.NoError(t, ds.Filter(src, dst, nil))
	}
	runtime.ReadMemStats(&after)

	// A single 320x240 8-bit image is 76800 bytes.
	perRun := (after.TotalAlloc - before.TotalAlloc) / runs
	assert.Less(t, perRun, uint64(8<<10))
}
