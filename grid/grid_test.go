package grid

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(rows, cols int) *Grid[float32] {
	g := New[float32](rows, cols)
	for i := range g.Data() {
		g.Data()[i] = float32(i)
	}
	return g
}

func TestNewAndAccessors(t *testing.T) {
	g := New[int](3, 4)
	assert.Equal(t, 3, g.Rows())
	assert.Equal(t, 4, g.Cols())
	assert.Equal(t, 12, g.Len())

	g.Set(3, 2, 7)
	assert.Equal(t, 7, g.Get(3, 2))
	assert.Equal(t, 7, g.Data()[11])
	assert.Equal(t, 11, g.Index(3, 2))

	assert.True(t, g.InBounds(0, 0))
	assert.False(t, g.InBounds(4, 0))
	assert.False(t, g.InBounds(0, -1))
	assert.Equal(t, 0, g.SafeGet(-1, 5))
	assert.Equal(t, 7, g.SafeGet(3, 2))

	assert.Panics(t, func() { New[int](-1, 2) })
}

func TestFromSliceRejectsWrongLength(t *testing.T) {
	_, err := FromSlice(2, 2, []uint8{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	g, err := FromSlice(2, 2, []uint8{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, uint8(4), g.Get(1, 1))
}

func TestSwapTwiceRestores(t *testing.T) {
	a := ramp(5, 6)
	b := NewFilled[float32](5, 6, -1)
	wantA := a.Clone()
	wantB := b.Clone()

	require.NoError(t, a.Swap(b))
	assert.Equal(t, wantB.Data(), a.Data())
	assert.Equal(t, wantA.Data(), b.Data())

	require.NoError(t, a.Swap(b))
	assert.Equal(t, wantA.Data(), a.Data())
	assert.Equal(t, wantB.Data(), b.Data())
}

func TestSwapShapeMismatch(t *testing.T) {
	a := New[float32](4, 4)
	b := New[float32](4, 5)
	err := a.Swap(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	assert.Equal(t, 16, a.Len())
}

func TestCopyFrom(t *testing.T) {
	a := ramp(3, 3)
	b := New[float32](3, 3)
	require.NoError(t, b.CopyFrom(a))
	assert.Equal(t, a.Data(), b.Data())
	assert.Error(t, b.CopyFrom(New[float32](2, 3)))
}

func TestPadBordersReplicates(t *testing.T) {
	g := ramp(6, 7)
	require.NoError(t, g.PadBorders(2))

	// Interior is untouched.
	assert.Equal(t, float32(2*7+2), g.Get(2, 2))
	assert.Equal(t, float32(3*7+4), g.Get(4, 3))

	// Top rows copy row 2, bottom rows copy row 3 (rows-1-p).
	for x := 2; x < 5; x++ {
		assert.Equal(t, g.Get(x, 2), g.Get(x, 0))
		assert.Equal(t, g.Get(x, 2), g.Get(x, 1))
		assert.Equal(t, g.Get(x, 3), g.Get(x, 4))
		assert.Equal(t, g.Get(x, 3), g.Get(x, 5))
	}
	// Left columns copy column 2, right columns copy column 4.
	for y := 2; y < 4; y++ {
		assert.Equal(t, g.Get(2, y), g.Get(0, y))
		assert.Equal(t, g.Get(4, y), g.Get(6, y))
	}
	// Corners come from the nearest interior corner.
	assert.Equal(t, g.Get(2, 2), g.Get(0, 0))
	assert.Equal(t, g.Get(4, 2), g.Get(6, 0))
	assert.Equal(t, g.Get(2, 3), g.Get(0, 5))
	assert.Equal(t, g.Get(4, 3), g.Get(6, 5))
}

func TestPadBordersIdempotent(t *testing.T) {
	for _, mode := range []EdgeMode{EdgeReplicate, EdgeMirror, EdgeWrap} {
		t.Run(mode.String(), func(t *testing.T) {
			g := ramp(9, 11)
			require.NoError(t, g.PadBordersMode(3, mode))
			once := g.Clone()
			require.NoError(t, g.PadBordersMode(3, mode))
			assert.Equal(t, once.Data(), g.Data())
		})
	}
}

func TestPadBordersMirrorAndWrap(t *testing.T) {
	g := ramp(1+2*2, 6)
	// Interior columns 2..3 of each row; mirror maps x=1 -> 2, x=0 -> 3.
	require.NoError(t, g.PadBordersMode(2, EdgeMirror))
	assert.Equal(t, g.Get(2, 2), g.Get(1, 2))
	assert.Equal(t, g.Get(3, 2), g.Get(0, 2))

	w := ramp(5, 6)
	require.NoError(t, w.PadBordersMode(2, EdgeWrap))
	assert.Equal(t, w.Get(3, 2), w.Get(1, 2))
	assert.Equal(t, w.Get(2, 2), w.Get(4, 2))
}

func TestPadBordersInvalid(t *testing.T) {
	g := New[float32](4, 10)
	assert.NoError(t, g.PadBorders(0))
	assert.True(t, errors.Is(g.PadBorders(-1), ErrInvalidPadding))
	assert.True(t, errors.Is(g.PadBorders(2), ErrInvalidPadding))
	assert.NoError(t, g.PadBorders(1))
}
