package octree

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pixel/colors"
)

func TestSingleColorRoundTrip(t *testing.T) {
	c := colors.RGB{R: 17, G: 200, B: 93}
	q := New()
	for i := 0; i < 1000; i++ {
		require.NoError(t, q.AddColor(c))
	}

	palette, err := q.MakePalette(1)
	require.NoError(t, err)
	assert.Equal(t, []colors.RGB{c}, palette)

	idx, err := q.PaletteIndex(c)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, c, q.Map(c))
}

func TestDistinctColorsAreExactBelowTarget(t *testing.T) {
	in := []colors.RGB{{R: 0, G: 0, B: 0}, {R: 255, G: 255, B: 255}, {R: 255, G: 0, B: 0}, {R: 1, G: 2, B: 3}, {R: 1, G: 2, B: 4}}
	q := New()
	for _, c := range in {
		require.NoError(t, q.AddColor(c))
		require.NoError(t, q.AddColor(c))
	}
	assert.Equal(t, len(in), q.LeafCount())

	palette, err := q.MakePalette(16)
	require.NoError(t, err)
	assert.ElementsMatch(t, in, palette)

	for _, c := range in {
		assert.Equal(t, c, q.Map(c))
	}
}

func TestPaletteReductionIsMonotonic(t *testing.T) {
	q := New()
	for r := 0; r < 256; r += 15 {
		for g := 0; g < 256; g += 25 {
			for b := 0; b < 256; b += 35 {
				require.NoError(t, q.AddColor(colors.RGB{R: uint8(r), G: uint8(g), B: uint8(b)}))
			}
		}
	}

	prev := q.LeafCount()
	for _, k := range []int{512, 256, 100, 64, 16, 8, 4, 2, 1} {
		palette, err := q.MakePalette(k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(palette), k)
		assert.LessOrEqual(t, len(palette), prev)
		assert.Equal(t, q.LeafCount(), len(palette))
		prev = len(palette)
	}
	assert.Equal(t, 1, prev)
}

func TestFreshTreesReduceMonotonically(t *testing.T) {
	fill := func() *Quantizer {
		q := New()
		for i := 0; i < 4096; i++ {
			_ = q.AddColor(colors.RGB{R: uint8(i * 7), G: uint8(i * 13), B: uint8(i * 29)})
		}
		return q
	}

	prev := 1 << 30
	for _, k := range []int{300, 120, 40, 10, 3} {
		palette, err := fill().MakePalette(k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(palette), k)
		assert.LessOrEqual(t, len(palette), prev)
		prev = len(palette)
	}
}

func TestPaletteMeanColor(t *testing.T) {
	q := New()
	require.NoError(t, q.AddColor(colors.RGB{R: 10, G: 20, B: 30}))
	require.NoError(t, q.AddColor(colors.RGB{R: 30, G: 40, B: 50}))
	require.NoError(t, q.AddColor(colors.RGB{R: 200, G: 200, B: 200}))

	palette, err := q.MakePalette(1)
	require.NoError(t, err)
	assert.Equal(t, []colors.RGB{{R: 80, G: 86, B: 93}}, palette)
}

func TestLookupFallsBackToFirstChild(t *testing.T) {
	q := New()
	require.NoError(t, q.AddColor(colors.RGB{R: 255, G: 255, B: 255}))
	_, err := q.MakePalette(4)
	require.NoError(t, err)

	// Black branches left at the root where only the white subtree exists.
	idx, err := q.PaletteIndex(colors.RGB{})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, colors.RGB{R: 255, G: 255, B: 255}, q.Map(colors.RGB{}))
}

func TestMisuse(t *testing.T) {
	q := New()

	_, err := q.PaletteIndex(colors.RGB{})
	assert.ErrorIs(t, err, ErrNoPalette)

	_, err = q.MakePalette(4)
	assert.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, q.AddColor(colors.RGB{R: 1}))
	_, err = q.MakePalette(0)
	assert.ErrorIs(t, err, ErrInvalidPaletteSize)

	_, err = q.MakePalette(4)
	require.NoError(t, err)
	assert.ErrorIs(t, q.AddColor(colors.RGB{R: 2}), ErrPaletteFinalized)
	assert.True(t, q.HasPalette())

	// Map without a usable palette returns its input.
	assert.Equal(t, colors.RGB{R: 9}, New().Map(colors.RGB{R: 9}))
}

func TestResetReusesArena(t *testing.T) {
	q := New()
	for i := 0; i < 100; i++ {
		require.NoError(t, q.AddColor(colors.RGB{R: uint8(i), G: uint8(i * 3), B: uint8(i * 5)}))
	}
	_, err := q.MakePalette(8)
	require.NoError(t, err)
	grown := cap(q.nodes)

	q.Reset()
	assert.Equal(t, 1, q.Len())
	assert.Zero(t, q.LeafCount())
	assert.False(t, q.HasPalette())
	hist := q.LuminanceHistogram()
	assert.Zero(t, hist.Total())
	assert.Equal(t, grown, cap(q.nodes))

	require.NoError(t, q.AddColor(colors.RGB{R: 5}))
	assert.Equal(t, MaxDepth+1, q.Len())
}

func TestBranch(t *testing.T) {
	c := colors.RGB{R: 0x80, G: 0x01, B: 0x81}
	assert.Equal(t, 4|1, branch(c, 0))
	assert.Equal(t, 0, branch(c, 3))
	assert.Equal(t, 2|1, branch(c, MaxDepth-1))
}

func TestHistogram(t *testing.T) {
	q := New()
	require.NoError(t, q.AddColor(colors.RGB{}))
	require.NoError(t, q.AddColor(colors.RGB{R: 255, G: 255, B: 255}))
	h := q.LuminanceHistogram()

	assert.Equal(t, uint64(2), h.Total())
	assert.Equal(t, uint64(1), h[0])
	assert.Equal(t, uint64(1), h[255])
	assert.InDelta(t, 127.5, h.Mean(), 1e-9)

	var dark Histogram
	dark.Add(colors.RGB{})
	assert.InDelta(t, 0.5, h.Distance(&dark), 1e-9)
	assert.Zero(t, h.Distance(&h))

	var empty Histogram
	assert.Equal(t, 1.0, h.Distance(&empty))
	assert.Zero(t, empty.Distance(&Histogram{}))
	assert.Zero(t, empty.Mean())
}

func TestDrawQuantizer(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	img.SetRGBA(0, 0, color.RGBA{})

	p := DrawQuantizer{}.Quantize(make(color.Palette, 0, 16), img)
	assert.ElementsMatch(t, color.Palette{
		color.RGBA{R: 255, A: 255},
		color.RGBA{B: 255, A: 255},
	}, p)

	p = DrawQuantizer{Size: 1}.Quantize(nil, img)
	assert.Len(t, p, 1)
}

func TestPaletteIndexUnindexedLeaf(t *testing.T) {
	q := New()
	c := colors.RGB{R: 40, G: 90, B: 200}
	require.NoError(t, q.AddColor(c))
	_, err := q.MakePalette(4)
	require.NoError(t, err)

	// Detach the only leaf from the palette.
	for i := range q.nodes {
		if q.nodes[i].leaf() {
			q.nodes[i].index = nilNode
		}
	}

	idx, err := q.PaletteIndex(c)
	assert.ErrorIs(t, err, ErrUnindexed)
	assert.Zero(t, idx)
	assert.Equal(t, c, q.Map(c))
}
