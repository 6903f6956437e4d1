package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pixel/colors"
	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/images"
)

func checker(w, h int) *images.Frame {
	f := images.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				f.Set(x, y, colors.RGBA{R: 200, G: 40, B: 10, A: 255})
			} else {
				f.Set(x, y, colors.RGBA{R: 5, G: 90, B: 250, A: 255})
			}
		}
	}
	return f
}

func load(t *testing.T, path string) *images.Frame {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	format, err := images.FormatFromPath(path)
	require.NoError(t, err)
	img, err := images.Decode(data, format)
	require.NoError(t, err)
	return images.FrameFromImage(img)
}

func TestSaveFrameLossless(t *testing.T) {
	f := checker(9, 7)
	for _, name := range []string{"a.png", "a.webp", "a.bmp", "a.gif"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, SaveFrame(path, f), name)
		assert.Equal(t, f.Pix, load(t, path).Pix, name)
	}
}

func TestSaveFrameJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, SaveFrame(path, checker(16, 16)))
	got := load(t, path)
	assert.Equal(t, 16, got.Width)
	assert.Equal(t, 16, got.Height)
}

func TestSaveFrameErrors(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, SaveFrame(filepath.Join(dir, "a.tga"), checker(2, 2)), images.ErrUnsupportedFormat)
	assert.ErrorIs(t, SaveFrame(filepath.Join(dir, "a.png"), &images.Frame{Width: 2, Height: 2}), images.ErrFrameSize)
}

func TestSaveGrid(t *testing.T) {
	g := grid.New[float32](3, 4)
	g.Set(2, 1, 255)
	g.Set(3, 2, 300)

	path := filepath.Join(t.TempDir(), "mask.png")
	require.NoError(t, SaveGrid(path, g))

	got := load(t, path)
	assert.Equal(t, colors.RGBA{R: 255, G: 255, B: 255, A: 255}, got.At(2, 1))
	assert.Equal(t, colors.RGBA{R: 255, G: 255, B: 255, A: 255}, got.At(3, 2))
	assert.Equal(t, colors.RGBA{A: 255}, got.At(0, 0))
}

func TestWriterEvery(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")
	w, err := NewWriter(dir, 3, "")
	require.NoError(t, err)

	var paths []string
	f := checker(4, 4)
	for i := 0; i < 7; i++ {
		p, err := w.Observe(f)
		require.NoError(t, err)
		if p != "" {
			paths = append(paths, filepath.Base(p))
		}
	}
	assert.Equal(t, []string{"frame-000000.png", "frame-000001.png", "frame-000002.png"}, paths)
	assert.Equal(t, 3, w.Saved())

	_, err = NewWriter(dir, 0, "png")
	assert.Error(t, err)
	_, err = NewWriter(dir, 1, "tiff")
	assert.ErrorIs(t, err, images.ErrUnsupportedFormat)
}
