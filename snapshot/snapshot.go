// Package snapshot writes frames and edge masks to image files.
package snapshot

import (
	"fmt"
	"image/gif"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/images"
	"github.com/nvr-ai/go-pixel/octree"
)

// JPEGQuality is the quality of JPEG snapshots.
const JPEGQuality = 95

// SaveFrame encodes f to path. The format follows the extension: PNG, JPEG
// and BMP go through imaging, WebP is written lossless and GIF is quantized
// to 256 colors with the octree.
func SaveFrame(path string, f *images.Frame) (err error) {
	if err := f.Validate(); err != nil {
		return err
	}
	format, err := images.FormatFromPath(path)
	if err != nil {
		return err
	}

	switch format {
	case images.FormatPNG, images.FormatJPEG, images.FormatBMP:
		if err := imaging.Save(f.Image(), path, imaging.JPEGQuality(JPEGQuality)); err != nil {
			return errors.Wrapf(err, "save %s", path)
		}
		return nil
	case images.FormatWebP, images.FormatGIF:
		out, cerr := os.Create(path)
		if cerr != nil {
			return errors.Wrapf(cerr, "create %s", path)
		}
		defer func() { err = multierr.Append(err, out.Close()) }()

		var encErr error
		if format == images.FormatGIF {
			encErr = gif.Encode(out, f.Image(), &gif.Options{NumColors: 256, Quantizer: octree.DrawQuantizer{}})
		} else {
			encErr = webp.Encode(out, f.Image(), &webp.Options{Lossless: true})
		}
		return errors.Wrapf(encErr, "encode %s", path)
	default:
		return errors.Wrapf(images.ErrUnsupportedFormat, "%q", format)
	}
}

// SaveGrid writes a gray grid, such as an edge mask, as an opaque image.
func SaveGrid(path string, g *grid.Grid[float32]) error {
	f := images.NewFrame(g.Cols(), g.Rows())
	if err := images.FillGray(g, f, nil); err != nil {
		return err
	}
	return SaveFrame(path, f)
}

// Writer saves every Every-th frame into Dir as frame-%06d.<Ext>, which
// source.Directory can play back.
type Writer struct {
	Dir   string
	Every int
	// Ext is the file extension without the dot, default "png".
	Ext string

	seen  int
	saved int
}

// NewWriter creates dir if needed.
func NewWriter(dir string, every int, ext string) (*Writer, error) {
	if every < 1 {
		return nil, errors.Errorf("snapshot: every %d must be >= 1", every)
	}
	if ext == "" {
		ext = "png"
	}
	if _, err := images.FormatFromPath("x." + ext); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}
	return &Writer{Dir: dir, Every: every, Ext: ext}, nil
}

// Observe counts a frame and saves it when it is due. It returns the written
// path, or "" when the frame was skipped.
func (w *Writer) Observe(f *images.Frame) (string, error) {
	w.seen++
	if (w.seen-1)%w.Every != 0 {
		return "", nil
	}
	path := filepath.Join(w.Dir, fmt.Sprintf("frame-%06d.%s", w.saved, w.Ext))
	if err := SaveFrame(path, f); err != nil {
		return "", err
	}
	w.saved++
	return path, nil
}

// Saved returns the number of files written.
func (w *Writer) Saved() int { return w.saved }
