package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/images"
)

// ErrNoFrames is returned for directories without frame images.
var ErrNoFrames = errors.New("source: no frame images")

// FrameFile is an image file named frame-N.<ext>.
type FrameFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
	// Format is the encoding inferred from the extension.
	Format images.ImageFormat
}

// ListFrames returns the frame-N images of dir ordered by N. Files with
// other extensions are ignored; image files not named frame-N are an error.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []FrameFile: The frames in playback order.
//   - error: Error if the directory cannot be read or a name is malformed.
func ListFrames(dir string) ([]FrameFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dir)
	}

	var frames []FrameFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		format, err := images.FormatFromPath(e.Name())
		if err != nil {
			continue
		}
		ext := filepath.Ext(e.Name())
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSuffix(e.Name(), ext), "frame-"))
		if err != nil {
			return nil, errors.Wrapf(err, "frame number of %s", e.Name())
		}
		frames = append(frames, FrameFile{Path: filepath.Join(dir, e.Name()), Frame: n, Format: format})
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Frame < frames[j].Frame
	})
	return frames, nil
}

// Directory plays back a directory of frame-N images, decoding and scaling
// one file per Next.
type Directory struct {
	files         []FrameFile
	next          int
	loop          bool
	width, height int
}

var _ Source = (*Directory)(nil)

// NewDirectory lists dir once. With loop set, playback restarts after the
// last frame instead of returning io.EOF.
func NewDirectory(dir string, width, height int, loop bool) (*Directory, error) {
	files, err := ListFrames(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNoFrames, "%s", dir)
	}
	return &Directory{files: files, loop: loop, width: width, height: height}, nil
}

// Len returns the number of frames in the directory.
func (d *Directory) Len() int { return len(d.files) }

// Next decodes the next file into f.
func (d *Directory) Next(ctx context.Context, f *images.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkFrame(f, d.width, d.height); err != nil {
		return err
	}
	if d.next >= len(d.files) {
		if !d.loop {
			return io.EOF
		}
		d.next = 0
	}

	file := d.files[d.next]
	d.next++
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return errors.Wrapf(err, "read frame %d", file.Frame)
	}
	if err := images.DecodeInto(data, file.Format, f); err != nil {
		return errors.Wrapf(err, "frame %s", file.Path)
	}
	return nil
}

// Close is a no-op.
func (d *Directory) Close() error { return nil }
