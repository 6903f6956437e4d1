// Package source produces RGBA frames of a fixed geometry from raw streams,
// an ffmpeg subprocess, OpenCV capture devices or directories of images.
package source

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/images"
)

// ErrShortFrame is returned when a stream ends in the middle of a frame.
var ErrShortFrame = errors.New("source: stream ended mid-frame")

// Source fills frames one at a time. Next returns io.EOF after the last frame.
// A Source is used by one goroutine, except that Close may be called from
// another one to end a Next that is blocked waiting for input.
type Source interface {
	Next(ctx context.Context, f *images.Frame) error
	Close() error
}

// Raw reads tightly packed RGBA frames from a byte stream.
type Raw struct {
	r             io.Reader
	width, height int
	frames        int
}

var _ Source = (*Raw)(nil)

// NewRaw reads width x height RGBA frames from r. Close closes r when it is
// an io.Closer.
func NewRaw(r io.Reader, width, height int) *Raw {
	return &Raw{r: r, width: width, height: height}
}

// Next reads exactly one frame into f.
func (s *Raw) Next(ctx context.Context, f *images.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkFrame(f, s.width, s.height); err != nil {
		return err
	}

	n, err := io.ReadFull(s.r, f.Pix)
	switch {
	case err == nil:
		s.frames++
		return nil
	case errors.Is(err, io.EOF) && n == 0:
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.Wrapf(ErrShortFrame, "frame %d: %d of %d bytes", s.frames, n, len(f.Pix))
	default:
		return errors.Wrapf(err, "frame %d", s.frames)
	}
}

// Frames returns the number of complete frames read.
func (s *Raw) Frames() int { return s.frames }

// Close closes the underlying reader if it can be closed.
func (s *Raw) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func checkFrame(f *images.Frame, width, height int) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Width != width || f.Height != height {
		return errors.Wrapf(images.ErrFrameSize, "frame %dx%d, source %dx%d", f.Width, f.Height, width, height)
	}
	return nil
}
