package source

import (
	"context"
	"image"
	"io"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-pixel/images"
)

// Capture reads frames through OpenCV from a camera index or a video file.
type Capture struct {
	// mu keeps Close from releasing the device during a read.
	mu     sync.Mutex
	closed bool

	vc            *gocv.VideoCapture
	width, height int

	raw, rgba, resized gocv.Mat
}

var _ Source = (*Capture)(nil)

// NewCapture opens device, which is either a camera index such as "0" or a
// file path or URL. Frames are converted from BGR and scaled to
// width x height.
func NewCapture(device string, width, height int) (*Capture, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(images.ErrFrameSize, "capture %dx%d", width, height)
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if id, convErr := strconv.Atoi(device); convErr == nil {
		vc, err = gocv.OpenVideoCapture(id)
	} else {
		vc, err = gocv.OpenVideoCapture(device)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open capture %q", device)
	}

	return &Capture{
		vc:      vc,
		width:   width,
		height:  height,
		raw:     gocv.NewMat(),
		rgba:    gocv.NewMat(),
		resized: gocv.NewMat(),
	}, nil
}

// Next grabs the next frame. The end of a video file is io.EOF.
func (c *Capture) Next(ctx context.Context, f *images.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkFrame(f, c.width, c.height); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	if ok := c.vc.Read(&c.raw); !ok || c.raw.Empty() {
		return io.EOF
	}
	return matToFrame(c.raw, &c.rgba, &c.resized, f)
}

// matToFrame converts a BGR or BGRA Mat to RGBA, scales it to the frame and
// copies the pixels.
func matToFrame(src gocv.Mat, rgba, resized *gocv.Mat, f *images.Frame) error {
	code := gocv.ColorBGRToRGBA
	switch src.Channels() {
	case 1:
		code = gocv.ColorGrayToRGBA
	case 4:
		code = gocv.ColorBGRAToRGBA
	}
	gocv.CvtColor(src, rgba, code)

	out := rgba
	if rgba.Cols() != f.Width || rgba.Rows() != f.Height {
		gocv.Resize(*rgba, resized, image.Pt(f.Width, f.Height), 0, 0, gocv.InterpolationLinear)
		out = resized
	}

	data, err := out.DataPtrUint8()
	if err != nil {
		return errors.Wrap(err, "capture data")
	}
	if len(data) != len(f.Pix) {
		return errors.Wrapf(images.ErrFrameSize, "mat has %d bytes, frame %d", len(data), len(f.Pix))
	}
	copy(f.Pix, data)
	return nil
}

// Close releases the capture device and the conversion buffers.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.raw.Close()
	c.rgba.Close()
	c.resized.Close()
	return c.vc.Close()
}
