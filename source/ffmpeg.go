package source

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/nvr-ai/go-pixel/images"
)

// DefaultDevice is read when no ffmpeg input is given.
const DefaultDevice = "/dev/video0"

// FFmpegOptions configures an ffmpeg frame source.
type FFmpegOptions struct {
	// Input is any ffmpeg input: a file, URL or device. Empty reads
	// DefaultDevice through v4l2.
	Input string
	// InputArgs are extra input options such as {"f": "lavfi"}.
	InputArgs map[string]any
	// Width and Height are the output geometry; ffmpeg scales to it.
	Width, Height int
	// FPS resamples the output frame rate when > 0.
	FPS int
	// Loop restarts file inputs at their end.
	Loop bool
}

// FFmpeg decodes any ffmpeg input to raw RGBA on a pipe.
type FFmpeg struct {
	*Raw
	cancel context.CancelFunc
	pipe   *io.PipeReader
	done   chan struct{}
}

var _ Source = (*FFmpeg)(nil)

// NewFFmpeg starts ffmpeg. The process runs until its input ends, ctx is
// cancelled or Close is called.
func NewFFmpeg(ctx context.Context, opts FFmpegOptions, logger *zap.Logger) (*FFmpeg, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.Wrap(err, "ffmpeg not found")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.Wrapf(images.ErrFrameSize, "ffmpeg output %dx%d", opts.Width, opts.Height)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	in := ffmpeg.KwArgs{}
	for k, v := range opts.InputArgs {
		in[k] = v
	}
	input := opts.Input
	if input == "" {
		input = DefaultDevice
		if _, ok := in["f"]; !ok {
			in["f"] = "v4l2"
		}
	}
	if opts.Loop {
		in["stream_loop"] = -1
	}
	out := ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", opts.Width, opts.Height),
	}
	if opts.FPS > 0 {
		out["r"] = opts.FPS
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	stderr := &zapio.Writer{Log: logger.Named("ffmpeg"), Level: zapcore.DebugLevel}

	stream := ffmpeg.Input(input, in).Output("pipe:", out).WithOutput(pw).WithErrorOutput(stderr)
	stream.Context = ctx

	s := &FFmpeg{
		Raw:    NewRaw(pr, opts.Width, opts.Height),
		cancel: cancel,
		pipe:   pr,
		done:   make(chan struct{}),
	}
	logger.Info("starting ffmpeg", zap.String("input", input), zap.Int("width", opts.Width), zap.Int("height", opts.Height))

	go func() {
		defer close(s.done)
		defer stderr.Close()
		err := stream.Run()
		if err != nil && ctx.Err() == nil {
			pw.CloseWithError(errors.Wrap(err, "ffmpeg"))
			return
		}
		pw.Close()
	}()
	return s, nil
}

// Close stops ffmpeg and waits for it to exit.
func (s *FFmpeg) Close() error {
	s.cancel()
	s.pipe.Close()
	<-s.done
	return nil
}
