// Command viewer reads frames from a camera, a video, a directory of images
// or raw RGBA on stdin, runs them through the pixel pipeline and shows or
// saves the result.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-pixel/config"
	"github.com/nvr-ai/go-pixel/images"
	"github.com/nvr-ai/go-pixel/logging"
	"github.com/nvr-ai/go-pixel/pipeline"
	"github.com/nvr-ai/go-pixel/profiler"
	"github.com/nvr-ai/go-pixel/snapshot"
	"github.com/nvr-ai/go-pixel/source"
)

const (
	// keyEscape closes the window.
	keyEscape = 27
	// queueDepth is the number of frames between reader and processor.
	queueDepth = 2
)

// errStopped ends the run without reporting an error.
var errStopped = errors.New("viewer stopped")

func main() {
	app := &cli.App{
		Name:  "viewer",
		Usage: "run the pixel pipeline on a live or recorded frame source",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file, reloaded on change"},
			&cli.StringFlag{Name: "source", Value: "ffmpeg", Usage: "frame source: ffmpeg, capture, dir or stdin"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "file, URL or directory to read"},
			&cli.StringFlag{Name: "device", Value: source.DefaultDevice, Usage: "camera device or index when no input is given"},
			&cli.BoolFlag{Name: "loop", Usage: "restart file and directory inputs at their end"},
			&cli.IntFlag{Name: "fps", Usage: "resample ffmpeg input to this frame rate"},
			&cli.BoolFlag{Name: "window", Usage: "show processed frames in an OpenCV window"},
			&cli.BoolFlag{Name: "palette", Usage: "enable palette quantization regardless of the config"},
			&cli.StringFlag{Name: "snapshot-dir", Usage: "directory for saved frames"},
			&cli.IntFlag{Name: "snapshot-every", Value: 30, Usage: "save every n-th frame when snapshot-dir is set"},
			&cli.IntFlag{Name: "max-frames", Usage: "stop after n frames, 0 runs until the source ends"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if c.Bool("palette") {
		cfg.Palette.Enabled = true
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	prof := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{ReportInterval: cfg.Profile.ReportInterval}, logger)
	prof.Start(ctx)
	defer prof.Stop()

	pipe, err := pipeline.New(cfg, logger, pipeline.WithTracker(prof))
	if err != nil {
		return err
	}
	defer pipe.Close()

	size := pipe.Size()
	src, err := openSource(ctx, c, size, logger)
	if err != nil {
		return err
	}
	closeSource := closeOnce(src, logger)
	defer closeSource()

	var snaps *snapshot.Writer
	if dir := c.String("snapshot-dir"); dir != "" {
		if snaps, err = snapshot.NewWriter(dir, c.Int("snapshot-every"), "png"); err != nil {
			return err
		}
	}

	logger.Info("viewer started",
		zap.String("source", c.String("source")),
		zap.Stringer("geometry", size),
		zap.Bool("window", c.Bool("window")),
	)

	g, gctx := errgroup.WithContext(ctx)
	// Closing the source ends a read blocked on a stalled stream.
	go func() {
		<-gctx.Done()
		closeSource()
	}()

	frames := make(chan *images.Frame, queueDepth)
	free := make(chan *images.Frame, queueDepth+1)
	for i := 0; i < cap(free); i++ {
		free <- size.NewFrame()
	}

	g.Go(func() error {
		defer close(frames)
		return readFrames(gctx, src, free, frames)
	})

	g.Go(func() error {
		p := &processor{
			pipe:      pipe,
			prof:      prof,
			logger:    logger,
			snaps:     snaps,
			maxFrames: c.Int("max-frames"),
		}
		if c.Bool("window") {
			p.window = gocv.NewWindow("go-pixel")
			defer p.window.Close()
		}
		return p.loop(gctx, frames, free)
	})

	if path := c.String("config"); path != "" {
		watchPalette := c.Bool("palette")
		g.Go(func() error {
			return config.Watch(gctx, path, logger, func(next *config.Config) {
				if watchPalette {
					next.Palette.Enabled = true
				}
				if err := pipe.Reconfigure(next); err != nil {
					logger.Warn("config reload rejected", zap.Error(err))
					return
				}
				logger.Info("config reloaded", zap.String("path", path))
			})
		})
	}

	err = g.Wait()
	if errors.Is(err, errStopped) || errors.Is(err, context.Canceled) {
		err = nil
	}
	r := prof.Snapshot()
	logger.Info("viewer finished", zap.Uint64("frames", r.Frames), zap.Duration("uptime", r.Uptime))
	return err
}

func openSource(ctx context.Context, c *cli.Context, size images.Resolution, logger *zap.Logger) (source.Source, error) {
	input := c.String("input")
	switch kind := c.String("source"); kind {
	case "ffmpeg":
		opts := source.FFmpegOptions{
			Input:  input,
			Width:  size.Width,
			Height: size.Height,
			FPS:    c.Int("fps"),
			Loop:   c.Bool("loop"),
		}
		if input == "" && c.String("device") != source.DefaultDevice {
			opts.Input = c.String("device")
			opts.InputArgs = map[string]any{"f": "v4l2"}
		}
		return source.NewFFmpeg(ctx, opts, logger)
	case "capture":
		if input == "" {
			input = c.String("device")
		}
		return source.NewCapture(input, size.Width, size.Height)
	case "dir":
		if input == "" {
			return nil, errors.New("dir source needs --input")
		}
		return source.NewDirectory(input, size.Width, size.Height, c.Bool("loop"))
	case "stdin":
		return source.NewStdin(size.Width, size.Height), nil
	default:
		return nil, errors.Errorf("unknown source %q", kind)
	}
}

// closeOnce returns a function closing src on its first call.
func closeOnce(src source.Source, logger *zap.Logger) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := src.Close(); err != nil {
				logger.Debug("close source", zap.Error(err))
			}
		})
	}
}

// readFrames fills recycled frames until the source ends.
func readFrames(ctx context.Context, src source.Source, free <-chan *images.Frame, frames chan<- *images.Frame) error {
	for {
		var f *images.Frame
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f = <-free:
		}

		if err := src.Next(ctx, f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "read frame")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case frames <- f:
		}
	}
}

type processor struct {
	pipe      *pipeline.Pipeline
	prof      *profiler.RuntimeProfiler
	logger    *zap.Logger
	snaps     *snapshot.Writer
	window    *gocv.Window
	maxFrames int

	frames int
}

func (p *processor) loop(ctx context.Context, frames <-chan *images.Frame, free chan<- *images.Frame) error {
	bgr := gocv.NewMat()
	defer bgr.Close()

	for f := range frames {
		if err := p.handle(f, &bgr); err != nil {
			return err
		}
		free <- f

		if p.maxFrames > 0 && p.frames >= p.maxFrames {
			return errStopped
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	p.logger.Info("source ended", zap.Int("frames", p.frames))
	return errStopped
}

func (p *processor) handle(f *images.Frame, bgr *gocv.Mat) error {
	res, err := p.pipe.Process(f)
	if err != nil {
		return err
	}
	p.frames++
	p.prof.FrameDone()
	if res.PaletteRefreshed {
		p.logger.Debug("palette refreshed", zap.Int("frame", p.frames), zap.Int("colors", res.PaletteSize))
	}

	if p.snaps != nil {
		path, err := p.snaps.Observe(f)
		if err != nil {
			p.logger.Warn("snapshot failed", zap.Error(err))
		} else if path != "" {
			p.logger.Debug("snapshot saved", zap.String("path", path))
		}
	}

	if p.window == nil {
		return nil
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
	if err != nil {
		return errors.Wrap(err, "frame to mat")
	}
	defer mat.Close()
	gocv.CvtColor(mat, bgr, gocv.ColorRGBAToBGR)
	p.window.IMShow(*bgr)
	if p.window.WaitKey(1) == keyEscape {
		return errStopped
	}
	return nil
}
