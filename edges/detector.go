// Package edges implements a Canny-style edge detector over reusable scratch
// grids: pre-blur, Sobel gradients, non-maximum suppression, double
// threshold, hysteresis and optional thickening.
//
// Every stage reads a grid whose border has been padded, writes the interior
// of another grid, and re-pads it before the next stage runs. Stages are
// sequential; each one fans out over row ranges on the shared pool.
package edges

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/images/kernels"
	"github.com/nvr-ai/go-pixel/parallel"
)

// Edge classes stored in the mask. The values double as gray levels so a
// mask can be displayed directly.
const (
	None   float32 = 0
	Weak   float32 = 128
	Strong float32 = 255
)

// Tracker receives stage timings. profiler.RuntimeProfiler satisfies it.
type Tracker interface {
	StartOperation(name string) func()
}

// Detector owns all scratch grids for one frame geometry. It is not safe for
// concurrent use; a single goroutine calls Detect once per frame.
type Detector struct {
	cfg  Config
	pool *parallel.Pool

	rows, cols int

	input *grid.Grid[float32] // grayscale in, pre-blurred in place
	tmp   *grid.Grid[float32] // ping-pong partner
	gx    *grid.Grid[float32]
	gy    *grid.Grid[float32]
	mag   *grid.Grid[float32] // magnitude, then suppressed magnitude
	angle *grid.Grid[float32] // gradient direction in radians
	mask  *grid.Grid[float32] // final classes

	sobelX, sobelY, square *grid.Grid[float32]
	bilateral              *kernels.Downsampler

	tracker Tracker
}

// NewDetector validates cfg and allocates every grid the stages need.
func NewDetector(rows, cols int, cfg Config, pool *parallel.Pool) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rows <= 2*cfg.Padding || cols <= 2*cfg.Padding {
		return nil, errors.Wrapf(ErrInvalidConfig, "%dx%d frame too small for padding %d", cols, rows, cfg.Padding)
	}

	d := &Detector{
		pool:   pool,
		rows:   rows,
		cols:   cols,
		input:  grid.New[float32](rows, cols),
		tmp:    grid.New[float32](rows, cols),
		gx:     grid.New[float32](rows, cols),
		gy:     grid.New[float32](rows, cols),
		mag:    grid.New[float32](rows, cols),
		angle:  grid.New[float32](rows, cols),
		mask:   grid.New[float32](rows, cols),
		sobelX: kernels.SobelX(),
		sobelY: kernels.SobelY(),
		square: kernels.Square(3),
	}
	if err := d.Reconfigure(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// Reconfigure swaps parameters without reallocating the stage grids. The
// bilateral pre-blur buffers are sized here, once per configuration.
func (d *Detector) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if d.rows <= 2*cfg.Padding || d.cols <= 2*cfg.Padding {
		return errors.Wrapf(ErrInvalidConfig, "%dx%d frame too small for padding %d", d.cols, d.rows, cfg.Padding)
	}

	d.bilateral = nil
	if cfg.Blur == kernels.BlurBilateral {
		b, err := kernels.NewBilateral(cfg.BilateralRadius, cfg.SpatialSigma, cfg.RangeSigma)
		if err != nil {
			return errors.Wrap(err, "bilateral pre-blur")
		}
		ds, err := kernels.NewDownsampler(b, d.rows, d.cols, cfg.BilateralDownsample)
		if err != nil {
			return errors.Wrap(err, "bilateral pre-blur")
		}
		d.bilateral = ds
	}
	d.cfg = cfg
	return nil
}

// SetTracker installs a receiver for per-stage timings.
func (d *Detector) SetTracker(t Tracker) { d.tracker = t }

// Config returns the active configuration.
func (d *Detector) Config() Config { return d.cfg }

// Input returns the grid callers fill with grayscale intensities before
// calling Detect. Detect modifies it in place.
func (d *Detector) Input() *grid.Grid[float32] { return d.input }

// Mask returns the result of the last Detect.
func (d *Detector) Mask() *grid.Grid[float32] { return d.mask }

// Magnitude returns the suppressed gradient magnitudes of the last Detect.
func (d *Detector) Magnitude() *grid.Grid[float32] { return d.mag }

// Detect runs every stage over the current input and returns the mask. The
// returned grid is owned by the detector and valid until the next call.
func (d *Detector) Detect() (*grid.Grid[float32], error) {
	stages := []struct {
		name string
		run  func() error
	}{
		{"edges.blur", d.blur},
		{"edges.gradient", d.gradient},
		{"edges.suppress", d.suppress},
		{"edges.threshold", d.threshold},
		{"edges.hysteresis", d.hysteresis},
		{"edges.thicken", d.thicken},
	}

	for _, s := range stages {
		done := d.track(s.name)
		err := s.run()
		done()
		if err != nil {
			return nil, errors.Wrap(err, s.name)
		}
	}
	return d.mask, nil
}

func (d *Detector) track(name string) func() {
	if d.tracker == nil {
		return func() {}
	}
	return d.tracker.StartOperation(name)
}

func (d *Detector) opts() grid.Options {
	return grid.Options{Padding: d.cfg.Padding, Pool: d.pool}
}
