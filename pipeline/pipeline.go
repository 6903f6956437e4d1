// Package pipeline runs the per-frame processing: optional denoise and
// saturation, edge detection, palette quantization, overlay and pixelation.
//
// A Pipeline is built once for the configured geometry. Every buffer it needs
// is allocated up front and reused for each frame.
package pipeline

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-pixel/colors"
	"github.com/nvr-ai/go-pixel/config"
	"github.com/nvr-ai/go-pixel/controller"
	"github.com/nvr-ai/go-pixel/edges"
	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/images"
	"github.com/nvr-ai/go-pixel/images/kernels"
	"github.com/nvr-ai/go-pixel/octree"
	"github.com/nvr-ai/go-pixel/parallel"
)

// ErrGeometryChanged is returned by Reconfigure when the new configuration
// describes a different frame size.
var ErrGeometryChanged = errors.New("pipeline: geometry cannot change at runtime")

// Feature names reported in Result.Skipped and used as stage names.
const (
	FeatureDenoise    = "denoise"
	FeatureSaturation = "saturation"
	FeatureEdges      = "edges"
	FeaturePalette    = "palette"
	FeatureOverlay    = "overlay"
	FeaturePixelate   = "pixelate"
)

// StageFrame is the stage name covering a whole Process call. Features are
// tracked as "pipeline.<feature>".
const StageFrame = "pipeline.process"

// Result describes what happened to one frame.
type Result struct {
	// Edges is true when the edge mask was computed for this frame.
	Edges bool
	// PaletteSize is the number of colors applied, 0 when no palette was
	// applied.
	PaletteSize int
	// PaletteRefreshed is true when the palette was rebuilt from this frame.
	PaletteRefreshed bool
	// Skipped lists features that failed and were left out for this frame.
	Skipped []string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithPool runs stages on a shared pool instead of a private one. The pool
// is not closed by Close.
func WithPool(p *parallel.Pool) Option {
	return func(pl *Pipeline) {
		pl.pool = p
		pl.ownPool = false
	}
}

// WithTracker reports stage timings, typically to a profiler.
func WithTracker(t edges.Tracker) Option {
	return func(pl *Pipeline) { pl.tracker = t }
}

// Pipeline owns the per-geometry state. Methods are serialized by an
// internal lock, so Reconfigure and palette commands issued from other
// goroutines take effect between frames.
type Pipeline struct {
	mu sync.Mutex

	cfg     *config.Config
	size    images.Resolution
	logger  *zap.Logger
	pool    *parallel.Pool
	ownPool bool
	tracker edges.Tracker

	detector *edges.Detector
	denoise  *kernels.Bilateral
	colorIn  *grid.Grid[colors.RGBA]
	colorOut *grid.Grid[colors.RGBA]

	quant         *octree.Quantizer
	ctrl          *controller.PaletteController
	paletteActive bool
}

// New validates cfg and allocates a pipeline for its geometry.
//
// Arguments:
//   - cfg: The validated configuration. The pipeline keeps a copy.
//   - logger: Destination for warnings about skipped features, nil discards.
//   - opts: Optional pool and tracker.
//
// Returns:
//   - *Pipeline: The ready pipeline.
//   - error: An error if the configuration is invalid.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	size, err := cfg.Size()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		cfg:     copyConfig(cfg),
		size:    size,
		logger:  logger.Named("pipeline"),
		ownPool: true,
		quant:   octree.New(),
		ctrl:    controller.New(cfg.Thresholds()),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ownPool {
		p.pool = parallel.NewPool(cfg.Workers)
	}

	p.detector, err = edges.NewDetector(size.Height, size.Width, cfg.EdgeConfig(), p.pool)
	if err != nil {
		p.Close()
		return nil, errors.Wrap(err, "edge detector")
	}
	if p.tracker != nil {
		p.detector.SetTracker(p.tracker)
	}
	if err := p.setDenoise(cfg); err != nil {
		p.Close()
		return nil, err
	}

	p.logger.Info("pipeline ready",
		zap.Stringer("geometry", size),
		zap.Int("workers", p.pool.Workers()),
		zap.Stringer("blur", cfg.Blur.Kind),
	)
	return p, nil
}

func (p *Pipeline) setDenoise(cfg *config.Config) error {
	p.denoise = nil
	if !cfg.Effects.Denoise {
		return nil
	}
	b, err := kernels.NewBilateral(cfg.Blur.BilateralRadius, cfg.Blur.SpatialSigma, cfg.Blur.RangeSigma)
	if err != nil {
		return errors.Wrap(err, "denoise filter")
	}
	p.denoise = b
	if p.colorIn == nil {
		p.colorIn = grid.New[colors.RGBA](p.size.Height, p.size.Width)
		p.colorOut = grid.New[colors.RGBA](p.size.Height, p.size.Width)
	}
	return nil
}

// Size returns the frame geometry the pipeline was built for.
func (p *Pipeline) Size() images.Resolution { return p.size }

// Config returns a copy of the active configuration.
func (p *Pipeline) Config() *config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyConfig(p.cfg)
}

// Process runs every enabled feature over f in place.
//
// A frame with the wrong geometry is rejected with an error. Failures inside a
// feature are not returned: the feature is skipped for this frame, logged at
// warn level and listed in Result.Skipped.
func (p *Pipeline) Process(f *images.Frame) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var res Result
	if err := f.Validate(); err != nil {
		return res, err
	}
	if f.Width != p.size.Width || f.Height != p.size.Height {
		return res, errors.Wrapf(images.ErrFrameSize, "frame %dx%d, pipeline %dx%d", f.Width, f.Height, p.size.Width, p.size.Height)
	}
	defer p.track(StageFrame)()

	cfg := p.cfg
	if p.denoise != nil {
		p.run(&res, FeatureDenoise, func() error { return p.denoiseFrame(f) })
	}
	if cfg.Effects.Saturation != 1 {
		p.run(&res, FeatureSaturation, func() error {
			return images.BoostSaturation(f, cfg.Effects.Saturation, p.pool)
		})
	}
	if cfg.Edges.Enabled {
		res.Edges = p.run(&res, FeatureEdges, func() error {
			if err := images.ToGray(f, p.detector.Input(), p.pool); err != nil {
				return err
			}
			_, err := p.detector.Detect()
			return err
		})
	}
	if cfg.Palette.Enabled {
		p.run(&res, FeaturePalette, func() error { return p.applyPalette(f, &res) })
	}
	if res.Edges && cfg.Edges.Overlay != config.OverlayNone {
		p.run(&res, FeatureOverlay, func() error { return p.overlay(f) })
	}
	if cfg.Effects.Pixelate > 1 {
		p.run(&res, FeaturePixelate, func() error {
			return images.Pixelate(f, cfg.Effects.Pixelate, p.pool)
		})
	}
	return res, nil
}

// run executes one feature under its stage name and reports whether it
// succeeded.
func (p *Pipeline) run(res *Result, feature string, fn func() error) bool {
	done := p.track("pipeline." + feature)
	err := fn()
	done()
	if err != nil {
		p.skip(res, feature, err)
		return false
	}
	return true
}

func (p *Pipeline) skip(res *Result, feature string, err error) {
	p.logger.Warn("feature skipped for frame", zap.String("feature", feature), zap.Error(err))
	res.Skipped = append(res.Skipped, feature)
}

func (p *Pipeline) track(name string) func() {
	if p.tracker == nil {
		return func() {}
	}
	return p.tracker.StartOperation(name)
}

func (p *Pipeline) denoiseFrame(f *images.Frame) error {
	if err := images.ToColorGrid(f, p.colorIn, p.pool); err != nil {
		return err
	}
	if err := p.denoise.Color(p.colorIn, p.colorOut, p.pool); err != nil {
		return err
	}
	return images.FromColorGrid(p.colorOut, f, p.pool)
}

func (p *Pipeline) applyPalette(f *images.Frame, res *Result) error {
	refresh := !p.paletteActive
	if !refresh && p.cfg.Palette.AutoRefresh {
		hist := frameHistogram(f)
		refresh = p.ctrl.Decide(&hist)
		if refresh {
			p.logger.Debug("scene changed, rebuilding palette", zap.Float64("distance", p.ctrl.LastDistance))
		}
	}
	if refresh {
		if err := p.regenerate(f); err != nil {
			return err
		}
		res.PaletteRefreshed = true
	}

	if err := images.ApplyPaletteSplit(f, p.quant, p.cfg.Palette.SplitColumn, p.pool); err != nil {
		return err
	}
	res.PaletteSize = len(p.quant.Palette())
	return nil
}

func (p *Pipeline) regenerate(f *images.Frame) error {
	defer p.track("pipeline.palette.build")()

	p.paletteActive = false
	p.quant.Reset()
	if err := images.FeedQuantizer(f, p.quant); err != nil {
		return err
	}
	palette, err := p.quant.MakePalette(p.cfg.Palette.Size)
	if err != nil {
		return err
	}
	hist := p.quant.LuminanceHistogram()
	p.ctrl.Reset(&hist)
	p.paletteActive = true
	p.logger.Debug("palette built", zap.Int("colors", len(palette)), zap.Int("nodes", p.quant.Len()))
	return nil
}

func (p *Pipeline) overlay(f *images.Frame) error {
	mask := p.detector.Mask()
	switch p.cfg.Edges.Overlay {
	case config.OverlayMask:
		return images.FillGray(mask, f, p.pool)
	default:
		return images.DarkenEdges(f, mask, colors.Black, p.pool)
	}
}

// RegeneratePalette builds a new palette from f. It is applied by Process
// while the palette feature is enabled.
func (p *Pipeline) RegeneratePalette(f *images.Frame) ([]colors.RGB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.regenerate(f); err != nil {
		return nil, err
	}
	return p.quant.Palette(), nil
}

// ClearPalette drops the current palette. The next frame processed with the
// palette feature enabled builds a new one.
func (p *Pipeline) ClearPalette() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearPalette()
}

func (p *Pipeline) clearPalette() {
	p.paletteActive = false
	p.quant.Reset()
	p.ctrl.Forget()
}

// Palette returns the active palette, nil when there is none.
func (p *Pipeline) Palette() []colors.RGB {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paletteActive {
		return nil
	}
	return p.quant.Palette()
}

// Reconfigure applies a new configuration between frames. The geometry must
// not change; the worker count of an existing pool is kept.
func (p *Pipeline) Reconfigure(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	size, err := cfg.Size()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if size.Width != p.size.Width || size.Height != p.size.Height {
		return errors.Wrapf(ErrGeometryChanged, "%dx%d to %dx%d", p.size.Width, p.size.Height, size.Width, size.Height)
	}
	if err := p.detector.Reconfigure(cfg.EdgeConfig()); err != nil {
		return err
	}
	if err := p.setDenoise(cfg); err != nil {
		return err
	}
	p.ctrl.Thresholds = cfg.Thresholds()
	if cfg.Palette.Size != p.cfg.Palette.Size {
		p.clearPalette()
	}
	if cfg.Workers != p.cfg.Workers {
		p.logger.Info("worker count change takes effect on restart", zap.Int("workers", cfg.Workers))
	}
	p.cfg = copyConfig(cfg)
	return nil
}

// Mask returns the edge mask of the last frame. It is owned by the pipeline
// and only valid until the next Process.
func (p *Pipeline) Mask() *grid.Grid[float32] {
	return p.detector.Mask()
}

// Close releases the private worker pool.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ownPool && p.pool != nil {
		p.pool.Close()
	}
}

func frameHistogram(f *images.Frame) octree.Histogram {
	var h octree.Histogram
	for i := 0; i < len(f.Pix); i += images.BytesPerPixel {
		h.Add(colors.RGB{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2]})
	}
	return h
}

func copyConfig(c *config.Config) *config.Config {
	cp := *c
	return &cp
}
