// Package config loads, validates and watches the engine's YAML
// configuration.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-pixel/controller"
	"github.com/nvr-ai/go-pixel/edges"
	"github.com/nvr-ai/go-pixel/images"
	"github.com/nvr-ai/go-pixel/images/kernels"
	"github.com/nvr-ai/go-pixel/logging"
)

// ErrInvalid wraps every problem reported by Validate.
var ErrInvalid = errors.New("config: invalid")

// Overlay selects how the edge mask is drawn onto the frame.
type Overlay string

const (
	// OverlayDark paints edge pixels black over the image.
	OverlayDark Overlay = "dark"
	// OverlayMask replaces the frame with the gray mask.
	OverlayMask Overlay = "mask"
	// OverlayNone computes edges without drawing them.
	OverlayNone Overlay = "none"
)

// Geometry is the fixed frame size of a run, either a named preset or explicit
// dimensions. Explicit dimensions win when both are set.
type Geometry struct {
	Preset string `json:"preset" yaml:"preset"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// Blur parameterizes the pre-blur of the edge detector and the color
// denoiser.
type Blur struct {
	Kind            kernels.BlurKind `json:"kind" yaml:"kind"`
	BoxRadius       int              `json:"box_radius" yaml:"box_radius"`
	MedianWindow    int              `json:"median_window" yaml:"median_window"`
	BilateralRadius int              `json:"bilateral_radius" yaml:"bilateral_radius"`
	SpatialSigma    float32          `json:"spatial_sigma" yaml:"spatial_sigma"`
	RangeSigma      float32          `json:"range_sigma" yaml:"range_sigma"`
	Downsample      int              `json:"downsample" yaml:"downsample"`
}

// Edges configures edge detection and its overlay.
type Edges struct {
	Enabled    bool                 `json:"enabled" yaml:"enabled"`
	HighRatio  float32              `json:"high_ratio" yaml:"high_ratio"`
	LowRatio   float32              `json:"low_ratio" yaml:"low_ratio"`
	Thicken    edges.Thickening     `json:"thicken" yaml:"thicken"`
	Hysteresis edges.HysteresisMode `json:"hysteresis" yaml:"hysteresis"`
	Overlay    Overlay              `json:"overlay" yaml:"overlay"`
}

// Palette configures color quantization.
type Palette struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Size is the maximum number of palette colors.
	Size int `json:"size" yaml:"size"`
	// AutoRefresh rebuilds the palette when the scene changes.
	AutoRefresh     bool    `json:"auto_refresh" yaml:"auto_refresh"`
	RefreshDistance float64 `json:"refresh_distance" yaml:"refresh_distance"`
	RefreshFrames   int     `json:"refresh_frames" yaml:"refresh_frames"`
	// SplitColumn recolors only columns right of it; -1 recolors everything.
	SplitColumn int `json:"split_column" yaml:"split_column"`
}

// Effects are optional whole-frame color effects.
type Effects struct {
	// Denoise runs the color bilateral filter before everything else.
	Denoise bool `json:"denoise" yaml:"denoise"`
	// Saturation scales HSV saturation; 1 disables the effect.
	Saturation float64 `json:"saturation" yaml:"saturation"`
	// Pixelate is the block size; 0 or 1 disables the effect.
	Pixelate int `json:"pixelate" yaml:"pixelate"`
}

// Profile configures the runtime profiler.
type Profile struct {
	ReportInterval time.Duration `json:"report_interval" yaml:"report_interval"`
}

// Config is the root configuration document.
type Config struct {
	Geometry Geometry       `json:"geometry" yaml:"geometry"`
	Workers  int            `json:"workers" yaml:"workers"`
	Padding  int            `json:"padding" yaml:"padding"`
	Blur     Blur           `json:"blur" yaml:"blur"`
	Edges    Edges          `json:"edges" yaml:"edges"`
	Palette  Palette        `json:"palette" yaml:"palette"`
	Effects  Effects        `json:"effects" yaml:"effects"`
	Log      logging.Config `json:"log" yaml:"log"`
	Profile  Profile        `json:"profile" yaml:"profile"`
}

// Default returns a configuration for 1280x720 frames with edge detection on
// and the palette off.
func Default() *Config {
	ec := edges.DefaultConfig()
	th := controller.DefaultThresholds()
	return &Config{
		Geometry: Geometry{Preset: string(images.ResolutionTypeHD720p)},
		Padding:  ec.Padding,
		Blur: Blur{
			Kind:            ec.Blur,
			BoxRadius:       ec.BoxRadius,
			MedianWindow:    ec.MedianWindow,
			BilateralRadius: ec.BilateralRadius,
			SpatialSigma:    ec.SpatialSigma,
			RangeSigma:      ec.RangeSigma,
			Downsample:      ec.BilateralDownsample,
		},
		Edges: Edges{
			Enabled:    true,
			HighRatio:  ec.HighRatio,
			LowRatio:   ec.LowRatio,
			Thicken:    ec.Thicken,
			Hysteresis: ec.Hysteresis,
			Overlay:    OverlayDark,
		},
		Palette: Palette{
			Size:            100,
			RefreshDistance: th.Distance,
			RefreshFrames:   th.HysteresisFrames,
			SplitColumn:     -1,
		},
		Effects: Effects{Saturation: 1},
		Log:     logging.DefaultConfig(),
		Profile: Profile{ReportInterval: 2 * time.Second},
	}
}

// Parse decodes a YAML document on top of the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Size resolves the frame geometry from the explicit dimensions or the
// preset name.
func (c *Config) Size() (images.Resolution, error) {
	g := c.Geometry
	if g.Width > 0 || g.Height > 0 {
		if g.Width <= 0 || g.Height <= 0 {
			return images.Resolution{}, errors.Wrapf(ErrInvalid, "geometry %dx%d", g.Width, g.Height)
		}
		return images.Resolution{Name: "custom", Width: g.Width, Height: g.Height}, nil
	}
	return images.LookupResolution(g.Preset)
}

// EdgeConfig returns the detector configuration.
func (c *Config) EdgeConfig() edges.Config {
	return edges.Config{
		Blur:                c.Blur.Kind,
		BoxRadius:           c.Blur.BoxRadius,
		MedianWindow:        c.Blur.MedianWindow,
		BilateralRadius:     c.Blur.BilateralRadius,
		SpatialSigma:        c.Blur.SpatialSigma,
		RangeSigma:          c.Blur.RangeSigma,
		BilateralDownsample: c.Blur.Downsample,
		HighRatio:           c.Edges.HighRatio,
		LowRatio:            c.Edges.LowRatio,
		Hysteresis:          c.Edges.Hysteresis,
		Thicken:             c.Edges.Thicken,
		Padding:             c.Padding,
	}
}

// Thresholds returns the palette refresh thresholds.
func (c *Config) Thresholds() controller.Thresholds {
	return controller.Thresholds{
		Distance:         c.Palette.RefreshDistance,
		HysteresisFrames: c.Palette.RefreshFrames,
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var err error
	add := func(format string, args ...any) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalid, format, args...))
	}

	res, gerr := c.Size()
	if gerr != nil {
		err = multierr.Append(err, gerr)
	}
	if c.Workers < 0 {
		add("workers %d must be >= 0", c.Workers)
	}

	err = multierr.Append(err, c.EdgeConfig().Validate())
	if gerr == nil && (res.Width <= 2*c.Padding || res.Height <= 2*c.Padding) {
		add("geometry %dx%d too small for padding %d", res.Width, res.Height, c.Padding)
	}

	switch c.Edges.Overlay {
	case OverlayDark, OverlayMask, OverlayNone:
	default:
		add("overlay %q must be dark, mask or none", c.Edges.Overlay)
	}

	if c.Palette.Size < 1 || c.Palette.Size > 1<<24 {
		add("palette size %d must be in [1, 16777216]", c.Palette.Size)
	}
	if c.Palette.AutoRefresh {
		err = multierr.Append(err, c.Thresholds().Validate())
	}

	if c.Effects.Saturation < 0 {
		add("saturation %v must be >= 0", c.Effects.Saturation)
	}
	if c.Effects.Pixelate < 0 {
		add("pixelate %d must be >= 0", c.Effects.Pixelate)
	}
	if c.Effects.Denoise {
		if c.Blur.BilateralRadius < 1 || c.Blur.SpatialSigma <= 0 || c.Blur.RangeSigma <= 0 {
			add("denoise needs bilateral_radius >= 1 and positive sigmas")
		}
	}

	if lerr := c.Log.Validate(); lerr != nil {
		err = multierr.Append(err, errors.Wrap(ErrInvalid, lerr.Error()))
	}
	if c.Profile.ReportInterval < 0 {
		add("profile report_interval %v must be >= 0", c.Profile.ReportInterval)
	}
	return err
}
