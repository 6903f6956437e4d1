package edges

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/nvr-ai/go-pixel/images/kernels"
)

// ErrInvalidConfig wraps every configuration problem reported by Validate.
var ErrInvalidConfig = errors.New("edges: invalid config")

// HysteresisMode selects how weak pixels are promoted.
type HysteresisMode int

const (
	// SinglePass promotes a weak pixel when one of its 8 neighbors was strong
	// after thresholding. Chains of weak pixels are not followed.
	SinglePass HysteresisMode = iota
	// Propagate repeats the promotion until no pixel changes, following weak
	// chains of any length.
	Propagate
)

// Thickening selects the optional post-processing applied to the mask.
type Thickening int

const (
	ThickenOff Thickening = iota
	// ThickenBox marks the 3x3 box around every strong pixel.
	ThickenBox
	// ThickenDirectional marks the two neighbors along each strong pixel's
	// quantized gradient direction, widening the edge across itself.
	ThickenDirectional
)

var hysteresisNames = map[HysteresisMode]string{
	SinglePass: "single-pass",
	Propagate:  "propagate",
}

var thickenNames = map[Thickening]string{
	ThickenOff:         "off",
	ThickenBox:         "box",
	ThickenDirectional: "directional",
}

func (m HysteresisMode) String() string { return nameOf(hysteresisNames, m) }

// MarshalText implements encoding.TextMarshaler.
func (m HysteresisMode) MarshalText() ([]byte, error) { return marshalName(hysteresisNames, m) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *HysteresisMode) UnmarshalText(text []byte) error {
	return unmarshalName(hysteresisNames, text, m)
}

func (t Thickening) String() string { return nameOf(thickenNames, t) }

// MarshalText implements encoding.TextMarshaler.
func (t Thickening) MarshalText() ([]byte, error) { return marshalName(thickenNames, t) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Thickening) UnmarshalText(text []byte) error {
	return unmarshalName(thickenNames, text, t)
}

// Config holds the detector parameters. Use DefaultConfig as a starting point.
type Config struct {
	// Blur is the pre-blur applied to the grayscale input.
	Blur kernels.BlurKind `json:"blur" yaml:"blur"`
	// BoxRadius is the radius of the box pre-blur.
	BoxRadius int `json:"box_radius" yaml:"box_radius"`
	// MedianWindow is the odd window size of the median pre-blur.
	MedianWindow int `json:"median_window" yaml:"median_window"`
	// BilateralRadius, SpatialSigma and RangeSigma parameterize the
	// bilateral pre-blur. BilateralDownsample > 1 runs it at reduced size.
	BilateralRadius     int     `json:"bilateral_radius" yaml:"bilateral_radius"`
	SpatialSigma        float32 `json:"spatial_sigma" yaml:"spatial_sigma"`
	RangeSigma          float32 `json:"range_sigma" yaml:"range_sigma"`
	BilateralDownsample int     `json:"bilateral_downsample" yaml:"bilateral_downsample"`
	// HighRatio is the strong threshold as a fraction of the maximum
	// suppressed magnitude.
	HighRatio float32 `json:"high_ratio" yaml:"high_ratio"`
	// LowRatio is the weak threshold as a fraction of the strong threshold.
	LowRatio   float32        `json:"low_ratio" yaml:"low_ratio"`
	Hysteresis HysteresisMode `json:"hysteresis" yaml:"hysteresis"`
	Thicken    Thickening     `json:"thicken" yaml:"thicken"`
	// Padding is the replicated border kept around every stage's output.
	// It must be at least 1 and at least the radius of the pre-blur kernel.
	Padding int `json:"padding" yaml:"padding"`
}

// DefaultConfig returns the detector defaults: Gaussian pre-blur, ratios
// 0.15 / 0.03, single-pass hysteresis, no thickening, padding 2.
func DefaultConfig() Config {
	return Config{
		Blur:                kernels.BlurGaussian,
		BoxRadius:           1,
		MedianWindow:        5,
		BilateralRadius:     2,
		SpatialSigma:        4,
		RangeSigma:          25,
		BilateralDownsample: 1,
		HighRatio:           0.15,
		LowRatio:            0.03,
		Hysteresis:          SinglePass,
		Thicken:             ThickenOff,
		Padding:             2,
	}
}

// RequiredPadding returns the smallest padding the configured stages accept.
func (c Config) RequiredPadding() int {
	p := 1 // Sobel and the 3x3 neighborhoods of the later stages.
	switch c.Blur {
	case kernels.BlurGaussian:
		p = max(p, kernels.GaussianRadius)
	case kernels.BlurBox:
		p = max(p, c.BoxRadius)
	}
	return p
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	add := func(format string, args ...any) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, format, args...))
	}

	if _, bad := c.Blur.MarshalText(); bad != nil {
		add("unknown blur %d", int(c.Blur))
	}
	if c.HighRatio <= 0 || c.HighRatio > 1 {
		add("high_ratio %v must be in (0, 1]", c.HighRatio)
	}
	if c.LowRatio <= 0 || c.LowRatio > 1 {
		add("low_ratio %v must be in (0, 1]", c.LowRatio)
	}
	if _, ok := hysteresisNames[c.Hysteresis]; !ok {
		add("unknown hysteresis mode %d", int(c.Hysteresis))
	}
	if _, ok := thickenNames[c.Thicken]; !ok {
		add("unknown thickening %d", int(c.Thicken))
	}

	switch c.Blur {
	case kernels.BlurBox:
		if c.BoxRadius < 1 {
			add("box_radius %d must be >= 1", c.BoxRadius)
		}
	case kernels.BlurMedian:
		if c.MedianWindow < 1 || c.MedianWindow%2 == 0 {
			add("median_window %d must be odd and >= 1", c.MedianWindow)
		}
	case kernels.BlurBilateral:
		if c.BilateralRadius < 1 {
			add("bilateral_radius %d must be >= 1", c.BilateralRadius)
		}
		if c.SpatialSigma <= 0 || c.RangeSigma <= 0 {
			add("bilateral sigmas %v/%v must be > 0", c.SpatialSigma, c.RangeSigma)
		}
		if c.BilateralDownsample < 1 {
			add("bilateral_downsample %d must be >= 1", c.BilateralDownsample)
		}
	}

	if c.Padding < 1 {
		add("padding %d must be >= 1", c.Padding)
	} else if req := c.RequiredPadding(); c.Padding < req {
		add("padding %d is smaller than the %s kernel radius %d", c.Padding, c.Blur, req)
	}

	return err
}

func nameOf[K comparable](names map[K]string, k K) string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("%T(%v)", k, k)
}

func marshalName[K comparable](names map[K]string, k K) ([]byte, error) {
	s, ok := names[k]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidConfig, "unknown value %v", k)
	}
	return []byte(s), nil
}

func unmarshalName[K comparable](names map[K]string, text []byte, dst *K) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for k, s := range names {
		if s == name {
			*dst = k
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidConfig, "unknown value %q", name)
}
