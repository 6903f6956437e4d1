// Package controller decides when the palette should be rebuilt for the
// current scene.
package controller

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/nvr-ai/go-pixel/octree"
)

// ErrInvalidThresholds is returned by Validate.
var ErrInvalidThresholds = errors.New("controller: invalid thresholds")

// Thresholds configures the refresh decision.
type Thresholds struct {
	// Distance is the histogram distance in [0, 1] above which a frame counts
	// as a scene change.
	Distance float64 `json:"distance" yaml:"distance"`
	// HysteresisFrames is the number of consecutive changed frames required
	// before a refresh is requested.
	HysteresisFrames int `json:"hysteresis_frames" yaml:"hysteresis_frames"`
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{Distance: 0.25, HysteresisFrames: 3}
}

// Validate checks the thresholds.
func (t Thresholds) Validate() error {
	var err error
	if t.Distance <= 0 || t.Distance > 1 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidThresholds, "distance %v not in (0, 1]", t.Distance))
	}
	if t.HysteresisFrames < 1 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidThresholds, "hysteresis frames %d < 1", t.HysteresisFrames))
	}
	return err
}

// PaletteController compares each frame's luminance histogram with the one
// the active palette was built from. A refresh is requested once the scene
// stayed different for HysteresisFrames frames in a row, so a single flash
// does not rebuild the palette.
type PaletteController struct {
	Thresholds      Thresholds
	HysteresisCount int
	// LastDistance is the distance measured by the latest Decide.
	LastDistance float64

	reference octree.Histogram
	hasRef    bool
}

// New returns a controller without a reference histogram.
func New(t Thresholds) *PaletteController {
	return &PaletteController{Thresholds: t}
}

// Decide reports whether the palette should be rebuilt for a frame with the
// given histogram. Without a reference it always returns true.
//
// Arguments:
//   - hist: The luminance histogram of the current frame.
//
// Returns:
//   - bool: True when the caller should rebuild the palette and call Reset.
func (pc *PaletteController) Decide(hist *octree.Histogram) bool {
	if !pc.hasRef {
		return true
	}

	pc.LastDistance = pc.reference.Distance(hist)
	if pc.LastDistance > pc.Thresholds.Distance {
		pc.HysteresisCount++
		if pc.HysteresisCount >= pc.Thresholds.HysteresisFrames {
			pc.HysteresisCount = 0
			return true
		}
	} else {
		pc.HysteresisCount = 0
	}
	return false
}

// Reset records hist as the histogram of the new palette.
func (pc *PaletteController) Reset(hist *octree.Histogram) {
	pc.reference = *hist
	pc.hasRef = true
	pc.HysteresisCount = 0
	pc.LastDistance = 0
}

// Forget drops the reference so the next Decide requests a palette.
func (pc *PaletteController) Forget() {
	pc.hasRef = false
	pc.HysteresisCount = 0
}
