// Package colors defines the 8-bit color values the engine works with,
// saturating per-channel arithmetic and HSV conversion.
package colors

import (
	"github.com/chewxy/math32"
)

// Grayscale weights applied to R, G and B.
const (
	LumaR = 0.299
	LumaG = 0.587
	LumaB = 0.114
)

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

// RGBA is an 8-bit color with alpha. Channel order in memory is R, G, B, A.
type RGBA struct {
	R, G, B, A uint8
}

// Black and White are the opaque extremes.
var (
	Black = RGBA{0, 0, 0, 255}
	White = RGBA{255, 255, 255, 255}
)

// RGB drops the alpha channel.
func (c RGBA) RGB() RGB { return RGB{c.R, c.G, c.B} }

// RGBA returns c with the given alpha.
func (c RGB) RGBA(a uint8) RGBA { return RGBA{c.R, c.G, c.B, a} }

// Add adds channel by channel, saturating at 255.
func (c RGBA) Add(o RGBA) RGBA {
	return RGBA{addSat(c.R, o.R), addSat(c.G, o.G), addSat(c.B, o.B), addSat(c.A, o.A)}
}

// Sub subtracts channel by channel, flooring every channel at 0.
func (c RGBA) Sub(o RGBA) RGBA {
	return RGBA{subSat(c.R, o.R), subSat(c.G, o.G), subSat(c.B, o.B), subSat(c.A, o.A)}
}

// Mul scales every channel, clamping to [0, 255]. A factor <= 0 yields
// transparent black.
func (c RGBA) Mul(f float32) RGBA {
	if f <= 0 {
		return RGBA{}
	}
	return RGBA{mulSat(c.R, f), mulSat(c.G, f), mulSat(c.B, f), mulSat(c.A, f)}
}

// Div divides every channel by f. A factor <= 0 yields transparent black.
func (c RGBA) Div(f float32) RGBA {
	if f <= 0 {
		return RGBA{}
	}
	return c.Mul(1 / f)
}

// Add adds channel by channel, saturating at 255.
func (c RGB) Add(o RGB) RGB {
	return RGB{addSat(c.R, o.R), addSat(c.G, o.G), addSat(c.B, o.B)}
}

// Sub subtracts channel by channel, flooring every channel at 0.
func (c RGB) Sub(o RGB) RGB {
	return RGB{subSat(c.R, o.R), subSat(c.G, o.G), subSat(c.B, o.B)}
}

// Mul scales every channel, clamping to [0, 255].
func (c RGB) Mul(f float32) RGB {
	if f <= 0 {
		return RGB{}
	}
	return RGB{mulSat(c.R, f), mulSat(c.G, f), mulSat(c.B, f)}
}

// Div divides every channel by f. A factor <= 0 yields black.
func (c RGB) Div(f float32) RGB {
	if f <= 0 {
		return RGB{}
	}
	return c.Mul(1 / f)
}

// Luminance returns the weighted gray value of c in [0, 255].
func Luminance(c RGB) float32 {
	return LumaR*float32(c.R) + LumaG*float32(c.G) + LumaB*float32(c.B)
}

// DistanceSq is the squared Euclidean distance between two colors.
func DistanceSq(a, b RGB) float32 {
	dr := float32(a.R) - float32(b.R)
	dg := float32(a.G) - float32(b.G)
	db := float32(a.B) - float32(b.B)
	return dr*dr + dg*dg + db*db
}

// Clamp8 rounds v to the nearest integer and clamps it to [0, 255].
func Clamp8(v float32) uint8 {
	if v <= 0 || math32.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// Sum accumulates channel totals, used to average many colors without
// overflow.
type Sum struct {
	R, G, B uint64
}

// Add accumulates c.
func (s *Sum) Add(c RGB) {
	s.R += uint64(c.R)
	s.G += uint64(c.G)
	s.B += uint64(c.B)
}

// Merge folds o into s.
func (s *Sum) Merge(o Sum) {
	s.R += o.R
	s.G += o.G
	s.B += o.B
}

// Mean divides the totals by n. n == 0 yields black.
func (s Sum) Mean(n uint64) RGB {
	if n == 0 {
		return RGB{}
	}
	return RGB{uint8(s.R / n), uint8(s.G / n), uint8(s.B / n)}
}

func addSat(a, b uint8) uint8 {
	s := uint16(a) + uint16(b)
	if s > 255 {
		return 255
	}
	return uint8(s)
}

func subSat(a, b uint8) uint8 {
	if b >= a {
		return 0
	}
	return a - b
}

func mulSat(a uint8, f float32) uint8 {
	return Clamp8(float32(a) * f)
}
