package colors

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSV is hue in degrees [0, 360), saturation and value in [0, 1].
type HSV struct {
	H, S, V float64
}

// ToHSV converts an 8-bit color to HSV. Grays have hue and saturation 0.
func ToHSV(c RGB) HSV {
	h, s, v := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hsv()
	return HSV{H: h, S: s, V: v}
}

// FromHSV converts back to 8-bit RGB. Out-of-range inputs are clamped.
func FromHSV(h HSV) RGB {
	r, g, b := colorful.Hsv(h.H, clampUnit(h.S), clampUnit(h.V)).Clamped().RGB255()
	return RGB{r, g, b}
}

// BoostSaturation scales the saturation of c by factor, clamping at 1.
func BoostSaturation(c RGB, factor float64) RGB {
	hsv := ToHSV(c)
	hsv.S *= factor
	return FromHSV(hsv)
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
