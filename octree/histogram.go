package octree

import (
	"math"

	"github.com/nvr-ai/go-pixel/colors"
)

// Histogram counts colors by rounded luminance.
type Histogram [256]uint64

// Add counts one occurrence of c.
func (h *Histogram) Add(c colors.RGB) {
	h[colors.Clamp8(colors.Luminance(c))]++
}

// Total returns the number of counted colors.
func (h *Histogram) Total() uint64 {
	var n uint64
	for _, v := range h {
		n += v
	}
	return n
}

// Mean returns the average luminance, or 0 for an empty histogram.
func (h *Histogram) Mean() float64 {
	var n, sum float64
	for l, v := range h {
		n += float64(v)
		sum += float64(l) * float64(v)
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

// Distance returns half the L1 distance between the normalized histograms:
// 0 for identical distributions, 1 for disjoint ones. Two empty histograms
// are identical; an empty and a non-empty one are disjoint.
func (h *Histogram) Distance(o *Histogram) float64 {
	a, b := float64(h.Total()), float64(o.Total())
	switch {
	case a == 0 && b == 0:
		return 0
	case a == 0 || b == 0:
		return 1
	}

	var d float64
	for i := range h {
		d += math.Abs(float64(h[i])/a - float64(o[i])/b)
	}
	return d / 2
}
