package images

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownResolution is returned by LookupResolution for unknown names.
var ErrUnknownResolution = errors.New("images: unknown resolution")

// AspectRatio names a display aspect ratio (e.g., "16:9").
type AspectRatio string

const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
	AspectRatio32  AspectRatio = "3:2"
)

// ResolutionType is the common name of a frame geometry.
type ResolutionType string

const (
	ResolutionTypeQVGA     ResolutionType = "QVGA"
	ResolutionTypeVGA      ResolutionType = "VGA"
	ResolutionTypeNHD      ResolutionType = "nHD"
	ResolutionTypeFWVGA    ResolutionType = "FWVGA"
	ResolutionTypeQHD540   ResolutionType = "qHD 540p"
	ResolutionTypeHD720p   ResolutionType = "HD 720p"
	ResolutionTypeWXGA     ResolutionType = "WXGA"
	ResolutionTypeHDPlus   ResolutionType = "HD+"
	ResolutionType1MP54    ResolutionType = "1MP (5:4)"
	ResolutionTypeFHD1080p ResolutionType = "Full HD 1080p"
	ResolutionType2MP43    ResolutionType = "2MP (4:3)"
	ResolutionTypeQHD1440p ResolutionType = "QHD 1440p"
	ResolutionType6MP32    ResolutionType = "6MP (3:2)"
	ResolutionType4KUHD    ResolutionType = "4K UHD"
)

// Resolution is a named frame geometry.
type Resolution struct {
	Name        ResolutionType `json:"name" yaml:"name"`
	AspectRatio AspectRatio    `json:"aspectRatio" yaml:"aspect_ratio"`
	Width       int            `json:"width" yaml:"width"`
	Height      int            `json:"height" yaml:"height"`
}

// MegaPixels returns the pixel count in millions rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return math.Round(float64(r.Width*r.Height)/10_000) / 100
}

// String returns a human-readable summary of the resolution.
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// NewFrame allocates a frame with this geometry.
func (r Resolution) NewFrame() *Frame { return NewFrame(r.Width, r.Height) }

var resolutions = map[ResolutionType]Resolution{
	ResolutionTypeQVGA:     {ResolutionTypeQVGA, AspectRatio43, 320, 240},
	ResolutionTypeVGA:      {ResolutionTypeVGA, AspectRatio43, 640, 480},
	ResolutionTypeNHD:      {ResolutionTypeNHD, AspectRatio169, 640, 360},
	ResolutionTypeFWVGA:    {ResolutionTypeFWVGA, AspectRatio169, 854, 480},
	ResolutionTypeQHD540:   {ResolutionTypeQHD540, AspectRatio169, 960, 540},
	ResolutionTypeHD720p:   {ResolutionTypeHD720p, AspectRatio169, 1280, 720},
	ResolutionTypeWXGA:     {ResolutionTypeWXGA, AspectRatio169, 1366, 768},
	ResolutionTypeHDPlus:   {ResolutionTypeHDPlus, AspectRatio169, 1600, 900},
	ResolutionType1MP54:    {ResolutionType1MP54, AspectRatio54, 1280, 1024},
	ResolutionTypeFHD1080p: {ResolutionTypeFHD1080p, AspectRatio169, 1920, 1080},
	ResolutionType2MP43:    {ResolutionType2MP43, AspectRatio43, 1600, 1200},
	ResolutionTypeQHD1440p: {ResolutionTypeQHD1440p, AspectRatio169, 2560, 1440},
	ResolutionType6MP32:    {ResolutionType6MP32, AspectRatio32, 3072, 2048},
	ResolutionType4KUHD:    {ResolutionType4KUHD, AspectRatio169, 3840, 2160},
}

// LookupResolution finds a preset by name, ignoring case.
func LookupResolution(name string) (Resolution, error) {
	if r, ok := resolutions[ResolutionType(name)]; ok {
		return r, nil
	}
	for t, r := range resolutions {
		if strings.EqualFold(string(t), name) {
			return r, nil
		}
	}
	return Resolution{}, errors.Wrapf(ErrUnknownResolution, "%q", name)
}

// Resolutions returns every preset ordered by pixel count, then width.
func Resolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		pi, pj := all[i].Width*all[i].Height, all[j].Width*all[j].Height
		if pi != pj {
			return pi < pj
		}
		return all[i].Width < all[j].Width
	})
	return all
}

// LargestWithin returns the preset with the most pixels that fits inside
// width x height.
func LargestWithin(width, height int) (Resolution, bool) {
	var (
		best  Resolution
		found bool
	)
	for _, r := range Resolutions() {
		if r.Width <= width && r.Height <= height {
			best, found = r, true
		}
	}
	return best, found
}
