// Package images - frame buffer definition and conversions between frames,
// grids and the standard library's image types.
package images

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/colors"
)

// BytesPerPixel is the size of one pixel in a frame buffer.
const BytesPerPixel = 4

// ErrFrameSize is returned when a buffer's length or a frame's dimensions do
// not match the expected geometry.
var ErrFrameSize = errors.New("images: frame size mismatch")

// Frame is a dense frame buffer of Width*Height pixels.
//
// Pixels are stored row-major from the top-left corner with a stride of
// Width*4 bytes. Each pixel is four bytes in the order R, G, B, A. Every
// source converts to this order when it fills a frame.
type Frame struct {
	// The width of the frame in pixels.
	Width int `json:"width" yaml:"width"`
	// The height of the frame in pixels.
	Height int `json:"height" yaml:"height"`
	// The pixel data, len(Pix) == Width*Height*4.
	Pix []byte `json:"-" yaml:"-"`
}

// NewFrame allocates a zeroed (transparent black) frame.
func NewFrame(width, height int) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Frame{Width: width, Height: height, Pix: make([]byte, width*height*BytesPerPixel)}
}

// FrameFromImage copies any image into a new frame. *image.RGBA and
// *image.NRGBA sources are copied row by row, everything else pixel by pixel
// through the color model.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	stride := f.Width * BytesPerPixel

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < f.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(f.Pix[y*stride:(y+1)*stride], src.Pix[off:off+stride])
		}
	case *image.NRGBA:
		for y := 0; y < f.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(f.Pix[y*stride:(y+1)*stride], src.Pix[off:off+stride])
		}
	default:
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				i := y*stride + x*BytesPerPixel
				f.Pix[i+0] = uint8(r >> 8)
				f.Pix[i+1] = uint8(g >> 8)
				f.Pix[i+2] = uint8(bl >> 8)
				f.Pix[i+3] = uint8(a >> 8)
			}
		}
	}
	return f
}

// Image returns an *image.RGBA sharing the frame's pixel storage.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * BytesPerPixel,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Validate checks that the buffer length matches the dimensions.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Wrapf(ErrFrameSize, "dimensions %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * BytesPerPixel; len(f.Pix) != want {
		return errors.Wrapf(ErrFrameSize, "%d bytes for %dx%d, want %d", len(f.Pix), f.Width, f.Height, want)
	}
	return nil
}

// Len returns the number of pixels.
func (f *Frame) Len() int { return f.Width * f.Height }

// Offset returns the byte offset of pixel (x, y).
func (f *Frame) Offset(x, y int) int { return (y*f.Width + x) * BytesPerPixel }

// At returns the pixel at (x, y).
func (f *Frame) At(x, y int) colors.RGBA {
	return pixelAt(f.Pix, f.Offset(x, y))
}

// Set writes the pixel at (x, y).
func (f *Frame) Set(x, y int, c colors.RGBA) {
	setPixel(f.Pix, f.Offset(x, y), c)
}

// Fill sets every pixel to c.
func (f *Frame) Fill(c colors.RGBA) {
	for i := 0; i < len(f.Pix); i += BytesPerPixel {
		setPixel(f.Pix, i, c)
	}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pix: make([]byte, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

// CopyFrom overwrites f with src, which must have the same dimensions.
func (f *Frame) CopyFrom(src *Frame) error {
	if err := sameSize(f, src); err != nil {
		return err
	}
	copy(f.Pix, src.Pix)
	return nil
}

func sameSize(a, b *Frame) error {
	if a.Width != b.Width || a.Height != b.Height || len(a.Pix) != len(b.Pix) {
		return errors.Wrapf(ErrFrameSize, "%dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	return nil
}

func pixelAt(pix []byte, off int) colors.RGBA {
	p := pix[off : off+4 : off+4]
	return colors.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

func setPixel(pix []byte, off int, c colors.RGBA) {
	p := pix[off : off+4 : off+4]
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
}
