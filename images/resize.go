package images

import (
	"bytes"
	"image"
	"image/draw"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned for image encodings the engine does not
// read or write.
var ErrUnsupportedFormat = errors.New("images: unsupported image format")

// ImageFormat represents supported image formats.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatWebP ImageFormat = "webp"
	FormatPNG  ImageFormat = "png"
	FormatBMP  ImageFormat = "bmp"
	FormatGIF  ImageFormat = "gif"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (ImageFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".png":
		return FormatPNG, nil
	case ".webp":
		return FormatWebP, nil
	case ".bmp":
		return FormatBMP, nil
	case ".gif":
		return FormatGIF, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "extension of %q", path)
	}
}

// Resize scales img to width x height with bilinear interpolation. The result
// is always an *image.RGBA so it can be copied straight into a frame.
//
// Arguments:
//   - img: The source image.
//   - width: The target width.
//   - height: The target height.
//
// Returns:
//   - *image.RGBA: The resized image.
func Resize(img image.Image, width, height int) *image.RGBA {
	b := img.Bounds()
	out := img
	if b.Dx() == width && b.Dy() == height {
		if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
			return rgba
		}
	} else {
		out = resize.Resize(uint(width), uint(height), img, resize.Bilinear)
		if rgba, ok := out.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
			return rgba
		}
	}
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Rect, out, out.Bounds().Min, draw.Src)
	return rgba
}

// ResizeInto scales img to the frame's geometry and copies it into f.
func ResizeInto(img image.Image, f *Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	src := Resize(img, f.Width, f.Height)
	stride := f.Width * BytesPerPixel
	for y := 0; y < f.Height; y++ {
		off := src.PixOffset(0, y)
		copy(f.Pix[y*stride:(y+1)*stride], src.Pix[off:off+stride])
	}
	return nil
}

// Decode decodes an encoded image of the given format.
func Decode(data []byte, format ImageFormat) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("images: empty image data")
	}

	var (
		img image.Image
		err error
	)
	switch format {
	case FormatJPEG, FormatPNG, FormatBMP, FormatGIF:
		img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	case FormatWebP:
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", format)
	}
	return img, nil
}

// DecodeInto decodes an encoded image and scales it into f.
func DecodeInto(data []byte, format ImageFormat, f *Frame) error {
	img, err := Decode(data, format)
	if err != nil {
		return err
	}
	return ResizeInto(img, f)
}
