package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Frame is a single camera frame handed over by the camera pipeline.
type Frame interface {
	Width() int
	Height() int
	// Orientation is the sensor rotation hint of the frame.
	Orientation() Orientation
	// Image returns the frame pixels as an image.
	Image() (image.Image, error)
}

// RawFrame is implemented by frames that can decode straight into a
// caller-provided bitmap, letting the preprocessor recycle pixel buffers.
type RawFrame interface {
	Frame
	DecodeInto(dst *image.NRGBA) error
}

// PixelFormat names the memory layout of a raw frame buffer.
type PixelFormat string

const (
	PixelFormatRGBA PixelFormat = "rgba"
	PixelFormatBGRA PixelFormat = "bgra"
	PixelFormatNV21 PixelFormat = "nv21"
	PixelFormatGray PixelFormat = "gray"
)

// ErrInvalidFrame reports a frame whose buffer does not match its geometry.
var ErrInvalidFrame = errors.New("invalid frame")

// ParsePixelFormat parses a pixel format name.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch f := PixelFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case PixelFormatRGBA, PixelFormatBGRA, PixelFormatNV21, PixelFormatGray:
		return f, nil
	case "yuv", "yuv420sp":
		return PixelFormatNV21, nil
	default:
		return "", fmt.Errorf("%w: unknown pixel format %q", ErrInvalidFrame, s)
	}
}

// BufferLen returns the number of bytes a w x h frame occupies in format f.
func (f PixelFormat) BufferLen(w, h int) int {
	switch f {
	case PixelFormatRGBA, PixelFormatBGRA:
		return w * h * 4
	case PixelFormatGray:
		return w * h
	case PixelFormatNV21:
		return w*h + 2*((w+1)/2)*((h+1)/2)
	default:
		return 0
	}
}

// ImageFrame adapts an already decoded image to the Frame interface.
type ImageFrame struct {
	Img    image.Image
	Sensor Orientation
}

// NewImageFrame wraps img as a frame captured in orientation o.
func NewImageFrame(img image.Image, o Orientation) *ImageFrame {
	return &ImageFrame{Img: img, Sensor: o}
}

func (f *ImageFrame) Width() int {
	if f.Img == nil {
		return 0
	}
	return f.Img.Bounds().Dx()
}

func (f *ImageFrame) Height() int {
	if f.Img == nil {
		return 0
	}
	return f.Img.Bounds().Dy()
}

func (f *ImageFrame) Orientation() Orientation { return f.Sensor }

func (f *ImageFrame) Image() (image.Image, error) {
	if f.Img == nil {
		return nil, fmt.Errorf("%w: no pixel data", ErrInvalidFrame)
	}
	return f.Img, nil
}

// BufferFrame is a frame backed by a raw pixel buffer.
type BufferFrame struct {
	data   []byte
	width  int
	height int
	format PixelFormat
	sensor Orientation
}

// NewBufferFrame validates the buffer against the frame geometry.
func NewBufferFrame(data []byte, width, height int, format PixelFormat, o Orientation) (*BufferFrame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, width, height)
	}
	need := format.BufferLen(width, height)
	if need == 0 {
		return nil, fmt.Errorf("%w: unknown pixel format %q", ErrInvalidFrame, format)
	}
	if len(data) < need {
		return nil, fmt.Errorf("%w: buffer has %d bytes, %dx%d %s needs %d",
			ErrInvalidFrame, len(data), width, height, format, need)
	}
	return &BufferFrame{data: data, width: width, height: height, format: format, sensor: o}, nil
}

func (f *BufferFrame) Width() int               { return f.width }
func (f *BufferFrame) Height() int              { return f.height }
func (f *BufferFrame) Orientation() Orientation { return f.sensor }

// PixelFormat returns the buffer layout.
func (f *BufferFrame) PixelFormat() PixelFormat { return f.format }

// Image decodes the buffer into a freshly allocated bitmap.
func (f *BufferFrame) Image() (image.Image, error) {
	dst := image.NewNRGBA(image.Rect(0, 0, f.width, f.height))
	if err := f.DecodeInto(dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// DecodeInto converts the buffer into dst, which must match the frame size.
func (f *BufferFrame) DecodeInto(dst *image.NRGBA) error {
	if dst == nil || dst.Rect.Dx() != f.width || dst.Rect.Dy() != f.height {
		return fmt.Errorf("%w: destination does not match %dx%d", ErrInvalidFrame, f.width, f.height)
	}
	w, h := f.width, f.height
	switch f.format {
	case PixelFormatRGBA:
		for y := range h {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], f.data[y*w*4:(y+1)*w*4])
		}
	case PixelFormatBGRA:
		for y := range h {
			src := f.data[y*w*4 : (y+1)*w*4]
			row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
			for i := 0; i < len(src); i += 4 {
				row[i], row[i+1], row[i+2], row[i+3] = src[i+2], src[i+1], src[i], src[i+3]
			}
		}
	case PixelFormatGray:
		for y := range h {
			row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
			for x := range w {
				v := f.data[y*w+x]
				row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = v, v, v, 0xFF
			}
		}
	case PixelFormatNV21:
		f.decodeNV21(dst)
	default:
		return fmt.Errorf("%w: unknown pixel format %q", ErrInvalidFrame, f.format)
	}
	return nil
}

// decodeNV21 converts a Y plane followed by interleaved V/U samples at
// quarter resolution.
func (f *BufferFrame) decodeNV21(dst *image.NRGBA) {
	w, h := f.width, f.height
	chromaStride := 2 * ((w + 1) / 2)
	uv := f.data[w*h:]
	for y := range h {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		cRow := (y / 2) * chromaStride
		for x := range w {
			c := cRow + (x/2)*2
			r, g, b := color.YCbCrToRGB(f.data[y*w+x], uv[c+1], uv[c])
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = r, g, b, 0xFF
		}
	}
}
