package utils

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// RotateClockwise rotates img clockwise by degrees, which must be a multiple
// of 90. The canvas grows to hold the whole rotated image.
func RotateClockwise(img image.Image, degrees int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "rotate", Err: errors.New("input image is nil")}
	}
	d := ((degrees % 360) + 360) % 360
	switch d {
	case 0:
		return img, nil
	case 90:
		// imaging rotates counter-clockwise
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	default:
		return nil, &ImageProcessingError{
			Operation: "rotate",
			Err:       fmt.Errorf("unsupported rotation: %d degrees", degrees),
		}
	}
}

// ScaledSize returns the dimensions of a w x h image scaled by factor.
// Dimensions never drop below one pixel.
func ScaledSize(w, h int, factor float64) (int, int) {
	// the epsilon keeps exact products such as 20*0.95 from truncating down
	nw := int(float64(w)*factor + 1e-9)
	nh := int(float64(h)*factor + 1e-9)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// ScaleImage shrinks img by factor using filter. A factor of 1 or more (or
// NaN) returns img unchanged.
func ScaleImage(img image.Image, factor float64, filter imaging.ResampleFilter) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "scale", Err: errors.New("input image is nil")}
	}
	if math.IsNaN(factor) || factor >= 1 {
		return img, nil
	}
	if factor <= 0 {
		return nil, &ImageProcessingError{Operation: "scale", Err: fmt.Errorf("invalid scale factor: %v", factor)}
	}
	b := img.Bounds()
	nw, nh := ScaledSize(b.Dx(), b.Dy(), factor)
	return imaging.Resize(img, nw, nh, filter), nil
}

// InvertImage returns a copy of img with every RGB channel negated (255-x).
// Alpha is kept.
func InvertImage(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "invert", Err: errors.New("input image is nil")}
	}
	return imaging.Invert(img), nil
}

// InvertInPlace negates the RGB channels of img without allocating.
func InvertInPlace(img *image.NRGBA) {
	if img == nil {
		return
	}
	b := img.Rect
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			row[i] = 255 - row[i]
			row[i+1] = 255 - row[i+1]
			row[i+2] = 255 - row[i+2]
		}
	}
}

// ToNRGBA returns img as a zero-origin *image.NRGBA, copying when needed.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
