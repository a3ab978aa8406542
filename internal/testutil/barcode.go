package testutil

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
)

// GenerateQRCode encodes payload as a QR code of roughly size x size pixels,
// black modules on white with the standard quiet zone.
func GenerateQRCode(t *testing.T, payload string, size int) *image.Gray {
	t.Helper()
	img, err := EncodeQRCode(payload, size)
	require.NoError(t, err, "Failed to encode QR payload")
	return img
}

// EncodeQRCode is GenerateQRCode for callers without a *testing.T.
func EncodeQRCode(payload string, size int) (*image.Gray, error) {
	return EncodeBarcode(gozxing.BarcodeFormat_QR_CODE, payload, size, size)
}

// EncodeBarcode renders payload in one of the writable formats: QR_CODE,
// EAN_13 and CODE_128.
func EncodeBarcode(format gozxing.BarcodeFormat, payload string, width, height int) (*image.Gray, error) {
	var writer gozxing.Writer
	switch format {
	case gozxing.BarcodeFormat_QR_CODE:
		writer = qrcode.NewQRCodeWriter()
	case gozxing.BarcodeFormat_EAN_13:
		writer = oned.NewEAN13Writer()
	case gozxing.BarcodeFormat_CODE_128:
		writer = oned.NewCode128Writer()
	default:
		return nil, fmt.Errorf("no writer for %s", format)
	}
	matrix, err := writer.Encode(payload, format, width, height, nil)
	if err != nil {
		return nil, err
	}

	w, h := matrix.GetWidth(), matrix.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			if matrix.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img, nil
}
