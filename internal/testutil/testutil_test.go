package testutil

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "go.mod"))
	assert.NoError(t, err)
}

func TestGenerateTextImage(t *testing.T) {
	img := GenerateTextImage(DefaultTextImageConfig())
	assert.Equal(t, SmallSize.Width, img.Bounds().Dx())
	assert.Equal(t, SmallSize.Height, img.Bounds().Dy())

	dark := 0
	for y := range img.Bounds().Dy() {
		for x := range img.Bounds().Dx() {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				dark++
			}
		}
	}
	assert.Positive(t, dark, "text pixels expected")
}

func TestWriteTempPNG(t *testing.T) {
	path := WriteTempPNG(t, CreateTestImage(3, 2, color.White), "x.png")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestGenerateQRCode(t *testing.T) {
	img := GenerateQRCode(t, "https://example.com", 200)
	assert.GreaterOrEqual(t, img.Bounds().Dx(), 200)
	assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y, "quiet zone is white")
}

func TestEncodeBarcode(t *testing.T) {
	t.Run("ean13", func(t *testing.T) {
		img, err := EncodeBarcode(gozxing.BarcodeFormat_EAN_13, "4006381333931", 300, 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, img.Bounds().Dx(), 300)
	})

	t.Run("code128", func(t *testing.T) {
		img, err := EncodeBarcode(gozxing.BarcodeFormat_CODE_128, "VB-1", 200, 80)
		require.NoError(t, err)
		assert.Equal(t, 80, img.Bounds().Dy())
	})

	t.Run("no writer", func(t *testing.T) {
		_, err := EncodeBarcode(gozxing.BarcodeFormat_AZTEC, "x", 100, 100)
		assert.Error(t, err)
	})
}
