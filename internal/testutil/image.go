package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test image sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
)

// TextImageConfig holds configuration for generating text images.
type TextImageConfig struct {
	Text       string
	Size       ImageSize
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
}

// DefaultTextImageConfig returns black text on white at SmallSize.
func DefaultTextImageConfig() TextImageConfig {
	return TextImageConfig{
		Text:       "HELLO",
		Size:       SmallSize,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GenerateTextImage renders config.Text centered on a solid background.
func GenerateTextImage(config TextImageConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, config.Size.Width, config.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{config.Foreground},
		Face: config.FontFace,
	}
	textWidth := font.MeasureString(config.FontFace, config.Text).Ceil()
	textHeight := config.FontFace.Metrics().Height.Ceil()
	drawer.Dot = fixed.P((config.Size.Width-textWidth)/2, (config.Size.Height+textHeight)/2)
	drawer.DrawString(config.Text)
	return img
}

// CreateTestImage creates a solid image of the given size.
func CreateTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// SaveImage writes img as PNG to path, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	file, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()
	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// WriteTempPNG saves img into a fresh temp dir and returns the path.
func WriteTempPNG(t *testing.T, img image.Image, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	SaveImage(t, img, path)
	return path
}

// WriteTempFile writes raw bytes into a fresh temp dir and returns the path.
func WriteTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
