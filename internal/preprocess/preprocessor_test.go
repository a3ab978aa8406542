package preprocess

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/visionbridge/internal/utils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestNew(t *testing.T) {
	p, err := New(Config{ResampleFilter: "Lanczos"})
	require.NoError(t, err)
	assert.Equal(t, "lanczos", p.FilterName())

	p, err = New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "nearest", p.FilterName())

	_, err = New(Config{ResampleFilter: "bicubic-ish"})
	require.Error(t, err)
}

func TestPreprocessImage(t *testing.T) {
	p := NewDefault()
	path := writePNG(t, solidImage(40, 20, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))

	t.Run("portrait keeps size", func(t *testing.T) {
		out, err := p.PreprocessImage(path, DefaultOptions())
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, ImageMetadata{Width: 40, Height: 20, Rotation: 0}, out.Metadata)
	})

	t.Run("landscape-left rotates the canvas", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Orientation = LandscapeLeft
		out, err := p.PreprocessImage(path, opts)
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, 20, out.Metadata.Width)
		assert.Equal(t, 40, out.Metadata.Height)
		assert.Equal(t, 0, out.Metadata.Rotation)
	})

	t.Run("scale and invert", func(t *testing.T) {
		opts := DefaultOptions()
		opts.ScaleFactor = 0.9
		opts.InvertColors = true
		out, err := p.PreprocessImage(path, opts)
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, 36, out.Metadata.Width)
		assert.Equal(t, 18, out.Metadata.Height)
		assert.True(t, out.Metadata.IsInverted)
		r, g, b, _ := out.Image.At(5, 5).RGBA()
		assert.Equal(t, uint32(245), r>>8)
		assert.Equal(t, uint32(235), g>>8)
		assert.Equal(t, uint32(225), b>>8)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := p.PreprocessImage(filepath.Join(t.TempDir(), "nope.png"), DefaultOptions())
		assert.ErrorIs(t, err, utils.ErrImageNotFound)
	})
}

// TestPreprocessImage_UpsideDownTwice checks a 360 degree round trip through files.
func TestPreprocessImage_UpsideDownTwice(t *testing.T) {
	p := NewDefault()
	properties := gopter.NewProperties(nil)

	properties.Property("dimensions survive two upside-down passes", prop.ForAll(
		func(w, h int) bool {
			src := solidImage(w, h, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
			src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
			opts := DefaultOptions()
			opts.Orientation = PortraitUpsideDown

			first, err := p.PreprocessImage(writePNG(t, src), opts)
			if err != nil {
				return false
			}
			second, err := p.PreprocessImage(writePNG(t, first.Image), opts)
			first.Release()
			if err != nil {
				return false
			}
			defer second.Release()
			r, _, _, _ := second.Image.At(0, 0).RGBA()
			return second.Metadata.Width == w && second.Metadata.Height == h && r>>8 == 255
		},
		gen.IntRange(1, 32),
		gen.IntRange(1, 32),
	))

	properties.TestingRun(t)
}

func TestPreprocessFrame(t *testing.T) {
	p := NewDefault()

	t.Run("sensor landscape-left is corrected to landscape-right", func(t *testing.T) {
		frame := NewImageFrame(solidImage(30, 10, color.NRGBA{A: 255}), LandscapeLeft)
		out, err := p.PreprocessFrame(frame, DefaultOptions())
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, 270, out.Metadata.Rotation)
		assert.Equal(t, 10, out.Metadata.Width)
		assert.Equal(t, 30, out.Metadata.Height)
	})

	t.Run("output orientation overrides sensor", func(t *testing.T) {
		frame := NewImageFrame(solidImage(30, 10, color.NRGBA{A: 255}), LandscapeLeft)
		opts := DefaultOptions()
		o := Portrait
		opts.OutputOrientation = &o
		out, err := p.PreprocessFrame(frame, opts)
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, 0, out.Metadata.Rotation)
		assert.Equal(t, 30, out.Metadata.Width)
	})

	t.Run("unknown output orientation keeps the sensor correction", func(t *testing.T) {
		frame := NewImageFrame(solidImage(40, 20, color.NRGBA{A: 255}), LandscapeLeft)
		out, err := p.PreprocessFrame(frame, OptionsFromMap(map[string]any{"outputOrientation": "sideways"}))
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, 270, out.Metadata.Rotation)
		assert.Equal(t, 20, out.Metadata.Width)
		assert.Equal(t, 40, out.Metadata.Height)
	})

	t.Run("inverting a caller image does not mutate it", func(t *testing.T) {
		src := solidImage(4, 4, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
		opts := DefaultOptions()
		opts.InvertColors = true
		out, err := p.PreprocessFrame(NewImageFrame(src, Portrait), opts)
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255}, src.NRGBAAt(0, 0))
		r, _, _, _ := out.Image.At(0, 0).RGBA()
		assert.Equal(t, uint32(155), r>>8)
	})

	t.Run("raw buffer frame uses pooled bitmap", func(t *testing.T) {
		data := make([]byte, 8*6*4)
		for i := range data {
			data[i] = 0x40
		}
		frame, err := NewBufferFrame(data, 8, 6, PixelFormatRGBA, Portrait)
		require.NoError(t, err)
		opts := DefaultOptions()
		opts.InvertColors = true
		out, err := p.PreprocessFrame(frame, opts)
		require.NoError(t, err)
		assert.Equal(t, ImageMetadata{Width: 8, Height: 6, IsInverted: true}, out.Metadata)
		px := out.Image.(*image.NRGBA).NRGBAAt(1, 1)
		assert.Equal(t, color.NRGBA{R: 0xBF, G: 0xBF, B: 0xBF, A: 0x40}, px)
		out.Release()
		out.Release()
		assert.Nil(t, out.Image)
	})

	t.Run("nil frame", func(t *testing.T) {
		_, err := p.PreprocessFrame(nil, DefaultOptions())
		require.Error(t, err)
	})

	t.Run("frame without pixels", func(t *testing.T) {
		_, err := p.PreprocessFrame(NewImageFrame(nil, Portrait), DefaultOptions())
		assert.ErrorIs(t, err, ErrInvalidFrame)
	})
}
