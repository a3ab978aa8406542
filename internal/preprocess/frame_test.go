package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePixelFormat(t *testing.T) {
	f, err := ParsePixelFormat("BGRA")
	require.NoError(t, err)
	assert.Equal(t, PixelFormatBGRA, f)

	f, err = ParsePixelFormat("yuv")
	require.NoError(t, err)
	assert.Equal(t, PixelFormatNV21, f)

	_, err = ParsePixelFormat("cmyk")
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestNewBufferFrame_Validation(t *testing.T) {
	_, err := NewBufferFrame(make([]byte, 10), 2, 2, PixelFormatRGBA, Portrait)
	require.ErrorIs(t, err, ErrInvalidFrame)

	_, err = NewBufferFrame(make([]byte, 16), 0, 2, PixelFormatRGBA, Portrait)
	require.ErrorIs(t, err, ErrInvalidFrame)

	_, err = NewBufferFrame(make([]byte, 16), 2, 2, PixelFormat("cmyk"), Portrait)
	require.ErrorIs(t, err, ErrInvalidFrame)

	f, err := NewBufferFrame(make([]byte, 16), 2, 2, PixelFormatRGBA, LandscapeLeft)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Width())
	assert.Equal(t, 2, f.Height())
	assert.Equal(t, LandscapeLeft, f.Orientation())
	assert.Equal(t, PixelFormatRGBA, f.PixelFormat())
}

func TestBufferFrame_Decode(t *testing.T) {
	t.Run("bgra swaps channels", func(t *testing.T) {
		f, err := NewBufferFrame([]byte{1, 2, 3, 4}, 1, 1, PixelFormatBGRA, Portrait)
		require.NoError(t, err)
		img, err := f.Image()
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{R: 3, G: 2, B: 1, A: 4}, img.(*image.NRGBA).NRGBAAt(0, 0))
	})

	t.Run("gray expands to opaque rgb", func(t *testing.T) {
		f, err := NewBufferFrame([]byte{9, 200}, 2, 1, PixelFormatGray, Portrait)
		require.NoError(t, err)
		img, err := f.Image()
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, img.(*image.NRGBA).NRGBAAt(1, 0))
	})

	t.Run("nv21 neutral chroma is gray", func(t *testing.T) {
		w, h := 4, 2
		data := make([]byte, PixelFormatNV21.BufferLen(w, h))
		for i := range w * h {
			data[i] = 100
		}
		for i := w * h; i < len(data); i++ {
			data[i] = 128
		}
		f, err := NewBufferFrame(data, w, h, PixelFormatNV21, Portrait)
		require.NoError(t, err)
		img, err := f.Image()
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255}, img.(*image.NRGBA).NRGBAAt(3, 1))
	})

	t.Run("destination size mismatch", func(t *testing.T) {
		f, err := NewBufferFrame(make([]byte, 16), 2, 2, PixelFormatRGBA, Portrait)
		require.NoError(t, err)
		err = f.DecodeInto(image.NewNRGBA(image.Rect(0, 0, 3, 3)))
		assert.ErrorIs(t, err, ErrInvalidFrame)
	})
}

func TestImageFrame(t *testing.T) {
	f := NewImageFrame(image.NewGray(image.Rect(0, 0, 5, 3)), LandscapeRight)
	assert.Equal(t, 5, f.Width())
	assert.Equal(t, 3, f.Height())

	empty := NewImageFrame(nil, Portrait)
	assert.Zero(t, empty.Width())
	_, err := empty.Image()
	assert.ErrorIs(t, err, ErrInvalidFrame)
}
