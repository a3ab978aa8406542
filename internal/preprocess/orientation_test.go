package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrientationDegrees(t *testing.T) {
	assert.Equal(t, 0, Portrait.Degrees())
	assert.Equal(t, 180, PortraitUpsideDown.Degrees())
	assert.Equal(t, 90, LandscapeLeft.Degrees())
	assert.Equal(t, 270, LandscapeRight.Degrees())
	assert.Equal(t, 0, Orientation("bogus").Degrees())
}

func TestParseOrientation(t *testing.T) {
	o, ok := ParseOrientation(" Landscape-Right ")
	assert.True(t, ok)
	assert.Equal(t, LandscapeRight, o)

	o, ok = ParseOrientation("diagonal")
	assert.False(t, ok)
	assert.Equal(t, Portrait, o)

	assert.True(t, PortraitUpsideDown.IsValid())
	assert.False(t, Orientation("PORTRAIT").IsValid())
}

func TestCorrectSensorOrientation(t *testing.T) {
	assert.Equal(t, LandscapeRight, CorrectSensorOrientation(LandscapeLeft))
	assert.Equal(t, LandscapeLeft, CorrectSensorOrientation(LandscapeRight))
	assert.Equal(t, Portrait, CorrectSensorOrientation(Portrait))
	assert.Equal(t, PortraitUpsideDown, CorrectSensorOrientation(PortraitUpsideDown))
	assert.Equal(t, Portrait, CorrectSensorOrientation("unknown"))
}

func TestResolveFrameOrientation(t *testing.T) {
	t.Run("sensor swap without output orientation", func(t *testing.T) {
		assert.Equal(t, LandscapeRight, ResolveFrameOrientation(LandscapeLeft, DefaultOptions()))
	})
	t.Run("output orientation wins", func(t *testing.T) {
		opts := DefaultOptions()
		out := PortraitUpsideDown
		opts.OutputOrientation = &out
		assert.Equal(t, PortraitUpsideDown, ResolveFrameOrientation(LandscapeLeft, opts))
	})
	t.Run("invalid output orientation is portrait", func(t *testing.T) {
		opts := DefaultOptions()
		out := Orientation("upwards")
		opts.OutputOrientation = &out
		assert.Equal(t, Portrait, ResolveFrameOrientation(LandscapeLeft, opts))
	})
}
