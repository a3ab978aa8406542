package preprocess

import "strings"

// Orientation is one of the four device orientations a frame or file can carry.
type Orientation string

const (
	Portrait           Orientation = "portrait"
	PortraitUpsideDown Orientation = "portrait-upside-down"
	LandscapeLeft      Orientation = "landscape-left"
	LandscapeRight     Orientation = "landscape-right"
)

// DefaultOrientation is used whenever an orientation is missing or unknown.
const DefaultOrientation = Portrait

// ParseOrientation parses an orientation literal. Unknown values yield
// DefaultOrientation and false.
func ParseOrientation(s string) (Orientation, bool) {
	switch o := Orientation(strings.ToLower(strings.TrimSpace(s))); o {
	case Portrait, PortraitUpsideDown, LandscapeLeft, LandscapeRight:
		return o, true
	default:
		return DefaultOrientation, false
	}
}

// Degrees returns the clockwise rotation that brings an image captured in
// this orientation upright.
func (o Orientation) Degrees() int {
	switch o {
	case PortraitUpsideDown:
		return 180
	case LandscapeLeft:
		return 90
	case LandscapeRight:
		return 270
	default:
		return 0
	}
}

// IsValid reports whether o is one of the four known literals.
func (o Orientation) IsValid() bool {
	switch o {
	case Portrait, PortraitUpsideDown, LandscapeLeft, LandscapeRight:
		return true
	default:
		return false
	}
}

func (o Orientation) String() string { return string(o) }

// CorrectSensorOrientation maps the orientation reported by the camera sensor
// to the display orientation. The sensor reports landscape mirrored, so left
// and right swap while portrait values pass through.
func CorrectSensorOrientation(o Orientation) Orientation {
	switch o {
	case LandscapeLeft:
		return LandscapeRight
	case LandscapeRight:
		return LandscapeLeft
	case PortraitUpsideDown:
		return PortraitUpsideDown
	default:
		return Portrait
	}
}
