package preprocess

import (
	"math"
	"strconv"

	"github.com/MeKo-Tech/visionbridge/internal/common"
)

const (
	// MinScaleFactor is the strongest downscale allowed.
	MinScaleFactor = 0.9
	// MaxScaleFactor forbids upscaling.
	MaxScaleFactor = 1.0
)

// Options controls how an image is prepared for a recognizer.
type Options struct {
	InvertColors bool `json:"invertColors" mapstructure:"invert_colors" yaml:"invert_colors"`
	// Orientation drives rotation of static files.
	Orientation Orientation `json:"orientation" mapstructure:"orientation" yaml:"orientation"`
	// OutputOrientation overrides the sensor orientation of live frames.
	OutputOrientation *Orientation `json:"outputOrientation,omitempty" mapstructure:"output_orientation" yaml:"output_orientation,omitempty"`
	// ScaleFactor is clamped to [MinScaleFactor, MaxScaleFactor]. Zero means unset.
	ScaleFactor float64 `json:"scaleFactor" mapstructure:"scale_factor" yaml:"scale_factor"`
}

// DefaultOptions returns portrait, no inversion, full scale.
func DefaultOptions() Options {
	return Options{
		Orientation: DefaultOrientation,
		ScaleFactor: MaxScaleFactor,
	}
}

// ClampScaleFactor limits v to [MinScaleFactor, MaxScaleFactor]. NaN maps to 1.
func ClampScaleFactor(v float64) float64 {
	if math.IsNaN(v) {
		return MaxScaleFactor
	}
	return math.Max(MinScaleFactor, math.Min(MaxScaleFactor, v))
}

// EffectiveScale returns the clamped scale factor, treating zero as unset.
func (o Options) EffectiveScale() float64 {
	if o.ScaleFactor == 0 {
		return MaxScaleFactor
	}
	return ClampScaleFactor(o.ScaleFactor)
}

// Fingerprint renders the options as a stable cache key fragment.
func (o Options) Fingerprint() string {
	out := "orientation=" + string(o.Orientation)
	if o.OutputOrientation != nil {
		out += ",output=" + string(*o.OutputOrientation)
	}
	out += ",invert=" + strconv.FormatBool(o.InvertColors)
	out += ",scale=" + strconv.FormatFloat(o.EffectiveScale(), 'f', -1, 64)
	return out
}

// OptionsFromMap reads the caller options map. Missing keys fall back to
// DefaultOptions. An unrecognized orientation falls back to portrait; an
// unrecognized outputOrientation is ignored so the sensor swap applies.
func OptionsFromMap(m map[string]any) Options {
	opts := DefaultOptions()
	if m == nil {
		return opts
	}
	if v, ok := common.Bool(m, "invertColors"); ok {
		opts.InvertColors = v
	}
	if v, ok := common.Number(m, "scaleFactor"); ok {
		opts.ScaleFactor = ClampScaleFactor(v)
	}
	if s, ok := common.String(m, "orientation"); ok {
		opts.Orientation, _ = ParseOrientation(s)
	}
	if s, ok := common.String(m, "outputOrientation"); ok {
		if o, ok := ParseOrientation(s); ok {
			opts.OutputOrientation = &o
		}
	}
	return opts
}
