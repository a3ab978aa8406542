// Package preprocess turns camera frames and static image files into the
// upright, scaled and optionally inverted images the recognizers consume.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/visionbridge/internal/common"
	"github.com/MeKo-Tech/visionbridge/internal/mempool"
	"github.com/MeKo-Tech/visionbridge/internal/utils"
	"github.com/disintegration/imaging"
)

// Config holds the shared, immutable preprocessing settings.
type Config struct {
	// ResampleFilter is one of nearest, linear, catmullrom, lanczos.
	ResampleFilter string `mapstructure:"resample_filter" yaml:"resample_filter" json:"resample_filter"`
}

// DefaultConfig returns the default preprocessing settings.
func DefaultConfig() Config {
	return Config{ResampleFilter: "nearest"}
}

var filters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

// FilterNames lists the accepted ResampleFilter values.
func FilterNames() []string {
	return []string{"nearest", "linear", "catmullrom", "lanczos"}
}

// Preprocessor prepares images. It is safe for concurrent use; every call
// works on its own pixel buffers.
type Preprocessor struct {
	filter     imaging.ResampleFilter
	filterName string
}

// New creates a Preprocessor from cfg.
func New(cfg Config) (*Preprocessor, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.ResampleFilter))
	if name == "" {
		name = DefaultConfig().ResampleFilter
	}
	f, ok := filters[name]
	if !ok {
		return nil, fmt.Errorf("unknown resample filter %q (valid: %s)", cfg.ResampleFilter, strings.Join(FilterNames(), ", "))
	}
	return &Preprocessor{filter: f, filterName: name}, nil
}

// NewDefault creates a Preprocessor with DefaultConfig.
func NewDefault() *Preprocessor {
	p, _ := New(DefaultConfig())
	return p
}

// FilterName returns the resample filter in use.
func (p *Preprocessor) FilterName() string { return p.filterName }

// ResolveFrameOrientation picks the orientation a frame is rotated by: the
// caller's output orientation when present, otherwise the corrected sensor one.
func ResolveFrameOrientation(sensor Orientation, opts Options) Orientation {
	if opts.OutputOrientation != nil {
		if opts.OutputOrientation.IsValid() {
			return *opts.OutputOrientation
		}
		return DefaultOrientation
	}
	return CorrectSensorOrientation(sensor)
}

// PreprocessFrame converts a live frame. Metadata rotation carries the
// resolved frame rotation in degrees.
func (p *Preprocessor) PreprocessFrame(frame Frame, opts Options) (*ProcessedImage, error) {
	if frame == nil {
		return nil, &utils.ImageProcessingError{Operation: "frame", Err: errors.New("frame is nil")}
	}
	timer := common.NewNamedTimer("preprocess_frame")
	degrees := ResolveFrameOrientation(frame.Orientation(), opts).Degrees()

	var (
		base   image.Image
		pooled *image.NRGBA
	)
	if raw, ok := frame.(RawFrame); ok {
		pooled = mempool.GetNRGBA(frame.Width(), frame.Height())
		if err := raw.DecodeInto(pooled); err != nil {
			mempool.PutNRGBA(pooled)
			return nil, &utils.ImageProcessingError{Operation: "frame", Err: err}
		}
		base = pooled
	} else {
		img, err := frame.Image()
		if err != nil {
			return nil, &utils.ImageProcessingError{Operation: "frame", Err: err}
		}
		if img == nil {
			return nil, &utils.ImageProcessingError{Operation: "frame", Err: errors.New("frame produced no image")}
		}
		base = img
	}

	out, err := p.transform(base, degrees, opts, pooled != nil)
	if err != nil {
		if pooled != nil {
			mempool.PutNRGBA(pooled)
		}
		return nil, err
	}
	processed := newProcessedImage(out, degrees, opts.InvertColors)
	if pooled != nil {
		if out == image.Image(pooled) {
			processed.onRelease(func() { mempool.PutNRGBA(pooled) })
		} else {
			mempool.PutNRGBA(pooled)
		}
	}

	timer.Stop()
	slog.Debug("Preprocessed frame",
		"width", processed.Metadata.Width,
		"height", processed.Metadata.Height,
		"rotation", degrees,
		"inverted", opts.InvertColors,
		"timing", timer)
	return processed, nil
}

// PreprocessImage loads a static file and rotates it by opts.Orientation.
// The file is physically rotated, so metadata rotation is always zero.
func (p *Preprocessor) PreprocessImage(path string, opts Options) (*ProcessedImage, error) {
	timer := common.NewNamedTimer("preprocess_image")
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	out, err := p.transform(img, opts.Orientation.Degrees(), opts, false)
	if err != nil {
		return nil, err
	}
	processed := newProcessedImage(out, 0, opts.InvertColors)

	timer.Stop()
	slog.Debug("Preprocessed image",
		"path", path,
		"orientation", opts.Orientation,
		"width", processed.Metadata.Width,
		"height", processed.Metadata.Height,
		"timing", timer)
	return processed, nil
}

// transform rotates, scales and inverts img. owned reports whether img may be
// modified in place.
func (p *Preprocessor) transform(img image.Image, degrees int, opts Options, owned bool) (image.Image, error) {
	out, err := utils.RotateClockwise(img, degrees)
	if err != nil {
		return nil, err
	}
	if degrees%360 != 0 {
		owned = true
	}

	if scale := opts.EffectiveScale(); scale < MaxScaleFactor {
		out, err = utils.ScaleImage(out, scale, p.filter)
		if err != nil {
			return nil, err
		}
		owned = true
	}

	if !opts.InvertColors {
		return out, nil
	}
	if n, ok := out.(*image.NRGBA); ok && owned {
		utils.InvertInPlace(n)
		return n, nil
	}
	inverted, err := utils.InvertImage(out)
	if err != nil {
		return nil, err
	}
	return inverted, nil
}
