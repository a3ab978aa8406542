package benchmark

import (
	"context"
	"fmt"

	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/utils"
)

// Target is the image and feature a recognition suite measures.
type Target struct {
	Path    string
	Feature string
	Options map[string]any
}

// NewRecognitionSuite measures decoding, preprocessing, the static image
// path through module and the frame path through registry for one image.
// The returned cleanup closes the frame plugin.
func NewRecognitionSuite(target Target, p *preprocess.Preprocessor, module *bridge.Module,
	registry *plugin.Registry) (*Suite, func(), error) {
	img, _, err := utils.LoadImage(target.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", target.Path, err)
	}

	// the frame plugin processes every frame regardless of configuration
	frameOptions := map[string]any{}
	for k, v := range target.Options {
		frameOptions[k] = v
	}
	frameOptions["frameProcessInterval"] = 0
	pl, err := registry.Create(target.Feature, frameOptions)
	if err != nil {
		return nil, nil, err
	}

	imageOpts := preprocess.OptionsFromMap(target.Options)
	suite := NewSuite()

	suite.Add("decode", func(context.Context) error {
		_, _, err := utils.LoadImage(target.Path)
		return err
	})
	suite.Add("preprocess", func(context.Context) error {
		processed, err := p.PreprocessImage(target.Path, imageOpts)
		if err != nil {
			return err
		}
		processed.Release()
		return nil
	})
	suite.Add("static/"+target.Feature, func(ctx context.Context) error {
		_, err := module.ProcessImage(ctx, target.Feature, target.Path, target.Options).Await(ctx)
		return err
	})
	frame := preprocess.NewImageFrame(img, preprocess.Portrait)
	suite.Add("frame/"+target.Feature, func(ctx context.Context) error {
		pl.Call(ctx, frame)
		return nil
	})

	return suite, func() { _ = pl.Close() }, nil
}
