// Package plugin builds frame processor plugins: long lived recognizers
// that are created once from an options map and then called for every
// camera frame.
package plugin

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MeKo-Tech/visionbridge/internal/factory"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/recognition"
	"github.com/MeKo-Tech/visionbridge/internal/result"
	"github.com/MeKo-Tech/visionbridge/internal/serializer"
	"github.com/MeKo-Tech/visionbridge/internal/usecase"
)

// Feature keys.
const (
	TextRecognition = "TextRecognition"
	BarcodeScanning = "BarcodeScanning"
	ImageLabeling   = "ImageLabeling"
	ObjectDetection = "ObjectDetection"
)

// ErrUnsupportedFeature is returned for unknown features and for features
// without a configured backend.
var ErrUnsupportedFeature = errors.New("unsupported feature")

// Backends holds the constructors for each recognizer. A nil field makes
// the feature unavailable.
type Backends struct {
	Text    factory.TextBackend
	Barcode factory.BarcodeBackend
	Labeler factory.LabelerBackend
	Objects factory.ObjectBackend
}

// Supports reports whether feature has a backend.
func (b Backends) Supports(feature string) bool {
	switch feature {
	case TextRecognition:
		return b.Text != nil
	case BarcodeScanning:
		return b.Barcode != nil
	case ImageLabeling:
		return b.Labeler != nil
	case ObjectDetection:
		return b.Objects != nil
	default:
		return false
	}
}

// AllFeatures lists every known feature key, supported or not.
func AllFeatures() []string {
	return []string{TextRecognition, BarcodeScanning, ImageLabeling, ObjectDetection}
}

// Features lists the supported feature keys in sorted order.
func (b Backends) Features() []string {
	out := make([]string, 0, 4)
	for _, f := range AllFeatures() {
		if b.Supports(f) {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

// Registry creates plugins by feature key.
type Registry struct {
	backends     Backends
	preprocessor *preprocess.Preprocessor
}

// NewRegistry returns a registry. A nil preprocessor uses the default one.
func NewRegistry(p *preprocess.Preprocessor, backends Backends) *Registry {
	if p == nil {
		p = preprocess.NewDefault()
	}
	return &Registry{backends: backends, preprocessor: p}
}

// Backends returns the backends the registry was built with.
func (r *Registry) Backends() Backends { return r.backends }

// Features lists the features plugins can be created for.
func (r *Registry) Features() []string { return r.backends.Features() }

// Create builds the plugin for feature from options. The caller owns the
// plugin and must Close it.
func (r *Registry) Create(feature string, options map[string]any) (Plugin, error) {
	if !r.backends.Supports(feature) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFeature, feature)
	}
	imageOpts := preprocess.OptionsFromMap(options)
	interval := FrameProcessInterval(options)

	switch feature {
	case TextRecognition:
		rec, err := r.backends.Text(TextOptionsFromMap(options))
		if err != nil {
			return nil, fmt.Errorf("create text recognizer: %w", err)
		}
		svc := recognition.NewTextService(rec)
		return newFramePlugin(feature, interval, imageOpts,
			usecase.New[result.TextRecognitionResult](recognition.FeatureText, r.preprocessor, svc),
			svc, textMap), nil

	case BarcodeScanning:
		scanner, err := r.backends.Barcode(BarcodeOptionsFromMap(options))
		if err != nil {
			return nil, fmt.Errorf("create barcode scanner: %w", err)
		}
		svc := recognition.NewBarcodeService(scanner)
		return newFramePlugin(feature, interval, imageOpts,
			usecase.New[result.BarcodeScanningResult](recognition.FeatureBarcode, r.preprocessor, svc),
			svc, barcodeMap), nil

	case ImageLabeling:
		opts := LabelerOptionsFromMap(options)
		labeler, err := r.backends.Labeler(opts)
		if err != nil {
			return nil, fmt.Errorf("create image labeler: %w", err)
		}
		svc := recognition.NewLabelService(labeler, opts)
		return newFramePlugin(feature, interval, imageOpts,
			usecase.New[[]result.ImageLabel](recognition.FeatureLabel, r.preprocessor, svc),
			svc, labelSlice), nil

	default: // ObjectDetection
		opts := ObjectOptionsFromMap(options)
		detector, err := r.backends.Objects(opts)
		if err != nil {
			return nil, fmt.Errorf("create object detector: %w", err)
		}
		svc := recognition.NewObjectService(detector, opts)
		return newFramePlugin(feature, interval, imageOpts,
			usecase.New[[]result.DetectedObject](recognition.FeatureObject, r.preprocessor, svc),
			svc, objectSlice), nil
	}
}

func textMap(r result.TextRecognitionResult) any { return serializer.TextToMap(r) }
func barcodeMap(r result.BarcodeScanningResult) any { return serializer.BarcodesToMap(r) }
func labelSlice(r []result.ImageLabel) any { return serializer.LabelsToSlice(r) }
func objectSlice(r []result.DetectedObject) any { return serializer.ObjectsToSlice(r) }
