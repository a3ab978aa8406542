package factory

import (
	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/recognition"
	"github.com/MeKo-Tech/visionbridge/internal/text"
)

// Cache names used in logs and the options cache metric.
const (
	TextCacheName    = "text"
	BarcodeCacheName = "barcode"
	LabelCacheName   = "label"
	ObjectCacheName  = "object"
)

// TextBackend builds a text recognizer for the given language.
type TextBackend func(opts text.Options) (text.Recognizer, error)

// BarcodeBackend builds a scanner for the given formats.
type BarcodeBackend func(opts barcode.Options) (barcode.Scanner, error)

// LabelerBackend builds an image labeler.
type LabelerBackend func(opts recognition.LabelerOptions) (recognition.Labeler, error)

// ObjectBackend builds an object detector.
type ObjectBackend func(opts recognition.ObjectDetectorOptions) (recognition.ObjectDetector, error)

// NewTextCache caches text services keyed by language.
func NewTextCache(backend TextBackend) *Cache[text.Options, *recognition.TextService] {
	return NewCache(TextCacheName, func(opts text.Options) (*recognition.TextService, error) {
		r, err := backend(opts)
		if err != nil {
			return nil, err
		}
		return recognition.NewTextService(r), nil
	})
}

// NewBarcodeCache caches barcode services keyed by formats and the
// potential-barcodes flag.
func NewBarcodeCache(backend BarcodeBackend) *Cache[barcode.Options, *recognition.BarcodeService] {
	return NewCache(BarcodeCacheName, func(opts barcode.Options) (*recognition.BarcodeService, error) {
		s, err := backend(opts)
		if err != nil {
			return nil, err
		}
		return recognition.NewBarcodeService(s), nil
	})
}

// NewLabelCache caches labeling services keyed by confidence threshold.
func NewLabelCache(backend LabelerBackend) *Cache[recognition.LabelerOptions, *recognition.LabelService] {
	return NewCache(LabelCacheName, func(opts recognition.LabelerOptions) (*recognition.LabelService, error) {
		l, err := backend(opts)
		if err != nil {
			return nil, err
		}
		return recognition.NewLabelService(l, opts), nil
	})
}

// NewObjectCache caches object detection services keyed by detector flags.
func NewObjectCache(backend ObjectBackend) *Cache[recognition.ObjectDetectorOptions, *recognition.ObjectService] {
	return NewCache(ObjectCacheName, func(opts recognition.ObjectDetectorOptions) (*recognition.ObjectService, error) {
		d, err := backend(opts)
		if err != nil {
			return nil, err
		}
		return recognition.NewObjectService(d, opts), nil
	})
}

// GozxingBackend returns the default barcode backend. tryHarder applies to
// every scanner it builds.
func GozxingBackend(tryHarder bool) BarcodeBackend {
	return func(opts barcode.Options) (barcode.Scanner, error) {
		opts.TryHarder = tryHarder
		s, err := barcode.NewScanner(opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// RemoteTextBackend returns a text backend posting images to endpoint.
func RemoteTextBackend(cfg text.RemoteConfig) TextBackend {
	return func(opts text.Options) (text.Recognizer, error) {
		c := cfg
		c.Language = opts.Language
		r, err := text.NewRemoteRecognizer(c)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}
