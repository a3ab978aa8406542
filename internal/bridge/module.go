// Package bridge processes static images (paths and URIs) on a bounded
// worker pool and reports results through promises with coded errors.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/factory"
	"github.com/MeKo-Tech/visionbridge/internal/metrics"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/recognition"
	"github.com/MeKo-Tech/visionbridge/internal/result"
	"github.com/MeKo-Tech/visionbridge/internal/serializer"
	"github.com/MeKo-Tech/visionbridge/internal/text"
	"github.com/MeKo-Tech/visionbridge/internal/usecase"
	"github.com/MeKo-Tech/visionbridge/internal/utils"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Config controls the static image module.
type Config struct {
	Workers          int
	TempDir          string
	DownloadTimeout  time.Duration
	MaxDownloadBytes int64
	// HTTPClient is used for http(s) URIs; nil builds a default client.
	HTTPClient *http.Client
}

// DefaultConfig returns 2 workers, the OS temp dir, a 30s download timeout
// and a 50 MiB download limit.
func DefaultConfig() Config {
	return Config{
		Workers:          2,
		TempDir:          os.TempDir(),
		DownloadTimeout:  30 * time.Second,
		MaxDownloadBytes: 50 << 20,
	}
}

// ErrModuleClosed rejects jobs submitted after Close.
var ErrModuleClosed = errors.New("bridge: module closed")

// Module runs static image recognition. Each feature keeps one cached
// service keyed by its options; jobs for the same feature run one at a time
// so a rebuild never closes a service still in use.
type Module struct {
	cfg          Config
	client       *http.Client
	backends     plugin.Backends
	preprocessor *preprocess.Preprocessor

	sem  chan struct{}
	jobs *conc.WaitGroup
	// lifecycle orders job submission against Close: submitters hold the
	// read lock across the closed check and jobs.Go.
	lifecycle sync.RWMutex
	closed    bool

	textMu    sync.Mutex
	text      *factory.Cache[text.Options, *recognition.TextService]
	barcodeMu sync.Mutex
	barcodes  *factory.Cache[barcode.Options, *recognition.BarcodeService]
	labelMu   sync.Mutex
	labels    *factory.Cache[recognition.LabelerOptions, *recognition.LabelService]
	objectMu  sync.Mutex
	objects   *factory.Cache[recognition.ObjectDetectorOptions, *recognition.ObjectService]
}

// NewModule creates the module. Zero config fields take DefaultConfig values.
func NewModule(cfg Config, p *preprocess.Preprocessor, backends plugin.Backends) *Module {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.TempDir == "" {
		cfg.TempDir = def.TempDir
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = def.DownloadTimeout
	}
	if cfg.MaxDownloadBytes <= 0 {
		cfg.MaxDownloadBytes = def.MaxDownloadBytes
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if p == nil {
		p = preprocess.NewDefault()
	}

	m := &Module{
		cfg:          cfg,
		client:       client,
		backends:     backends,
		preprocessor: p,
		sem:          make(chan struct{}, cfg.Workers),
		jobs:         conc.NewWaitGroup(),
	}
	if backends.Text != nil {
		m.text = factory.NewTextCache(backends.Text)
	}
	if backends.Barcode != nil {
		m.barcodes = factory.NewBarcodeCache(backends.Barcode)
	}
	if backends.Labeler != nil {
		m.labels = factory.NewLabelCache(backends.Labeler)
	}
	if backends.Objects != nil {
		m.objects = factory.NewObjectCache(backends.Objects)
	}
	return m
}

// Features lists the features ProcessImage accepts.
func (m *Module) Features() []string { return m.backends.Features() }

// ProcessImage starts recognition of the image at uri and returns at once.
// Unsupported features are rejected before any work is scheduled.
func (m *Module) ProcessImage(ctx context.Context, feature, uri string, options map[string]any) *Promise {
	p := newPromise()
	if !m.backends.Supports(feature) {
		p.reject(classify(plugin.ErrUnsupportedFeature, feature))
		return p
	}
	if options == nil {
		options = map[string]any{}
	}

	m.lifecycle.RLock()
	defer m.lifecycle.RUnlock()
	if m.closed {
		p.reject(&CodedError{Code: CodeProcessingFailed, Message: ErrModuleClosed.Error(), Err: ErrModuleClosed})
		return p
	}

	metrics.BridgeQueueDepth.Inc()
	m.jobs.Go(func() {
		defer metrics.BridgeQueueDepth.Dec()
		var (
			value any
			err   error
		)
		if rec := panics.Try(func() { value, err = m.run(ctx, feature, uri, options) }); rec != nil {
			err = fmt.Errorf("recognition panicked: %w", rec.AsError())
		}
		if err != nil {
			ce := classify(err, feature)
			slog.Warn("Static image processing failed", "feature", feature, "uri", uri, "code", ce.Code, "error", err)
			p.reject(ce)
			return
		}
		p.resolve(value)
	})
	return p
}

// Close waits for running jobs and releases every cached service.
func (m *Module) Close() error {
	m.lifecycle.Lock()
	if m.closed {
		m.lifecycle.Unlock()
		return nil
	}
	m.closed = true
	m.lifecycle.Unlock()

	m.jobs.Wait()
	var errs []error
	if m.text != nil {
		errs = append(errs, m.text.Close())
	}
	if m.barcodes != nil {
		errs = append(errs, m.barcodes.Close())
	}
	if m.labels != nil {
		errs = append(errs, m.labels.Close())
	}
	if m.objects != nil {
		errs = append(errs, m.objects.Close())
	}
	return errors.Join(errs...)
}

func (m *Module) run(ctx context.Context, feature, uri string, options map[string]any) (any, error) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-m.sem }()

	img, err := m.resolve(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer img.cleanup()

	if _, err := os.Stat(img.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &CodedError{
				Code:    CodeImageNotFound,
				Message: "Image file not found at path: " + uri,
				Err:     utils.ErrImageNotFound,
			}
		}
		return nil, err
	}

	imageOpts := preprocess.OptionsFromMap(options)
	switch feature {
	case plugin.TextRecognition:
		m.textMu.Lock()
		defer m.textMu.Unlock()
		svc, err := m.text.GetOrCreate(plugin.TextOptionsFromMap(options))
		if err != nil {
			return nil, err
		}
		res, err := usecase.New[result.TextRecognitionResult](recognition.FeatureText, m.preprocessor, svc).
			ExecuteFile(ctx, img.path, imageOpts)
		if err != nil {
			return nil, err
		}
		return serializer.TextToMap(res), nil

	case plugin.BarcodeScanning:
		m.barcodeMu.Lock()
		defer m.barcodeMu.Unlock()
		svc, err := m.barcodes.GetOrCreate(plugin.BarcodeOptionsFromMap(options))
		if err != nil {
			return nil, err
		}
		res, err := usecase.New[result.BarcodeScanningResult](recognition.FeatureBarcode, m.preprocessor, svc).
			ExecuteFile(ctx, img.path, imageOpts)
		if err != nil {
			return nil, err
		}
		return serializer.BarcodesToMap(res), nil

	case plugin.ImageLabeling:
		m.labelMu.Lock()
		defer m.labelMu.Unlock()
		svc, err := m.labels.GetOrCreate(plugin.LabelerOptionsFromMap(options))
		if err != nil {
			return nil, err
		}
		res, err := usecase.New[[]result.ImageLabel](recognition.FeatureLabel, m.preprocessor, svc).
			ExecuteFile(ctx, img.path, imageOpts)
		if err != nil {
			return nil, err
		}
		return serializer.LabelsToSlice(res), nil

	case plugin.ObjectDetection:
		m.objectMu.Lock()
		defer m.objectMu.Unlock()
		svc, err := m.objects.GetOrCreate(plugin.ObjectOptionsFromMap(options))
		if err != nil {
			return nil, err
		}
		res, err := usecase.New[[]result.DetectedObject](recognition.FeatureObject, m.preprocessor, svc).
			ExecuteFile(ctx, img.path, imageOpts)
		if err != nil {
			return nil, err
		}
		return serializer.ObjectsToSlice(res), nil

	default:
		return nil, plugin.ErrUnsupportedFeature
	}
}
