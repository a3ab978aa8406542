package recognition

import (
	"context"
	"errors"
	"image"
	"strconv"
	"sync"

	"github.com/MeKo-Tech/visionbridge/internal/geometry"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/result"
)

// ErrNoBackend is returned when a labeling or object detection backend is
// requested but none is registered.
var ErrNoBackend = errors.New("recognition: no backend registered")

// Label is a raw classification from a labeling or detection backend.
type Label struct {
	Text       string
	Confidence float64
	Index      int
}

// Labeler is an image labeling backend.
type Labeler interface {
	Label(ctx context.Context, img image.Image) ([]Label, error)
	Close() error
}

// Object is a raw object detection.
type Object struct {
	TrackingID *int
	Bounds     geometry.Rect
	Labels     []Label
}

// ObjectDetector is an object detection backend.
type ObjectDetector interface {
	Detect(ctx context.Context, img image.Image) ([]Object, error)
	Close() error
}

// LabelerOptions configures image labeling.
type LabelerOptions struct {
	// ConfidenceThreshold in [0, 1]; labels below it are dropped.
	ConfidenceThreshold float64
}

// Fingerprint is the cache key of a labeler built from these options.
func (o LabelerOptions) Fingerprint() string {
	return "threshold=" + strconv.FormatFloat(o.ConfidenceThreshold, 'f', -1, 64)
}

// ObjectDetectorOptions configures object detection.
type ObjectDetectorOptions struct {
	EnableMultipleObjects bool
	EnableClassification  bool
}

// Fingerprint is the cache key of a detector built from these options.
func (o ObjectDetectorOptions) Fingerprint() string {
	return "multiple=" + strconv.FormatBool(o.EnableMultipleObjects) +
		",classify=" + strconv.FormatBool(o.EnableClassification)
}

// LabelService runs a labeler.
type LabelService struct {
	mu      sync.Mutex
	labeler Labeler
	opts    LabelerOptions
}

// NewLabelService wraps labeler.
func NewLabelService(labeler Labeler, opts LabelerOptions) *LabelService {
	return &LabelService{labeler: labeler, opts: opts}
}

// Recognize returns labels at or above the confidence threshold.
func (s *LabelService) Recognize(ctx context.Context, img *preprocess.ProcessedImage) ([]result.ImageLabel, error) {
	if img == nil || img.Image == nil {
		return nil, &Error{Feature: FeatureLabel, Err: errors.New("no image")}
	}
	s.mu.Lock()
	labels, err := s.labeler.Label(ctx, img.Image)
	s.mu.Unlock()
	if err != nil {
		return nil, &Error{Feature: FeatureLabel, Err: err}
	}
	out := make([]result.ImageLabel, 0, len(labels))
	for _, l := range labels {
		if l.Confidence < s.opts.ConfidenceThreshold {
			continue
		}
		out = append(out, result.ImageLabel(l))
	}
	return out, nil
}

// Close releases the labeler.
func (s *LabelService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labeler.Close()
}

// ObjectService runs an object detector.
type ObjectService struct {
	mu       sync.Mutex
	detector ObjectDetector
	opts     ObjectDetectorOptions
}

// NewObjectService wraps detector.
func NewObjectService(detector ObjectDetector, opts ObjectDetectorOptions) *ObjectService {
	return &ObjectService{detector: detector, opts: opts}
}

// Recognize returns detected objects. Without EnableMultipleObjects only the
// most prominent (first) object is kept, and labels are dropped unless
// EnableClassification is set.
func (s *ObjectService) Recognize(ctx context.Context, img *preprocess.ProcessedImage) ([]result.DetectedObject, error) {
	if img == nil || img.Image == nil {
		return nil, &Error{Feature: FeatureObject, Err: errors.New("no image")}
	}
	s.mu.Lock()
	objects, err := s.detector.Detect(ctx, img.Image)
	s.mu.Unlock()
	if err != nil {
		return nil, &Error{Feature: FeatureObject, Err: err}
	}
	if !s.opts.EnableMultipleObjects && len(objects) > 1 {
		objects = objects[:1]
	}
	out := make([]result.DetectedObject, 0, len(objects))
	for _, o := range objects {
		labels := make([]result.ImageLabel, 0, len(o.Labels))
		if s.opts.EnableClassification {
			for _, l := range o.Labels {
				labels = append(labels, result.ImageLabel(l))
			}
		}
		out = append(out, result.DetectedObject{
			TrackingID: o.TrackingID,
			Bounds:     geometry.FromRect(o.Bounds),
			Labels:     labels,
		})
	}
	return out, nil
}

// Close releases the detector.
func (s *ObjectService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.Close()
}
