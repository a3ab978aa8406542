package recognition

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/geometry"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/result"
)

// BarcodeService runs a barcode scanner and maps its detections.
type BarcodeService struct {
	mu      sync.Mutex
	scanner barcode.Scanner
}

// NewBarcodeService wraps scanner.
func NewBarcodeService(scanner barcode.Scanner) *BarcodeService {
	return &BarcodeService{scanner: scanner}
}

// Recognize blocks until the scanner finishes.
func (s *BarcodeService) Recognize(ctx context.Context, img *preprocess.ProcessedImage) (result.BarcodeScanningResult, error) {
	if img == nil || img.Image == nil {
		return result.BarcodeScanningResult{}, &Error{Feature: FeatureBarcode, Err: errors.New("no image")}
	}
	s.mu.Lock()
	detections, err := s.scanner.Scan(ctx, img.Image)
	s.mu.Unlock()
	if err != nil {
		return result.BarcodeScanningResult{}, &Error{Feature: FeatureBarcode, Err: err}
	}
	return MapBarcodes(detections), nil
}

// Close releases the scanner.
func (s *BarcodeService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanner.Close()
}

// MapBarcodes converts scanner detections.
func MapBarcodes(detections []barcode.Detection) result.BarcodeScanningResult {
	out := make([]result.BarcodeResult, 0, len(detections))
	for _, d := range detections {
		out = append(out, MapBarcode(d))
	}
	return result.BarcodeScanningResult{Barcodes: out}
}

// MapBarcode converts a single detection. Formats outside the known set
// become UNKNOWN.
func MapBarcode(d barcode.Detection) result.BarcodeResult {
	format := d.Format
	if !slices.Contains(barcode.ConcreteFormats, format) {
		format = barcode.FormatUnknown
	}
	valueType := d.ValueType
	if valueType < barcode.ValueUnknown || valueType > barcode.ValueDriverLicense {
		valueType = barcode.ValueUnknown
	}

	r := result.BarcodeResult{
		Bounds:       geometry.FromRectPtr(d.Bounds),
		Corners:      geometry.ToCorners(d.Corners),
		RawValue:     d.RawValue,
		DisplayValue: d.DisplayValue,
		Format:       format,
		ValueType:    valueType,
	}
	if d.RawValue == nil {
		// potential barcodes still report their type, with no data
		r.Content = &result.BarcodeContent{Type: valueType}
		return r
	}
	switch valueType {
	case barcode.ValueUnknown, barcode.ValueText, barcode.ValueISBN, barcode.ValueProduct:
		r.Content = &result.BarcodeContent{Type: valueType, Data: *d.RawValue}
	default:
		if d.Content != nil {
			r.Content = &result.BarcodeContent{Type: valueType, Data: d.Content}
		}
	}
	return r
}
