// Package result holds the platform-neutral recognition results returned to
// callers before serialization.
package result

import (
	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/geometry"
)

// TextSymbol is a single character.
type TextSymbol struct {
	Text       string
	Bounds     *geometry.BoundingBox
	Corners    []geometry.Corner
	Languages  []string
	Confidence *float64
	Angle      *float64
}

// TextElement is a word.
type TextElement struct {
	Text       string
	Bounds     *geometry.BoundingBox
	Corners    []geometry.Corner
	Symbols    []TextSymbol
	Languages  []string
	Confidence *float64
	Angle      *float64
}

// TextLine is a line of words.
type TextLine struct {
	Text       string
	Bounds     *geometry.BoundingBox
	Corners    []geometry.Corner
	Elements   []TextElement
	Languages  []string
	Confidence *float64
	Angle      *float64
}

// TextBlock groups lines. It has no confidence or angle.
type TextBlock struct {
	Text      string
	Bounds    *geometry.BoundingBox
	Corners   []geometry.Corner
	Lines     []TextLine
	Languages []string
}

// TextRecognitionResult is the full text found in one image.
type TextRecognitionResult struct {
	Text   string
	Blocks []TextBlock
}

// BarcodeContent pairs a value type with its typed payload. Data is the raw
// value for TEXT, ISBN, PRODUCT and UNKNOWN.
type BarcodeContent struct {
	Type barcode.ValueType
	Data any
}

// BarcodeResult is one detected barcode.
type BarcodeResult struct {
	Bounds       *geometry.BoundingBox
	Corners      []geometry.Corner
	RawValue     *string
	DisplayValue *string
	Format       barcode.Format
	ValueType    barcode.ValueType
	Content      *BarcodeContent
}

// BarcodeScanningResult lists every barcode found in one image.
type BarcodeScanningResult struct {
	Barcodes []BarcodeResult
}

// ImageLabel is one classification label.
type ImageLabel struct {
	Text       string
	Confidence float64
	Index      int
}

// DetectedObject is one located object with its labels.
type DetectedObject struct {
	TrackingID *int
	Bounds     geometry.BoundingBox
	Labels     []ImageLabel
}
