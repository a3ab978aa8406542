// Package serializer converts recognition results into the nested
// map[string]any shape handed to callers. Optional values are omitted
// instead of being written as nil.
package serializer

import (
	"github.com/MeKo-Tech/visionbridge/internal/geometry"
	"github.com/MeKo-Tech/visionbridge/internal/result"
)

// TextToMap serializes a text recognition result.
func TextToMap(r result.TextRecognitionResult) map[string]any {
	blocks := make([]any, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		blocks = append(blocks, blockMap(b))
	}
	return map[string]any{
		"text":   r.Text,
		"blocks": blocks,
	}
}

func blockMap(b result.TextBlock) map[string]any {
	m := map[string]any{"text": b.Text}
	putGeometry(m, b.Bounds, b.Corners)
	lines := make([]any, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, lineMap(l))
	}
	m["lines"] = lines
	m["languages"] = languages(b.Languages)
	return m
}

func lineMap(l result.TextLine) map[string]any {
	m := map[string]any{"text": l.Text}
	putGeometry(m, l.Bounds, l.Corners)
	elements := make([]any, 0, len(l.Elements))
	for _, e := range l.Elements {
		elements = append(elements, elementMap(e))
	}
	m["elements"] = elements
	putScore(m, l.Confidence, l.Angle)
	m["languages"] = languages(l.Languages)
	return m
}

func elementMap(e result.TextElement) map[string]any {
	m := map[string]any{"text": e.Text}
	putGeometry(m, e.Bounds, e.Corners)
	symbols := make([]any, 0, len(e.Symbols))
	for _, s := range e.Symbols {
		symbols = append(symbols, symbolMap(s))
	}
	m["symbols"] = symbols
	putScore(m, e.Confidence, e.Angle)
	m["languages"] = languages(e.Languages)
	return m
}

func symbolMap(s result.TextSymbol) map[string]any {
	m := map[string]any{"text": s.Text}
	putGeometry(m, s.Bounds, s.Corners)
	putScore(m, s.Confidence, s.Angle)
	m["languages"] = languages(s.Languages)
	return m
}

// BarcodesToMap serializes a barcode scanning result.
func BarcodesToMap(r result.BarcodeScanningResult) map[string]any {
	barcodes := make([]any, 0, len(r.Barcodes))
	for _, b := range r.Barcodes {
		barcodes = append(barcodes, BarcodeToMap(b))
	}
	return map[string]any{"barcodes": barcodes}
}

// BarcodeToMap serializes one barcode. format and valueType are always set.
func BarcodeToMap(b result.BarcodeResult) map[string]any {
	m := map[string]any{}
	putGeometry(m, b.Bounds, b.Corners)
	if b.RawValue != nil {
		m["rawValue"] = *b.RawValue
	}
	if b.DisplayValue != nil {
		m["displayValue"] = *b.DisplayValue
	}
	m["format"] = b.Format.String()
	m["valueType"] = b.ValueType.String()
	if b.Content != nil {
		m["content"] = map[string]any{
			"type": b.Content.Type.String(),
			"data": contentData(b.Content.Data),
		}
	}
	return m
}

// LabelsToSlice serializes image labels.
func LabelsToSlice(labels []result.ImageLabel) []any {
	out := make([]any, 0, len(labels))
	for _, l := range labels {
		out = append(out, labelMap(l))
	}
	return out
}

func labelMap(l result.ImageLabel) map[string]any {
	return map[string]any{
		"text":       l.Text,
		"confidence": l.Confidence,
		"index":      l.Index,
	}
}

// ObjectsToSlice serializes detected objects.
func ObjectsToSlice(objects []result.DetectedObject) []any {
	out := make([]any, 0, len(objects))
	for _, o := range objects {
		m := map[string]any{
			"bounds": boundsMap(o.Bounds),
			"labels": LabelsToSlice(o.Labels),
		}
		if o.TrackingID != nil {
			m["trackingId"] = *o.TrackingID
		}
		out = append(out, m)
	}
	return out
}

func putGeometry(m map[string]any, bounds *geometry.BoundingBox, corners []geometry.Corner) {
	if bounds != nil {
		m["bounds"] = boundsMap(*bounds)
	}
	if corners != nil {
		m["corners"] = cornersSlice(corners)
	}
}

func putScore(m map[string]any, confidence, angle *float64) {
	if confidence != nil {
		m["confidence"] = *confidence
	}
	if angle != nil {
		m["angle"] = *angle
	}
}

func boundsMap(b geometry.BoundingBox) map[string]any {
	return map[string]any{
		"x":       b.X,
		"y":       b.Y,
		"centerX": b.CenterX,
		"centerY": b.CenterY,
		"width":   b.Width,
		"height":  b.Height,
		"top":     b.Top,
		"left":    b.Left,
		"bottom":  b.Bottom,
		"right":   b.Right,
	}
}

func cornersSlice(corners []geometry.Corner) []any {
	out := make([]any, 0, len(corners))
	for _, c := range corners {
		out = append(out, map[string]any{"x": c.X, "y": c.Y})
	}
	return out
}

func languages(in []string) []any {
	out := make([]any, 0, len(in))
	for _, l := range in {
		out = append(out, l)
	}
	return out
}
