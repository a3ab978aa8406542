package plugin

import (
	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/common"
	"github.com/MeKo-Tech/visionbridge/internal/recognition"
	"github.com/MeKo-Tech/visionbridge/internal/text"
)

// DefaultConfidenceThreshold is used when confidenceThreshold is missing or
// outside 0..100.
const DefaultConfidenceThreshold = 50

// TextOptionsFromMap reads "language". Unknown values fall back to LATIN.
func TextOptionsFromMap(m map[string]any) text.Options {
	s, _ := common.String(m, "language")
	lang, _ := text.ParseLanguage(s)
	return text.Options{Language: lang}
}

// BarcodeOptionsFromMap reads "formats" and "enableAllPotentialBarcodes".
// No recognized format means ALL.
func BarcodeOptionsFromMap(m map[string]any) barcode.Options {
	names, _ := common.Strings(m, "formats")
	potential, _ := common.Bool(m, "enableAllPotentialBarcodes")
	return barcode.Options{
		Formats:                    barcode.ResolveFormats(names),
		EnableAllPotentialBarcodes: potential,
	}
}

// LabelerOptionsFromMap reads "confidenceThreshold" as a percentage.
func LabelerOptionsFromMap(m map[string]any) recognition.LabelerOptions {
	threshold, ok := common.Int(m, "confidenceThreshold")
	if !ok || threshold < 0 || threshold > 100 {
		threshold = DefaultConfidenceThreshold
	}
	return recognition.LabelerOptions{ConfidenceThreshold: float64(threshold) / 100}
}

// ObjectOptionsFromMap reads "enableMultipleObjects" and "enableClassification".
func ObjectOptionsFromMap(m map[string]any) recognition.ObjectDetectorOptions {
	multiple, _ := common.Bool(m, "enableMultipleObjects")
	classify, _ := common.Bool(m, "enableClassification")
	return recognition.ObjectDetectorOptions{
		EnableMultipleObjects: multiple,
		EnableClassification:  classify,
	}
}

// FrameProcessInterval reads "frameProcessInterval". Negative values are 0.
func FrameProcessInterval(m map[string]any) int {
	n, _ := common.Int(m, "frameProcessInterval")
	return max(n, 0)
}
