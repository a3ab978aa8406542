// Package recognition adapts the vision backends to the domain result model.
// Each service serializes calls into its backend and converts raw
// detections into result types.
package recognition

import "fmt"

// Feature names used in errors and logs.
const (
	FeatureText    = "text"
	FeatureBarcode = "barcode"
	FeatureLabel   = "label"
	FeatureObject  = "object"
)

// Error wraps a failure reported by a vision backend.
type Error struct {
	Feature string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s recognition failed: %v", e.Feature, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
