package bridge

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/utils"
)

// Error codes reported to callers of ProcessImage.
const (
	CodeImageNotFound          = "IMAGE_NOT_FOUND_ERROR"
	CodeInvalidURI             = "INVALID_URI_ERROR"
	CodeUnsupportedImageFormat = "UNSUPPORTED_IMAGE_FORMAT_ERROR"
	CodeProcessingFailed       = "IMAGE_PROCESSING_FAILED_ERROR"
	CodeUnsupportedFeature     = "UNSUPPORTED_FEATURE"
)

// CodedError is a rejection carrying a caller facing code.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error { return e.Err }

// CodeOf returns the code of err, or CodeProcessingFailed when err carries
// none.
func CodeOf(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeProcessingFailed
}

// errInvalidURI marks URI resolution failures.
var errInvalidURI = errors.New("invalid uri")

// classify maps a processing error onto a CodedError.
func classify(err error, feature string) *CodedError {
	var ce *CodedError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, plugin.ErrUnsupportedFeature):
		return &CodedError{Code: CodeUnsupportedFeature, Message: fmt.Sprintf("Feature %s is not supported", feature), Err: err}
	case errors.Is(err, errInvalidURI):
		return &CodedError{Code: CodeInvalidURI, Message: err.Error(), Err: err}
	case errors.Is(err, utils.ErrImageNotFound):
		return &CodedError{Code: CodeImageNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, utils.ErrUnsupportedFormat):
		return &CodedError{Code: CodeUnsupportedImageFormat, Message: err.Error(), Err: err}
	default:
		msg := err.Error()
		if msg == "" {
			msg = "Image processing failed"
		}
		return &CodedError{Code: CodeProcessingFailed, Message: msg, Err: err}
	}
}
