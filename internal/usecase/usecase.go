// Package usecase ties preprocessing and recognition together for the frame
// and static file paths.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/metrics"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
)

// ErrPreprocessingFailed matches every PreprocessingError.
var ErrPreprocessingFailed = errors.New("image preprocessing failed")

// PreprocessingError reports that the input could not be turned into a
// processed image. The recognizer was not called.
type PreprocessingError struct {
	Source string // frame or file
	Err    error
}

func (e *PreprocessingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Source, ErrPreprocessingFailed)
	}
	return fmt.Sprintf("%s: %v: %v", e.Source, ErrPreprocessingFailed, e.Err)
}

func (e *PreprocessingError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPreprocessingFailed) hold.
func (e *PreprocessingError) Is(target error) bool { return target == ErrPreprocessingFailed }

// Recognizer is a recognition service producing R from a processed image.
type Recognizer[R any] interface {
	Recognize(ctx context.Context, img *preprocess.ProcessedImage) (R, error)
}

// UseCase runs one feature against frames and files with a shared service.
type UseCase[R any] struct {
	feature      string
	preprocessor *preprocess.Preprocessor
	service      Recognizer[R]
}

// New creates a use case. A nil preprocessor uses the default one.
func New[R any](feature string, p *preprocess.Preprocessor, service Recognizer[R]) *UseCase[R] {
	if p == nil {
		p = preprocess.NewDefault()
	}
	return &UseCase[R]{feature: feature, preprocessor: p, service: service}
}

// Feature returns the feature name the use case was created for.
func (u *UseCase[R]) Feature() string { return u.feature }

// ExecuteFrame preprocesses a live frame and recognizes it.
func (u *UseCase[R]) ExecuteFrame(ctx context.Context, frame preprocess.Frame, opts preprocess.Options) (R, error) {
	return u.execute(ctx, "frame", func() (*preprocess.ProcessedImage, error) {
		return u.preprocessor.PreprocessFrame(frame, opts)
	})
}

// ExecuteFile preprocesses the image at path and recognizes it.
func (u *UseCase[R]) ExecuteFile(ctx context.Context, path string, opts preprocess.Options) (R, error) {
	return u.execute(ctx, "file", func() (*preprocess.ProcessedImage, error) {
		return u.preprocessor.PreprocessImage(path, opts)
	})
}

func (u *UseCase[R]) execute(ctx context.Context, source string, prepare func() (*preprocess.ProcessedImage, error)) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	start := time.Now()

	processed, err := prepare()
	if err != nil || processed == nil || processed.Image == nil {
		metrics.RecognitionsTotal.WithLabelValues(u.feature, source, "preprocess_error").Inc()
		slog.Debug("Preprocessing failed", "feature", u.feature, "source", source, "error", err)
		return zero, &PreprocessingError{Source: source, Err: err}
	}
	defer processed.Release()

	res, err := u.service.Recognize(ctx, processed)
	elapsed := time.Since(start)
	metrics.ProcessingDuration.WithLabelValues(u.feature, source).Observe(elapsed.Seconds())
	if err != nil {
		metrics.RecognitionsTotal.WithLabelValues(u.feature, source, "error").Inc()
		return zero, err
	}
	metrics.RecognitionsTotal.WithLabelValues(u.feature, source, "success").Inc()
	slog.Debug("Recognition finished",
		"feature", u.feature,
		"source", source,
		"width", processed.Metadata.Width,
		"height", processed.Metadata.Height,
		"rotation", processed.Metadata.Rotation,
		"duration_ms", elapsed.Milliseconds())
	return res, nil
}
