package plugin

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/visionbridge/internal/metrics"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/usecase"
)

// Plugin processes camera frames for one feature.
type Plugin interface {
	Feature() string
	// Call recognizes frame and returns the serialized result: a map for
	// text and barcodes, a slice for labels and objects. Skipped frames and
	// failures return an empty value of the same shape.
	Call(ctx context.Context, frame preprocess.Frame) any
	Close() error
}

type framePlugin[R any] struct {
	feature   string
	interval  int
	imageOpts preprocess.Options
	uc        *usecase.UseCase[R]
	service   io.Closer
	serialize func(R) any

	mu      sync.Mutex
	counter int
}

func newFramePlugin[R any](
	feature string,
	interval int,
	imageOpts preprocess.Options,
	uc *usecase.UseCase[R],
	service io.Closer,
	serialize func(R) any,
) *framePlugin[R] {
	slog.Debug("Created frame plugin",
		"feature", feature,
		"frame_process_interval", interval,
		"image_options", imageOpts.Fingerprint())
	return &framePlugin[R]{
		feature:   feature,
		interval:  interval,
		imageOpts: imageOpts,
		uc:        uc,
		service:   service,
		serialize: serialize,
	}
}

func (p *framePlugin[R]) Feature() string { return p.feature }

func (p *framePlugin[R]) Call(ctx context.Context, frame preprocess.Frame) any {
	if p.skip() {
		metrics.FramesSkipped.WithLabelValues(p.feature).Inc()
		return p.empty()
	}
	res, err := p.uc.ExecuteFrame(ctx, frame, p.imageOpts)
	if err != nil {
		slog.Error("Frame processing failed", "feature", p.feature, "error", err)
		return p.empty()
	}
	return p.serialize(res)
}

func (p *framePlugin[R]) Close() error {
	return p.service.Close()
}

// skip drops interval frames before each processed one, counting from the
// first call.
func (p *framePlugin[R]) skip() bool {
	if p.interval <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter++
	if p.counter <= p.interval {
		return true
	}
	p.counter = 0
	return false
}

func (p *framePlugin[R]) empty() any {
	switch p.feature {
	case ImageLabeling, ObjectDetection:
		return []any{}
	default:
		return map[string]any{}
	}
}
