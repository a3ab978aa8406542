package recognition

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/text"
)

type fakeRecognizer struct {
	out      *text.Text
	err      error
	inFlight atomic.Int32
	overlap  atomic.Bool
	closed   bool
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ image.Image) (*text.Text, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	f.inFlight.Add(-1)
	return f.out, f.err
}

func (f *fakeRecognizer) Close() error {
	f.closed = true
	return nil
}

type fakeScanner struct {
	out []barcode.Detection
	err error
}

func (f *fakeScanner) Scan(context.Context, image.Image) ([]barcode.Detection, error) {
	return f.out, f.err
}

func (f *fakeScanner) Close() error { return nil }

type fakeLabeler struct{ out []Label }

func (f *fakeLabeler) Label(context.Context, image.Image) ([]Label, error) { return f.out, nil }
func (f *fakeLabeler) Close() error                                       { return nil }

type fakeDetector struct{ out []Object }

func (f *fakeDetector) Detect(context.Context, image.Image) ([]Object, error) { return f.out, nil }
func (f *fakeDetector) Close() error                                        { return nil }
