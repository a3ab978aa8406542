package factory

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/metrics"
	"github.com/MeKo-Tech/visionbridge/internal/text"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecognizer struct {
	lang   text.Language
	closed bool
}

func (s *stubRecognizer) Recognize(context.Context, image.Image) (*text.Text, error) {
	return &text.Text{}, nil
}

func (s *stubRecognizer) Close() error {
	s.closed = true
	return nil
}

type countingTextBackend struct {
	mu    sync.Mutex
	built []*stubRecognizer
}

func (b *countingTextBackend) build(opts text.Options) (text.Recognizer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &stubRecognizer{lang: opts.Language}
	b.built = append(b.built, r)
	return r, nil
}

func TestTextCache_ReusesAndRebuilds(t *testing.T) {
	backend := &countingTextBackend{}
	cache := NewTextCache(backend.build)

	latin := text.Options{Language: text.Latin}
	first, err := cache.GetOrCreate(latin)
	require.NoError(t, err)
	second, err := cache.GetOrCreate(latin)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Builds())

	korean, err := cache.GetOrCreate(text.Options{Language: text.Korean})
	require.NoError(t, err)
	assert.NotSame(t, first, korean)
	assert.Equal(t, 2, cache.Builds())
	assert.Equal(t, "language=KOREAN", cache.Key())

	require.Len(t, backend.built, 2)
	assert.True(t, backend.built[0].closed, "replaced recognizer must be closed")
	assert.False(t, backend.built[1].closed)
	assert.Equal(t, text.Korean, backend.built[1].lang)

	require.NoError(t, cache.Close())
	assert.True(t, backend.built[1].closed)
	assert.Equal(t, "", cache.Key())
}

// Language changes must produce a new handle even though everything else
// about the options is identical.
func TestTextCache_LanguageIsPartOfKey(t *testing.T) {
	backend := &countingTextBackend{}
	cache := NewTextCache(backend.build)

	for _, lang := range []text.Language{text.Latin, text.Chinese, text.Latin} {
		_, err := cache.GetOrCreate(text.Options{Language: lang})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, cache.Builds())
}

type stubScanner struct{ closed bool }

func (s *stubScanner) Scan(context.Context, image.Image) ([]barcode.Detection, error) {
	return nil, nil
}

func (s *stubScanner) Close() error {
	s.closed = true
	return nil
}

func TestBarcodeCache_Fingerprint(t *testing.T) {
	builds := 0
	cache := NewBarcodeCache(func(barcode.Options) (barcode.Scanner, error) {
		builds++
		return &stubScanner{}, nil
	})

	qrEan := barcode.Options{Formats: []barcode.Format{barcode.FormatQR, barcode.FormatEAN13}}
	eanQr := barcode.Options{Formats: []barcode.Format{barcode.FormatEAN13, barcode.FormatQR}}

	_, err := cache.GetOrCreate(qrEan)
	require.NoError(t, err)
	_, err = cache.GetOrCreate(eanQr)
	require.NoError(t, err)
	assert.Equal(t, 1, builds, "format order must not matter")

	_, err = cache.GetOrCreate(barcode.Options{Formats: qrEan.Formats, EnableAllPotentialBarcodes: true})
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
	assert.Equal(t, "EAN_13,QR_CODE|true", cache.Key())
}

func TestCache_Metrics(t *testing.T) {
	name := "metrics-test"
	cache := NewCache(name, func(o text.Options) (*stubRecognizer, error) {
		return &stubRecognizer{lang: o.Language}, nil
	})

	hits := metrics.CacheEvents.WithLabelValues(name, "hit")
	misses := metrics.CacheEvents.WithLabelValues(name, "miss")
	rebuilds := metrics.CacheEvents.WithLabelValues(name, "rebuild")

	_, _ = cache.GetOrCreate(text.Options{Language: text.Latin})
	_, _ = cache.GetOrCreate(text.Options{Language: text.Latin})
	_, _ = cache.GetOrCreate(text.Options{Language: text.Japanese})

	assert.Equal(t, 1.0, testutil.ToFloat64(hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(misses))
	assert.Equal(t, 1.0, testutil.ToFloat64(rebuilds))
}

func TestCache_BuildError(t *testing.T) {
	boom := errors.New("model missing")
	cache := NewCache("error-test", func(text.Options) (*stubRecognizer, error) {
		return nil, boom
	})
	h, err := cache.GetOrCreate(text.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, h)
	assert.Equal(t, 0, cache.Builds())
	assert.NoError(t, cache.Close())
}

func TestCache_ConcurrentSameKeyBuildsOnce(t *testing.T) {
	backend := &countingTextBackend{}
	cache := NewTextCache(backend.build)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrCreate(text.Options{Language: text.Devanagari})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cache.Builds())
}
