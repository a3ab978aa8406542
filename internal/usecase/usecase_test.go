package usecase

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/geometry"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/recognition"
	"github.com/MeKo-Tech/visionbridge/internal/result"
	"github.com/MeKo-Tech/visionbridge/internal/testutil"
	"github.com/MeKo-Tech/visionbridge/internal/text"
	"github.com/MeKo-Tech/visionbridge/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullImageRecognizer reports one block covering the whole input.
type fullImageRecognizer struct {
	calls int
	seen  image.Rectangle
}

func (f *fullImageRecognizer) Recognize(_ context.Context, img image.Image) (*text.Text, error) {
	f.calls++
	f.seen = img.Bounds()
	rect := geometry.NewRect(0, 0, float64(f.seen.Dx()), float64(f.seen.Dy()))
	return &text.Text{
		Text:   "HELLO",
		Blocks: []text.Block{{Text: "HELLO", Bounds: &rect, Lines: []text.Line{{Text: "HELLO", Bounds: &rect}}}},
	}, nil
}

func (f *fullImageRecognizer) Close() error { return nil }

// recordingService keeps the processed image it was given.
type recordingService struct {
	calls     int
	processed *preprocess.ProcessedImage
	metadata  preprocess.ImageMetadata
	err       error
}

func (r *recordingService) Recognize(_ context.Context, img *preprocess.ProcessedImage) (int, error) {
	r.calls++
	r.processed = img
	r.metadata = img.Metadata
	return 42, r.err
}

func TestExecuteFile_LandscapeLeftText(t *testing.T) {
	cfg := testutil.DefaultTextImageConfig()
	path := testutil.WriteTempPNG(t, testutil.GenerateTextImage(cfg), "hello.png")

	backend := &fullImageRecognizer{}
	uc := New[result.TextRecognitionResult](recognition.FeatureText, nil, recognition.NewTextService(backend))

	opts := preprocess.DefaultOptions()
	opts.Orientation = preprocess.LandscapeLeft
	res, err := uc.ExecuteFile(context.Background(), path, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, cfg.Size.Height, backend.seen.Dx(), "rotated image width")
	assert.Equal(t, cfg.Size.Width, backend.seen.Dy(), "rotated image height")

	assert.Equal(t, "HELLO", res.Text)
	require.Len(t, res.Blocks, 1)
	bounds := res.Blocks[0].Bounds
	require.NotNil(t, bounds)
	assert.InDelta(t, float64(cfg.Size.Height), bounds.Width, 1e-9)
	assert.InDelta(t, float64(cfg.Size.Width), bounds.Height, 1e-9)
}

func TestExecuteFile_RotationMetadataIsZero(t *testing.T) {
	path := testutil.WriteTempPNG(t, testutil.CreateTestImage(30, 20, image.White), "plain.png")
	svc := &recordingService{}
	uc := New[int]("test", nil, svc)

	opts := preprocess.DefaultOptions()
	opts.Orientation = preprocess.LandscapeRight
	got, err := uc.ExecuteFile(context.Background(), path, opts)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, preprocess.ImageMetadata{Width: 20, Height: 30, Rotation: 0}, svc.metadata)
}

func TestExecuteFrame_SensorCorrection(t *testing.T) {
	svc := &recordingService{}
	uc := New[int]("test", nil, svc)

	frame := preprocess.NewImageFrame(testutil.CreateTestImage(40, 10, image.Black), preprocess.LandscapeLeft)
	_, err := uc.ExecuteFrame(context.Background(), frame, preprocess.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 270, svc.metadata.Rotation)
	assert.Equal(t, 10, svc.metadata.Width)
	assert.Equal(t, 40, svc.metadata.Height)
}

func TestExecute_ReleasesProcessedImage(t *testing.T) {
	svc := &recordingService{}
	uc := New[int]("test", nil, svc)

	frame := preprocess.NewImageFrame(testutil.CreateTestImage(4, 4, image.White), preprocess.Portrait)
	_, err := uc.ExecuteFrame(context.Background(), frame, preprocess.DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, svc.processed)
	assert.Nil(t, svc.processed.Image, "processed image must be released after recognition")

	svc.err = errors.New("sdk failure")
	_, err = uc.ExecuteFrame(context.Background(), frame, preprocess.DefaultOptions())
	require.Error(t, err)
	assert.Nil(t, svc.processed.Image, "released on failure too")
}

func TestExecute_PreprocessingFailure(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		target error
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.png"), utils.ErrImageNotFound},
		{"corrupt file", testutil.WriteTempFile(t, "bad.png", []byte("not an image")), utils.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &recordingService{}
			uc := New[int]("test", nil, svc)

			_, err := uc.ExecuteFile(context.Background(), tt.path, preprocess.DefaultOptions())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPreprocessingFailed)
			assert.ErrorIs(t, err, tt.target)
			var perr *PreprocessingError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "file", perr.Source)
			assert.Equal(t, 0, svc.calls, "recognizer must not run")
		})
	}

	t.Run("nil frame", func(t *testing.T) {
		svc := &recordingService{}
		uc := New[int]("test", nil, svc)
		_, err := uc.ExecuteFrame(context.Background(), nil, preprocess.DefaultOptions())
		assert.ErrorIs(t, err, ErrPreprocessingFailed)
		assert.Equal(t, 0, svc.calls)
	})
}

func TestExecute_CanceledContext(t *testing.T) {
	svc := &recordingService{}
	uc := New[int]("test", nil, svc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame := preprocess.NewImageFrame(testutil.CreateTestImage(4, 4, image.White), preprocess.Portrait)
	_, err := uc.ExecuteFrame(ctx, frame, preprocess.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, svc.calls)
}

func TestExecuteFile_QRCodeURL(t *testing.T) {
	path := testutil.WriteTempPNG(t, testutil.GenerateQRCode(t, "https://example.com", 200), "qr.png")

	scanner, err := barcode.NewScanner(barcode.Options{Formats: []barcode.Format{barcode.FormatQR}})
	require.NoError(t, err)
	svc := recognition.NewBarcodeService(scanner)
	t.Cleanup(func() { _ = svc.Close() })

	uc := New[result.BarcodeScanningResult](recognition.FeatureBarcode, nil, svc)
	res, err := uc.ExecuteFile(context.Background(), path, preprocess.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Barcodes, 1)

	bc := res.Barcodes[0]
	assert.Equal(t, barcode.FormatQR, bc.Format)
	assert.Equal(t, barcode.ValueURL, bc.ValueType)
	require.NotNil(t, bc.RawValue)
	assert.Equal(t, "https://example.com", *bc.RawValue)
	require.NotNil(t, bc.Content)
	assert.Equal(t, "https://example.com", bc.Content.Data.(barcode.URLBookmark).URL)
}
