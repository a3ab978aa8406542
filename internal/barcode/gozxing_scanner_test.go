package barcode

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/visionbridge/internal/testutil"
	"github.com/makiuchi-d/gozxing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScanner_Formats(t *testing.T) {
	s, err := NewScanner(Options{})
	require.NoError(t, err)
	assert.NotContains(t, s.Formats(), FormatPDF417)
	assert.Len(t, s.Formats(), len(ConcreteFormats)-1)

	s, err = NewScanner(Options{Formats: []Format{FormatQR, FormatAztec}})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatQR, FormatAztec}, s.Formats())

	_, err = NewScanner(Options{Formats: []Format{FormatPDF417}})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	s, err = NewScanner(Options{Formats: []Format{FormatPDF417, FormatQR}})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatQR}, s.Formats())
}

func TestZXingScanner_DecodesQRCode(t *testing.T) {
	img := testutil.GenerateQRCode(t, "https://example.com/hello", 240)

	s, err := NewScanner(Options{Formats: []Format{FormatQR, FormatAztec}})
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	got, err := s.Scan(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, got, 1)

	d := got[0]
	assert.Equal(t, FormatQR, d.Format)
	require.NotNil(t, d.RawValue)
	assert.Equal(t, "https://example.com/hello", *d.RawValue)
	assert.Equal(t, ValueURL, d.ValueType)
	assert.Equal(t, URLBookmark{URL: "https://example.com/hello"}, d.Content)
	require.NotNil(t, d.Bounds)
	assert.Positive(t, d.Bounds.Width())
	assert.NotEmpty(t, d.Corners)
}

func TestZXingScanner_BlankImage(t *testing.T) {
	s, err := NewScanner(Options{Formats: []Format{FormatQR}})
	require.NoError(t, err)

	got, err := s.Scan(context.Background(), image.NewGray(image.Rect(0, 0, 64, 64)))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestZXingScanner_Closed(t *testing.T) {
	s, err := NewScanner(Options{Formats: []Format{FormatQR}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Scan(context.Background(), image.NewGray(image.Rect(0, 0, 8, 8)))
	assert.ErrorIs(t, err, ErrScannerClosed)
}

func TestZXingScanner_CanceledContext(t *testing.T) {
	s, err := NewScanner(Options{Formats: []Format{FormatQR}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scan(ctx, image.NewGray(image.Rect(0, 0, 8, 8)))
	assert.ErrorIs(t, err, context.Canceled)
}

func scan(t *testing.T, opts Options, img image.Image) []Detection {
	t.Helper()
	s, err := NewScanner(opts)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()
	got, err := s.Scan(context.Background(), img)
	require.NoError(t, err)
	return got
}

func encode(t *testing.T, format gozxing.BarcodeFormat, payload string) *image.Gray {
	t.Helper()
	img, err := testutil.EncodeBarcode(format, payload, 300, 120)
	require.NoError(t, err)
	return img
}

func TestZXingScanner_UPCAndEAN(t *testing.T) {
	upc := encode(t, gozxing.BarcodeFormat_EAN_13, "0012345678905")

	t.Run("leading zero reported once as UPC-A", func(t *testing.T) {
		got := scan(t, Options{}, upc)
		require.Len(t, got, 1)
		assert.Equal(t, FormatUPCA, got[0].Format)
		assert.Equal(t, "012345678905", *got[0].RawValue)
		assert.Equal(t, "012345678905", *got[0].DisplayValue)
		assert.Equal(t, ValueProduct, got[0].ValueType)
	})

	t.Run("EAN-13 only keeps the full code", func(t *testing.T) {
		got := scan(t, Options{Formats: []Format{FormatEAN13}}, upc)
		require.Len(t, got, 1)
		assert.Equal(t, FormatEAN13, got[0].Format)
		assert.Equal(t, "0012345678905", *got[0].RawValue)
	})

	t.Run("UPC-A only ignores other EAN-13 codes", func(t *testing.T) {
		ean := encode(t, gozxing.BarcodeFormat_EAN_13, "4006381333931")
		assert.Empty(t, scan(t, Options{Formats: []Format{FormatUPCA}}, ean))

		got := scan(t, Options{Formats: []Format{FormatEAN13, FormatUPCA}}, ean)
		require.Len(t, got, 1)
		assert.Equal(t, FormatEAN13, got[0].Format)
		assert.Equal(t, "4006381333931", *got[0].RawValue)
	})
}

func TestZXingScanner_Code128(t *testing.T) {
	got := scan(t, Options{Formats: []Format{FormatCode128}}, encode(t, gozxing.BarcodeFormat_CODE_128, "VB-2024-0001"))
	require.Len(t, got, 1)
	assert.Equal(t, FormatCode128, got[0].Format)
	assert.Equal(t, "VB-2024-0001", *got[0].RawValue)
	assert.Equal(t, ValueText, got[0].ValueType)
}

// damagedQR blanks the middle rows of a QR code so the finder patterns stay
// intact but the payload no longer decodes.
func damagedQR(t *testing.T) *image.Gray {
	t.Helper()
	img := testutil.GenerateQRCode(t, "damaged", 300)
	b := img.Bounds()
	for y := b.Min.Y + b.Dy()*2/5; y < b.Min.Y+b.Dy()*3/5; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestZXingScanner_PotentialBarcodes(t *testing.T) {
	img := damagedQR(t)

	t.Run("disabled", func(t *testing.T) {
		assert.Empty(t, scan(t, Options{Formats: []Format{FormatQR}}, img))
	})

	t.Run("enabled", func(t *testing.T) {
		got := scan(t, Options{Formats: []Format{FormatQR}, EnableAllPotentialBarcodes: true}, img)
		require.Len(t, got, 1)
		d := got[0]
		assert.Equal(t, FormatQR, d.Format)
		assert.Nil(t, d.RawValue)
		assert.Equal(t, ValueUnknown, d.ValueType)
		require.NotNil(t, d.Bounds)
		assert.Positive(t, d.Bounds.Width())
		assert.Positive(t, d.Bounds.Height())
		assert.GreaterOrEqual(t, len(d.Corners), 3)
	})

	t.Run("not searched for QR", func(t *testing.T) {
		assert.Empty(t, scan(t, Options{Formats: []Format{FormatAztec}, EnableAllPotentialBarcodes: true}, img))
	})

	t.Run("decoded QR is not duplicated", func(t *testing.T) {
		got := scan(t, Options{Formats: []Format{FormatQR}, EnableAllPotentialBarcodes: true},
			testutil.GenerateQRCode(t, "intact", 240))
		require.Len(t, got, 1)
		require.NotNil(t, got[0].RawValue)
		assert.Equal(t, "intact", *got[0].RawValue)
	})
}
