package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strings"

	"github.com/MeKo-Tech/visionbridge/internal/geometry"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"
	qrdetector "github.com/makiuchi-d/gozxing/qrcode/detector"
)

// ErrScannerClosed is returned by Scan after Close.
var ErrScannerClosed = errors.New("barcode: scanner closed")

// ErrUnsupportedFormat is returned by NewScanner when none of the requested
// formats can be decoded. gozxing has no PDF417 decoder.
var ErrUnsupportedFormat = errors.New("barcode: unsupported format")

type decodeFunc func(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) ([]*gozxing.Result, error)

// decoder runs one gozxing reader and reports results for formats only.
type decoder struct {
	formats []Format
	decode  decodeFunc
}

// ZXingScanner decodes barcodes with gozxing. It is not safe for concurrent
// use; callers serialize Scan calls.
type ZXingScanner struct {
	opts     Options
	formats  []Format
	decoders []decoder
	hints    map[gozxing.DecodeHintType]interface{}
	closed   bool
}

// NewScanner returns the gozxing-backed scanner for opts. Formats without a
// decoder are skipped; if nothing is left ErrUnsupportedFormat is returned.
func NewScanner(opts Options) (*ZXingScanner, error) {
	requested := ExpandFormats(opts.Formats)
	formats := make([]Format, 0, len(requested))
	for _, f := range requested {
		if !decodable(f) {
			slog.Debug("Skipping barcode format without decoder", "format", f.String())
			continue
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Fingerprint())
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	slog.Debug("Created barcode scanner", "formats", opts.Fingerprint(), "try_harder", opts.TryHarder)
	return &ZXingScanner{opts: opts, formats: formats, decoders: newDecoders(formats), hints: hints}, nil
}

// Formats returns the concrete formats this scanner searches for.
func (s *ZXingScanner) Formats() []Format {
	return slices.Clone(s.formats)
}

// Scan decodes every supported symbol in img. No symbols is not an error.
func (s *ZXingScanner) Scan(ctx context.Context, img image.Image) ([]Detection, error) {
	if s.closed {
		return nil, ErrScannerClosed
	}
	if img == nil {
		return nil, errors.New("barcode: input image is nil")
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("barcode: binarize: %w", err)
	}

	out := make([]Detection, 0)
	seen := make(map[string]bool)
	for _, dec := range s.decoders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// decode failures (not found, checksum, format) mean "nothing of this symbology"
		results, err := dec.decode(bmp, s.hints)
		if err != nil {
			continue
		}
		for _, r := range results {
			d, ok := dec.detection(r)
			if !ok {
				continue
			}
			key := d.Format.String() + "\x00" + *d.RawValue
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, d)
		}
	}

	if s.opts.EnableAllPotentialBarcodes && !containsFormat(out, FormatQR) && s.searches(FormatQR) {
		if d, ok := s.locateQR(bmp); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// detection converts r, folding EAN-13 codes with a leading zero into UPC-A
// the way zxing's UPC-A reader does. Results outside dec.formats are dropped.
func (dec decoder) detection(r *gozxing.Result) (Detection, bool) {
	d := detectionFromResult(r)
	if d.Format == FormatEAN13 && slices.Contains(dec.formats, FormatUPCA) && strings.HasPrefix(*d.RawValue, "0") {
		raw := (*d.RawValue)[1:]
		display := raw
		d.Format = FormatUPCA
		d.RawValue = &raw
		d.DisplayValue = &display
		d.ValueType, d.Content = ParseValue(FormatUPCA, raw)
	}
	return d, slices.Contains(dec.formats, d.Format)
}

// Close releases the scanner. Further Scan calls fail.
func (s *ZXingScanner) Close() error {
	s.closed = true
	s.decoders = nil
	return nil
}

func (s *ZXingScanner) searches(f Format) bool {
	return slices.Contains(s.formats, f)
}

// locateQR finds QR finder patterns without decoding the payload.
func (s *ZXingScanner) locateQR(bmp *gozxing.BinaryBitmap) (Detection, bool) {
	matrix, err := bmp.GetBlackMatrix()
	if err != nil {
		return Detection{}, false
	}
	res, err := qrdetector.NewDetector(matrix).Detect(s.hints)
	if err != nil {
		return Detection{}, false
	}
	pts := convertPoints(res.GetPoints())
	if len(pts) == 0 {
		return Detection{}, false
	}
	return Detection{
		Format:    FormatQR,
		Bounds:    geometry.RectFromPoints(pts),
		Corners:   pts,
		ValueType: ValueUnknown,
	}, true
}

func detectionFromResult(r *gozxing.Result) Detection {
	format := mapFormatFromZXing(r.GetBarcodeFormat())
	raw := r.GetText()
	display := raw
	pts := convertPoints(r.GetResultPoints())
	vt, content := ParseValue(format, raw)
	return Detection{
		Format:       format,
		RawValue:     &raw,
		DisplayValue: &display,
		Bounds:       geometry.RectFromPoints(pts),
		Corners:      pts,
		ValueType:    vt,
		Content:      content,
	}
}

func convertPoints(rps []gozxing.ResultPoint) []geometry.Point {
	if len(rps) == 0 {
		return nil
	}
	pts := make([]geometry.Point, 0, len(rps))
	for _, p := range rps {
		if p == nil {
			continue
		}
		pts = append(pts, geometry.Point{X: p.GetX(), Y: p.GetY()})
	}
	return pts
}

func containsFormat(ds []Detection, f Format) bool {
	for _, d := range ds {
		if d.Format == f {
			return true
		}
	}
	return false
}

func decodable(f Format) bool {
	switch f {
	case FormatQR, FormatEAN13, FormatUPCA:
		return true
	default:
		_, ok := newReader(f)
		return ok
	}
}

// newDecoders builds one decoder per reader. QR codes go through the multi
// reader so several symbols in one frame are all reported. EAN-13 and UPC-A
// share the EAN-13 reader since a UPC-A symbol is an EAN-13 with a leading
// zero.
func newDecoders(formats []Format) []decoder {
	out := make([]decoder, 0, len(formats))
	upcean := false
	for _, f := range formats {
		switch f {
		case FormatQR:
			out = append(out, decoder{formats: []Format{FormatQR}, decode: multiqr.NewQRCodeMultiReader().DecodeMultiple})
		case FormatEAN13, FormatUPCA:
			if upcean {
				continue
			}
			upcean = true
			var group []Format
			for _, g := range formats {
				if g == FormatEAN13 || g == FormatUPCA {
					group = append(group, g)
				}
			}
			out = append(out, decoder{formats: group, decode: single(oned.NewEAN13Reader())})
		default:
			if r, ok := newReader(f); ok {
				out = append(out, decoder{formats: []Format{f}, decode: single(r)})
			}
		}
	}
	return out
}

func single(r gozxing.Reader) decodeFunc {
	return func(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) ([]*gozxing.Result, error) {
		res, err := r.Decode(bmp, hints)
		if err != nil {
			return nil, err
		}
		return []*gozxing.Result{res}, nil
	}
}

func newReader(f Format) (gozxing.Reader, bool) {
	switch f {
	case FormatAztec:
		return aztec.NewAztecReader(), true
	case FormatDataMatrix:
		return datamatrix.NewDataMatrixReader(), true
	case FormatCode128:
		return oned.NewCode128Reader(), true
	case FormatCode39:
		return oned.NewCode39Reader(), true
	case FormatCode93:
		return oned.NewCode93Reader(), true
	case FormatEAN8:
		return oned.NewEAN8Reader(), true
	case FormatUPCE:
		return oned.NewUPCEReader(), true
	case FormatITF:
		return oned.NewITFReader(), true
	case FormatCodabar:
		return oned.NewCodaBarReader(), true
	default:
		return nil, false
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return FormatAztec
	case gozxing.BarcodeFormat_PDF_417:
		return FormatPDF417
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_CODE_93:
		return FormatCode93
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}
