// Package barcode wraps the barcode decoder and classifies decoded payloads
// into structured value types.
package barcode

import (
	"context"
	"image"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/visionbridge/internal/geometry"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatAll
	FormatCode128
	FormatCode39
	FormatCode93
	FormatCodabar
	FormatDataMatrix
	FormatEAN13
	FormatEAN8
	FormatITF
	FormatQR
	FormatUPCA
	FormatUPCE
	FormatPDF417
	FormatAztec
)

var formatNames = map[Format]string{
	FormatUnknown:    "UNKNOWN",
	FormatAll:        "ALL",
	FormatCode128:    "CODE_128",
	FormatCode39:     "CODE_39",
	FormatCode93:     "CODE_93",
	FormatCodabar:    "CODABAR",
	FormatDataMatrix: "DATA_MATRIX",
	FormatEAN13:      "EAN_13",
	FormatEAN8:       "EAN_8",
	FormatITF:        "ITF",
	FormatQR:         "QR_CODE",
	FormatUPCA:       "UPC_A",
	FormatUPCE:       "UPC_E",
	FormatPDF417:     "PDF417",
	FormatAztec:      "AZTEC",
}

// ConcreteFormats lists every known symbology in declaration order. Not all
// of them can be decoded; see ErrUnsupportedFormat.
var ConcreteFormats = []Format{
	FormatCode128, FormatCode39, FormatCode93, FormatCodabar, FormatDataMatrix,
	FormatEAN13, FormatEAN8, FormatITF, FormatQR, FormatUPCA, FormatUPCE,
	FormatPDF417, FormatAztec,
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return formatNames[FormatUnknown]
}

var upper = cases.Upper(language.Und)

// ParseFormat parses a format name case-insensitively.
func ParseFormat(s string) (Format, bool) {
	name := upper.String(strings.TrimSpace(s))
	for f, n := range formatNames {
		if n == name && f != FormatUnknown {
			return f, true
		}
	}
	return FormatUnknown, false
}

// ResolveFormats parses the requested names, dropping unknown ones. An empty
// result means every format and is returned as [FormatAll].
func ResolveFormats(names []string) []Format {
	var out []Format
	for _, n := range names {
		f, ok := ParseFormat(n)
		if !ok || slices.Contains(out, f) {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 || slices.Contains(out, FormatAll) {
		return []Format{FormatAll}
	}
	slices.Sort(out)
	return out
}

// ExpandFormats replaces FormatAll with every concrete format.
func ExpandFormats(formats []Format) []Format {
	if len(formats) == 0 || slices.Contains(formats, FormatAll) {
		return slices.Clone(ConcreteFormats)
	}
	out := make([]Format, 0, len(formats))
	for _, f := range formats {
		if f != FormatUnknown && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// ValueType classifies the payload of a decoded barcode.
type ValueType int

const (
	ValueUnknown ValueType = iota
	ValueContactInfo
	ValueEmail
	ValueISBN
	ValuePhone
	ValueProduct
	ValueSMS
	ValueText
	ValueURL
	ValueWiFi
	ValueGeo
	ValueCalendarEvent
	ValueDriverLicense
)

var valueTypeNames = [...]string{
	"UNKNOWN", "CONTACT_INFO", "EMAIL", "ISBN", "PHONE", "PRODUCT", "SMS",
	"TEXT", "URL", "WIFI", "GEO", "CALENDAR_EVENT", "DRIVER_LICENSE",
}

func (v ValueType) String() string {
	if v < 0 || int(v) >= len(valueTypeNames) {
		return valueTypeNames[ValueUnknown]
	}
	return valueTypeNames[v]
}

// Options controls which symbologies a scanner looks for.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all.
	Formats []Format

	// EnableAllPotentialBarcodes reports symbols that were located but
	// could not be decoded.
	EnableAllPotentialBarcodes bool

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool
}

// Fingerprint is the cache key of a scanner built from these options:
// sorted format names, a pipe, then the potential-barcodes flag.
func (o Options) Fingerprint() string {
	formats := o.Formats
	if len(formats) == 0 {
		formats = []Format{FormatAll}
	}
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, f.String())
	}
	slices.Sort(names)
	names = slices.Compact(names)
	return strings.Join(names, ",") + "|" + strconv.FormatBool(o.EnableAllPotentialBarcodes)
}

// Detection is a single symbol found by a scanner.
type Detection struct {
	Format Format
	// RawValue is nil when the symbol was located but not decoded.
	RawValue     *string
	DisplayValue *string
	Bounds       *geometry.Rect
	Corners      []geometry.Point
	ValueType    ValueType
	// Content holds one of the typed payloads in values.go, or nil.
	Content any
}

// Scanner is the barcode detection backend.
type Scanner interface {
	Scan(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}
