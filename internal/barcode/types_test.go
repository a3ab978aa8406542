package barcode

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("qr_code")
	assert.True(t, ok)
	assert.Equal(t, FormatQR, f)

	f, ok = ParseFormat(" Code_93 ")
	assert.True(t, ok)
	assert.Equal(t, FormatCode93, f)

	_, ok = ParseFormat("UNKNOWN")
	assert.False(t, ok)

	_, ok = ParseFormat("QR")
	assert.False(t, ok)
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "QR_CODE", FormatQR.String())
	assert.Equal(t, "PDF417", FormatPDF417.String())
	assert.Equal(t, "UNKNOWN", Format(99).String())
	assert.Equal(t, "URL", ValueURL.String())
	assert.Equal(t, "UNKNOWN", ValueType(-1).String())
	assert.Equal(t, "DRIVER_LICENSE", ValueDriverLicense.String())
}

func TestResolveFormats(t *testing.T) {
	all := []Format{FormatAll}

	assert.Equal(t, all, ResolveFormats(nil))
	assert.Equal(t, all, ResolveFormats([]string{}))
	assert.Equal(t, all, ResolveFormats([]string{"NOPE"}))
	assert.Equal(t, all, ResolveFormats([]string{"all"}))
	assert.Equal(t, all, ResolveFormats([]string{"QR_CODE", "ALL"}))
	assert.Equal(t, []Format{FormatQR, FormatAztec}, ResolveFormats([]string{"AZTEC", "qr_code", "bogus", "QR_CODE"}))
}

// TestResolveFormats_FallbackProperty checks that any list of unknown names behaves like ALL.
func TestResolveFormats_FallbackProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("unknown names resolve to ALL", prop.ForAll(
		func(names []string) bool {
			for i := range names {
				names[i] = "X" + names[i]
			}
			got := ResolveFormats(names)
			return len(got) == 1 && got[0] == FormatAll
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestExpandFormats(t *testing.T) {
	assert.Equal(t, ConcreteFormats, ExpandFormats([]Format{FormatAll}))
	assert.Equal(t, ConcreteFormats, ExpandFormats(nil))
	assert.Equal(t, []Format{FormatQR}, ExpandFormats([]Format{FormatQR, FormatUnknown, FormatQR}))
}

func TestOptionsFingerprint(t *testing.T) {
	a := Options{Formats: []Format{FormatQR, FormatAztec}}
	b := Options{Formats: []Format{FormatAztec, FormatQR}}
	assert.Equal(t, "AZTEC,QR_CODE|false", a.Fingerprint())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := Options{Formats: []Format{FormatQR, FormatAztec}, EnableAllPotentialBarcodes: true}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	assert.Equal(t, "ALL|false", Options{}.Fingerprint())
}
