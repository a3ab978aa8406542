package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/factory"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/testutil"
	"github.com/MeKo-Tech/visionbridge/internal/text"
	"github.com/stretchr/testify/require"
)

type helloRecognizer struct{}

func (helloRecognizer) Recognize(context.Context, image.Image) (*text.Text, error) {
	return &text.Text{Text: "HELLO", Blocks: []text.Block{{Text: "HELLO", Languages: []string{}}}}, nil
}

func (helloRecognizer) Close() error { return nil }

type testServer struct {
	*httptest.Server
	uploadDir string
}

// newTestServer wires a server with a fake text backend and the gozxing
// barcode backend.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	backends := plugin.Backends{
		Text:    func(text.Options) (text.Recognizer, error) { return helloRecognizer{}, nil },
		Barcode: factory.GozxingBackend(false),
	}
	uploadDir := t.TempDir()
	module := bridge.NewModule(bridge.Config{Workers: 2, TempDir: t.TempDir()}, nil, backends)
	registry := plugin.NewRegistry(nil, backends)

	s := NewServer(Config{
		CORSOrigin:  "https://app.example",
		MaxUploadMB: 1,
		TimeoutSec:  10,
		TempDir:     uploadDir,
		Version:     "test",
		Defaults: func(feature string) map[string]any {
			if feature == plugin.BarcodeScanning {
				return map[string]any{"formats": []any{"QR_CODE"}}
			}
			return map[string]any{}
		},
	}, module, registry)

	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, module.Close())
	})
	return &testServer{Server: ts, uploadDir: uploadDir}
}

func qrPNG(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.GenerateQRCode(t, payload, 200)))
	return buf.Bytes()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func firstBarcode(t *testing.T, result any) map[string]any {
	t.Helper()
	m, ok := result.(map[string]any)
	require.True(t, ok, "result is %T", result)
	list, ok := m["barcodes"].([]any)
	require.True(t, ok, "barcodes is %T", m["barcodes"])
	require.NotEmpty(t, list)
	first, ok := list[0].(map[string]any)
	require.True(t, ok)
	return first
}
