package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/config"
	"github.com/MeKo-Tech/visionbridge/internal/factory"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/server"
	"github.com/MeKo-Tech/visionbridge/internal/text"
	"github.com/cucumber/godog"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server *httptest.Server
	Module *bridge.Module
}

// fixedRecognizer answers every text request with the same line.
type fixedRecognizer struct{ text string }

func (r fixedRecognizer) Recognize(context.Context, image.Image) (*text.Text, error) {
	return &text.Text{Text: r.text, Blocks: []text.Block{{Text: r.text, Languages: []string{}}}}, nil
}

func (fixedRecognizer) Close() error { return nil }

// RegisterServerSteps registers the HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the recognition server is running$`, testCtx.theRecognitionServerIsRunning)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I submit the image "([^"]*)" to "([^"]*)"$`, testCtx.iSubmitTheImageTo)
	sc.Step(`^I upload the image "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTheImageTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should equal "([^"]*)"$`, testCtx.theResponseJSONFieldShouldEqual)
	sc.Step(`^the response header "([^"]*)" should not be empty$`, testCtx.theResponseHeaderShouldNotBeEmpty)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
}

// theRecognitionServerIsRunning starts the API in process with a fixed text
// recognizer and the gozxing barcode scanner.
func (testCtx *TestContext) theRecognitionServerIsRunning() error {
	cfg := config.DefaultConfig()
	backends := plugin.Backends{
		Text:    func(text.Options) (text.Recognizer, error) { return fixedRecognizer{text: "HELLO WORLD"}, nil },
		Barcode: factory.GozxingBackend(false),
	}
	uploadDir := filepath.Join(testCtx.TempDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o750); err != nil {
		return err
	}

	module := bridge.NewModule(bridge.Config{Workers: 2, TempDir: testCtx.TempDir}, nil, backends)
	srv := server.NewServer(server.Config{
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		TimeoutSec:  cfg.Server.TimeoutSec,
		TempDir:     uploadDir,
		Version:     "integration",
		Defaults:    cfg.DefaultOptions,
	}, module, plugin.NewRegistry(nil, backends))

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server: httptest.NewServer(srv.Router()),
		Module: module,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() error {
	w := testCtx.HTTPTestServer
	testCtx.HTTPTestServer = nil
	w.Server.Close()
	return w.Module.Close()
}

func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", fmt.Errorf("server is not running")
	}
	return testCtx.HTTPTestServer.Server.URL + path, nil
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	resp, err := http.Get(url) //nolint:gosec // G107: test server URL
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", path, err)
	}
	return testCtx.recordResponse(resp)
}

// iSubmitTheImageTo posts {"uri": <fixture path>} as JSON.
func (testCtx *TestContext) iSubmitTheImageTo(name, path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	body, err := json.Marshal(server.ProcessRequest{URI: testCtx.resolvePath(name)})
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body)) //nolint:gosec // G107: test server URL
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", path, err)
	}
	return testCtx.recordResponse(resp)
}

// iUploadTheImageTo posts the fixture as a multipart "image" field.
func (testCtx *TestContext) iUploadTheImageTo(name, path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.resolvePath(name))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := http.Post(url, mw.FormDataContentType(), &buf) //nolint:gosec // G107: test server URL
	if err != nil {
		return fmt.Errorf("upload to %s failed: %w", path, err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldEqual(field, expected string) error {
	var data any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &data); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	return checkJSONField(data, field, expected)
}

func (testCtx *TestContext) theResponseHeaderShouldNotBeEmpty(name string) error {
	if testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)] == "" {
		return fmt.Errorf("response header %s is empty", name)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !bytes.Contains([]byte(testCtx.LastHTTPResponse), []byte(text)) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s (status %s)",
			text, testCtx.LastHTTPResponse, strconv.Itoa(testCtx.LastHTTPStatusCode))
	}
	return nil
}
