package text

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MeKo-Tech/visionbridge/internal/geometry"
	"github.com/google/uuid"
)

// RemoteConfig configures the HTTP OCR backend.
type RemoteConfig struct {
	// Endpoint is the full URL of an OCR service accepting multipart
	// uploads, e.g. http://localhost:8080/ocr/image.
	Endpoint string
	Timeout  time.Duration
	Language Language
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// RemoteRecognizer sends images to an OCR service that answers with
// detected regions and maps them onto the block/line/element/symbol tree.
type RemoteRecognizer struct {
	endpoint string
	language Language
	client   *http.Client
}

// remoteRegion mirrors one detected region of the OCR service response.
type remoteRegion struct {
	Polygon         []struct{ X, Y float64 } `json:"polygon"`
	Box             struct{ X, Y, W, H int } `json:"box"`
	DetConfidence   float64                  `json:"det_confidence"`
	Text            string                   `json:"text"`
	RecConfidence   float64                  `json:"rec_confidence"`
	CharConfidences []float64                `json:"char_confidences,omitempty"`
	Rotated         bool                     `json:"rotated"`
	Language        string                   `json:"language,omitempty"`
}

type remoteResponse struct {
	OCR *struct {
		Width   int            `json:"width"`
		Height  int            `json:"height"`
		Regions []remoteRegion `json:"regions"`
	} `json:"ocr"`
	Error string `json:"error,omitempty"`
}

// NewRemoteRecognizer validates cfg and returns the backend.
func NewRemoteRecognizer(cfg RemoteConfig) (*RemoteRecognizer, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("text: invalid OCR endpoint %q", cfg.Endpoint)
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	return &RemoteRecognizer{endpoint: cfg.Endpoint, language: lang, client: client}, nil
}

// Language returns the language the recognizer was built for.
func (r *RemoteRecognizer) Language() Language { return r.language }

// Recognize uploads img as PNG and converts the response.
func (r *RemoteRecognizer) Recognize(ctx context.Context, img image.Image) (*Text, error) {
	if img == nil {
		return nil, errors.New("text: input image is nil")
	}
	body, contentType, err := r.encodeRequest(img)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("text: build request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("text: OCR request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("Failed to close OCR response body", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("text: read OCR response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("text: OCR service returned %d: %s", resp.StatusCode, errorMessage(resp.StatusCode, raw))
	}
	var decoded remoteResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("text: decode OCR response: %w", err)
	}
	if decoded.OCR == nil {
		return nil, errors.New("text: OCR response has no result")
	}

	slog.Debug("Remote OCR finished", "request_id", requestID, "regions", len(decoded.OCR.Regions))
	return regionsToText(decoded.OCR.Regions), nil
}

// errorMessage prefers the service's JSON error field and falls back to
// a trimmed snippet of the body, then to the status text.
func errorMessage(status int, raw []byte) string {
	var decoded remoteResponse
	if json.Unmarshal(raw, &decoded) == nil && decoded.Error != "" {
		return decoded.Error
	}
	snippet := strings.TrimSpace(string(raw))
	if snippet == "" {
		return http.StatusText(status)
	}
	if r := []rune(snippet); len(r) > 200 {
		snippet = string(r[:200]) + "..."
	}
	return snippet
}

// Close is a no-op; idle connections belong to the shared client.
func (r *RemoteRecognizer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *RemoteRecognizer) encodeRequest(img image.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "frame.png")
	if err != nil {
		return nil, "", fmt.Errorf("text: create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, "", fmt.Errorf("text: encode image: %w", err)
	}
	if err := mw.WriteField("language", r.language.Tag()); err != nil {
		return nil, "", fmt.Errorf("text: write language field: %w", err)
	}
	if err := mw.WriteField("format", "json"); err != nil {
		return nil, "", fmt.Errorf("text: write format field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("text: close multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// regionsToText turns each region into a single-line block. Words and
// characters get boxes split proportionally along the line box.
func regionsToText(regions []remoteRegion) *Text {
	out := &Text{Blocks: make([]Block, 0, len(regions))}
	texts := make([]string, 0, len(regions))
	for _, reg := range regions {
		content := strings.TrimSpace(reg.Text)
		if content == "" {
			continue
		}
		// char_confidences index runes of the untrimmed region text
		lead := utf8.RuneCountInString(reg.Text[:strings.Index(reg.Text, content)])
		var langs []string
		if reg.Language != "" {
			langs = []string{reg.Language}
		} else {
			langs = []string{}
		}

		rect := geometry.NewRect(float64(reg.Box.X), float64(reg.Box.Y),
			float64(reg.Box.X+reg.Box.W), float64(reg.Box.Y+reg.Box.H))
		corners := make([]geometry.Point, 0, len(reg.Polygon))
		for _, p := range reg.Polygon {
			corners = append(corners, geometry.Point{X: p.X, Y: p.Y})
		}
		angle := 0.0
		if reg.Rotated {
			angle = 180
		}

		line := Line{
			Text:       content,
			Bounds:     &rect,
			Corners:    corners,
			Languages:  langs,
			Confidence: ptr(reg.RecConfidence),
			Angle:      ptr(angle),
			Elements:   splitElements(content, lead, rect, reg, langs, angle),
		}
		out.Blocks = append(out.Blocks, Block{
			Text:      content,
			Bounds:    &rect,
			Corners:   corners,
			Languages: langs,
			Lines:     []Line{line},
		})
		texts = append(texts, content)
	}
	out.Text = strings.Join(texts, "\n")
	return out
}

func splitElements(line string, lead int, rect geometry.Rect, reg remoteRegion, langs []string, angle float64) []Element {
	total := utf8.RuneCountInString(line)
	if total == 0 {
		return []Element{}
	}
	charW := rect.Width() / float64(total)
	confAt := func(i int) *float64 {
		i += lead
		if i >= 0 && i < len(reg.CharConfidences) {
			return ptr(reg.CharConfidences[i])
		}
		return ptr(reg.RecConfidence)
	}

	var (
		elements []Element
		runeIdx  int
	)
	for _, word := range strings.Split(line, " ") {
		n := utf8.RuneCountInString(word)
		if n == 0 {
			runeIdx++
			continue
		}
		start := runeIdx
		wordRect := geometry.Rect{
			Left:   rect.Left + float64(start)*charW,
			Top:    rect.Top,
			Right:  rect.Left + float64(start+n)*charW,
			Bottom: rect.Bottom,
		}
		symbols := make([]Symbol, 0, n)
		sum := 0.0
		i := 0
		for _, ch := range word {
			symRect := geometry.Rect{
				Left:   rect.Left + float64(start+i)*charW,
				Top:    rect.Top,
				Right:  rect.Left + float64(start+i+1)*charW,
				Bottom: rect.Bottom,
			}
			c := confAt(start + i)
			sum += *c
			symbols = append(symbols, Symbol{
				Text:       string(ch),
				Bounds:     &symRect,
				Languages:  langs,
				Confidence: c,
				Angle:      ptr(angle),
			})
			i++
		}
		elements = append(elements, Element{
			Text:       word,
			Bounds:     &wordRect,
			Languages:  langs,
			Confidence: ptr(sum / float64(n)),
			Angle:      ptr(angle),
			Symbols:    symbols,
		})
		runeIdx += n + 1
	}
	if elements == nil {
		return []Element{}
	}
	return elements
}
