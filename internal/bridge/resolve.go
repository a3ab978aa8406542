package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/visionbridge/internal/metrics"
	"github.com/MeKo-Tech/visionbridge/internal/utils"
	"github.com/google/uuid"
)

// resolvedImage is a local file to process. Temporary files are removed by
// cleanup.
type resolvedImage struct {
	path      string
	temporary bool
}

func (r resolvedImage) cleanup() {
	if !r.temporary {
		return
	}
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to remove temporary image", "path", r.path, "error", err)
	}
}

// resolve turns a path or URI into a local file. Remote and inline images
// are copied into the temp dir.
func (m *Module) resolve(ctx context.Context, uri string) (resolvedImage, error) {
	if strings.TrimSpace(uri) == "" {
		return resolvedImage{}, fmt.Errorf("%w: empty path", errInvalidURI)
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path; single letter schemes are drive letters
		return resolvedImage{path: uri}, nil
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		if p == "" {
			return resolvedImage{}, fmt.Errorf("%w: file URI without path: %s", errInvalidURI, uri)
		}
		return resolvedImage{path: filepath.FromSlash(p)}, nil
	case "http", "https":
		return m.download(ctx, u)
	case "data":
		return m.writeDataURI(uri)
	default:
		return resolvedImage{}, fmt.Errorf("%w: unsupported scheme %q", errInvalidURI, u.Scheme)
	}
}

func (m *Module) download(ctx context.Context, u *url.URL) (resolvedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return resolvedImage{}, fmt.Errorf("%w: %v", errInvalidURI, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return resolvedImage{}, fmt.Errorf("%w: unable to open %s: %v", errInvalidURI, u.Redacted(), err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("Failed to close download body", "error", cerr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resolvedImage{}, fmt.Errorf("%w: %s", utils.ErrImageNotFound, u.Redacted())
	case resp.StatusCode != http.StatusOK:
		return resolvedImage{}, fmt.Errorf("%w: unable to open %s: status %d", errInvalidURI, u.Redacted(), resp.StatusCode)
	}
	return m.writeTemp(resp.Body)
}

func (m *Module) writeDataURI(uri string) (resolvedImage, error) {
	meta, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return resolvedImage{}, fmt.Errorf("%w: malformed data URI", errInvalidURI)
	}
	var data []byte
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return resolvedImage{}, fmt.Errorf("%w: bad base64 payload: %v", errInvalidURI, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return resolvedImage{}, fmt.Errorf("%w: bad data payload: %v", errInvalidURI, err)
		}
		data = []byte(unescaped)
	}
	return m.writeTemp(bytes.NewReader(data))
}

// writeTemp copies r into a new file in the temp dir, up to the download
// size limit.
func (m *Module) writeTemp(r io.Reader) (resolvedImage, error) {
	path := filepath.Join(m.cfg.TempDir, "visionbridge_"+uuid.NewString()+".tmp")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: generated name
	if err != nil {
		return resolvedImage{}, fmt.Errorf("create temp image: %w", err)
	}
	img := resolvedImage{path: path, temporary: true}

	n, err := io.Copy(f, io.LimitReader(r, m.cfg.MaxDownloadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		img.cleanup()
		return resolvedImage{}, fmt.Errorf("%w: copy failed: %v", errInvalidURI, err)
	}
	if n > m.cfg.MaxDownloadBytes {
		img.cleanup()
		return resolvedImage{}, fmt.Errorf("%w: image exceeds %d bytes", errInvalidURI, m.cfg.MaxDownloadBytes)
	}
	metrics.UploadSizeBytes.Observe(float64(n))
	return img, nil
}
