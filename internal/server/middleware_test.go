package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/visionbridge/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/process/TextRecognition", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "86400", resp.Header.Get("Access-Control-Max-Age"))
}

func TestRequestIDMiddleware(t *testing.T) {
	ts := newTestServer(t)

	t.Run("propagates client id", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
		require.NoError(t, err)
		req.Header.Set(RequestIDHeader, "client-123")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, "client-123", resp.Header.Get(RequestIDHeader))
	})

	t.Run("assigns uuid", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Len(t, resp.Header.Get(RequestIDHeader), 36)
	})

	t.Run("context accessor", func(t *testing.T) {
		s := NewServer(Config{}, nil, nil)
		var seen string
		h := s.requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "abc", seen)
	})
}

func TestMetricsMiddleware(t *testing.T) {
	ts := newTestServer(t)
	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/features", "OK")
	before := testutil.ToFloat64(counter)

	resp, err := http.Get(ts.URL + "/features")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.InDelta(t, before+1, testutil.ToFloat64(counter), 1e-9)

	t.Run("metrics endpoint", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "visionbridge_http_requests_total")
	})
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, rw.statusCode)

	_, _, err := rw.Hijack()
	assert.Error(t, err, "recorder cannot be hijacked")
}
