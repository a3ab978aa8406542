package server

import (
	"net/http"

	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OptionsFunc returns the default caller options for a feature. Request
// options are merged on top.
type OptionsFunc func(feature string) map[string]any

// Server holds the HTTP server state and dependencies.
type Server struct {
	module      *bridge.Module
	registry    *plugin.Registry
	defaults    OptionsFunc
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	tempDir     string
	version     string
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// TempDir receives multipart uploads until they are processed.
	TempDir string
	Version string
	// Defaults supplies per feature options; nil means none.
	Defaults OptionsFunc
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type FeaturesResponse struct {
	Features []string `json:"features"`
	Count    int      `json:"count"`
}

// ProcessRequest is the JSON body of POST /process/{feature}.
type ProcessRequest struct {
	URI     string         `json:"uri"`
	Options map[string]any `json:"options,omitempty"`
}

type ProcessResponse struct {
	Success   bool   `json:"success"`
	Feature   string `json:"feature"`
	RequestID string `json:"request_id"`
	Result    any    `json:"result"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewServer creates a server on top of a static image module and a frame
// plugin registry. The server does not own either.
func NewServer(config Config, module *bridge.Module, registry *plugin.Registry) *Server {
	defaults := config.Defaults
	if defaults == nil {
		defaults = func(string) map[string]any { return map[string]any{} }
	}
	maxUpload := config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 50
	}
	timeout := config.TimeoutSec
	if timeout <= 0 {
		timeout = 30
	}
	corsOrigin := config.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &Server{
		module:      module,
		registry:    registry,
		defaults:    defaults,
		corsOrigin:  corsOrigin,
		maxUploadMB: maxUpload,
		timeoutSec:  timeout,
		tempDir:     config.TempDir,
		version:     config.Version,
	}
}

// Router configures the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.corsMiddleware, s.metricsMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/features", s.featuresHandler).Methods(http.MethodGet)
	r.HandleFunc("/process/{feature}", s.processHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/ws/frames", s.framesWebSocketHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}
