// Package metrics holds the Prometheus collectors shared by the server,
// the frame plugins and the options caches.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionbridge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionbridge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Recognition metrics
	RecognitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionbridge_recognitions_total",
			Help: "Total number of recognition calls",
		},
		[]string{"feature", "source", "status"}, // source: frame, file
	)

	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionbridge_processing_duration_seconds",
			Help:    "Preprocessing plus recognition duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"feature", "source"},
	)

	FramesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionbridge_frames_skipped_total",
			Help: "Frames dropped by the frame process interval",
		},
		[]string{"feature"},
	)

	// Options cache metrics
	CacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionbridge_options_cache_events_total",
			Help: "Options cache lookups by outcome",
		},
		[]string{"cache", "event"}, // event: hit, miss, rebuild, error
	)

	// File upload metrics
	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "visionbridge_upload_size_bytes",
			Help:    "Size of uploaded or downloaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// Bridge worker metrics
	BridgeQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionbridge_bridge_pending_jobs",
			Help: "Static image jobs waiting for or holding a worker",
		},
	)

	// WebSocket metrics
	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionbridge_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	WebsocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionbridge_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
