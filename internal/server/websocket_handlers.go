package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/common"
	"github.com/MeKo-Tech/visionbridge/internal/metrics"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	// wsMaxMessageBytes bounds a single frame message (a 4K RGBA buffer
	// base64 encoded fits).
	wsMaxMessageBytes = 64 << 20
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FrameRequest is a client message on /ws/frames. Type "configure" selects
// the feature and options; type "frame" carries a raw pixel buffer. Binary
// messages are treated as encoded images in portrait orientation.
type FrameRequest struct {
	Type        string         `json:"type"`
	Feature     string         `json:"feature,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
	Width       int            `json:"width,omitempty"`
	Height      int            `json:"height,omitempty"`
	Format      string         `json:"format,omitempty"`
	Orientation string         `json:"orientation,omitempty"`
	Data        []byte         `json:"data,omitempty"`
}

// FrameResponse is a server message on /ws/frames.
type FrameResponse struct {
	Type      string `json:"type"` // "configured", "result", "error"
	Feature   string `json:"feature,omitempty"`
	Frame     int64  `json:"frame,omitempty"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// frameSession is the per connection state: the active plugin and a frame
// counter.
type frameSession struct {
	server    *Server
	conn      WebSocketConnWriter
	requestID string
	plugin    plugin.Plugin
	frames    int64
}

// framesWebSocketHandler streams camera frames through a frame plugin.
func (s *Server) framesWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	metrics.WebsocketConnections.Inc()
	defer metrics.WebsocketConnections.Dec()

	requestID := RequestID(r.Context())
	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr, "request_id", requestID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := &frameSession{server: s, conn: conn, requestID: requestID}
	defer session.close()

	conn.SetReadLimit(wsMaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err, "request_id", requestID)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		metrics.WebsocketMessagesTotal.WithLabelValues("received").Inc()

		switch messageType {
		case websocket.TextMessage:
			session.handleText(ctx, data)
		case websocket.BinaryMessage:
			session.handleEncodedImage(ctx, data)
		}
	}
}

func (fs *frameSession) handleText(ctx context.Context, data []byte) {
	var req FrameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		fs.sendError("invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	switch req.Type {
	case "configure":
		fs.configure(req)
	case "frame":
		fs.handleRawFrame(ctx, req)
	default:
		fs.sendError("invalid_request", "Unsupported request type: "+req.Type)
	}
}

// configure replaces the active plugin. Request options are merged over the
// server defaults for the feature.
func (fs *frameSession) configure(req FrameRequest) {
	options := common.Merge(fs.server.defaults(req.Feature), req.Options)
	p, err := fs.server.registry.Create(req.Feature, options)
	if err != nil {
		if errors.Is(err, plugin.ErrUnsupportedFeature) {
			fs.sendError("unsupported_feature", fmt.Sprintf("Feature %s is not supported", req.Feature))
			return
		}
		fs.sendError("configuration_error", err.Error())
		return
	}
	fs.close()
	fs.plugin = p
	fs.frames = 0
	fs.send(FrameResponse{Type: "configured", Feature: req.Feature, RequestID: fs.requestID})
}

func (fs *frameSession) handleRawFrame(ctx context.Context, req FrameRequest) {
	format, err := preprocess.ParsePixelFormat(req.Format)
	if err != nil {
		fs.sendError("invalid_frame", err.Error())
		return
	}
	orientation, _ := preprocess.ParseOrientation(req.Orientation)
	frame, err := preprocess.NewBufferFrame(req.Data, req.Width, req.Height, format, orientation)
	if err != nil {
		fs.sendError("invalid_frame", err.Error())
		return
	}
	fs.process(ctx, frame)
}

func (fs *frameSession) handleEncodedImage(ctx context.Context, data []byte) {
	img, _, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		fs.sendError("invalid_frame", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}
	fs.process(ctx, preprocess.NewImageFrame(img, preprocess.Portrait))
}

func (fs *frameSession) process(ctx context.Context, frame preprocess.Frame) {
	if fs.plugin == nil {
		fs.sendError("not_configured", "Send a configure message before frames")
		return
	}
	fs.frames++
	fs.send(FrameResponse{
		Type:      "result",
		Feature:   fs.plugin.Feature(),
		Frame:     fs.frames,
		Result:    fs.plugin.Call(ctx, frame),
		RequestID: fs.requestID,
	})
}

func (fs *frameSession) close() {
	if fs.plugin == nil {
		return
	}
	if err := fs.plugin.Close(); err != nil {
		slog.Warn("Failed to close frame plugin", "feature", fs.plugin.Feature(), "error", err)
	}
	fs.plugin = nil
}

// send writes a response message over the WebSocket.
func (fs *frameSession) send(response FrameResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := fs.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	metrics.WebsocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendError sends an error message over the WebSocket.
func (fs *frameSession) sendError(errorType, message string) {
	fs.send(FrameResponse{
		Type:      "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: fs.requestID,
	})
}
