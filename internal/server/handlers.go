package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/common"
	"github.com/MeKo-Tech/visionbridge/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// featuresHandler lists the features with a configured backend.
func (s *Server) featuresHandler(w http.ResponseWriter, r *http.Request) {
	features := s.module.Features()
	s.writeJSON(w, http.StatusOK, FeaturesResponse{Features: features, Count: len(features)})
}

// processHandler runs static image recognition. The image comes either as
// a multipart "image" upload or as a JSON body naming a URI.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	feature := mux.Vars(r)["feature"]
	requestID := RequestID(r.Context())
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var (
		req     ProcessRequest
		cleanup = func() {}
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		path, err := s.saveUpload(r, limit)
		if err != nil {
			s.writeUploadError(w, err, requestID)
			return
		}
		cleanup = func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("Failed to remove upload", "path", path, "error", err)
			}
		}
		req.URI = path
		if raw := r.FormValue("options"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Options); err != nil {
				cleanup()
				s.writeErrorResponse(w, http.StatusBadRequest, "", "Invalid options: "+err.Error(), requestID)
				return
			}
		}
	case "application/json", "":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "", "Invalid request body: "+err.Error(), requestID)
			return
		}
	default:
		s.writeErrorResponse(w, http.StatusUnsupportedMediaType, "", "Unsupported content type: "+mediaType, requestID)
		return
	}
	defer cleanup()

	options := common.Merge(s.defaults(feature), req.Options)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	res, err := s.module.ProcessImage(ctx, feature, req.URI, options).Await(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.writeErrorResponse(w, http.StatusGatewayTimeout, "", "Processing timed out", requestID)
			return
		}
		code := bridge.CodeOf(err)
		slog.Info("Process request rejected", "request_id", requestID, "feature", feature, "code", code)
		s.writeErrorResponse(w, statusForCode(code), code, err.Error(), requestID)
		return
	}

	slog.Debug("Process request finished", "request_id", requestID, "feature", feature, "duration", time.Since(start))
	s.writeJSON(w, http.StatusOK, ProcessResponse{
		Success:   true,
		Feature:   feature,
		RequestID: requestID,
		Result:    res,
	})
}

// saveUpload stores the "image" form file in the temp dir and returns its path.
func (s *Server) saveUpload(r *http.Request, limit int64) (string, error) {
	if err := r.ParseMultipartForm(limit); err != nil {
		return "", err
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", fmt.Errorf("no image file provided: %w", err)
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		return "", &http.MaxBytesError{Limit: limit}
	}

	dir := s.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "visionbridge_upload_"+uuid.NewString()+filepath.Ext(header.Filename))
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	n, err := io.Copy(out, file)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	metrics.UploadSizeBytes.Observe(float64(n))
	return path, nil
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error, requestID string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		s.writeErrorResponse(w, http.StatusRequestEntityTooLarge, "", "File too large", requestID)
		return
	}
	s.writeErrorResponse(w, http.StatusBadRequest, "", "Failed to parse form data: "+err.Error(), requestID)
}

// statusForCode maps bridge error codes onto HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case bridge.CodeImageNotFound:
		return http.StatusNotFound
	case bridge.CodeInvalidURI:
		return http.StatusBadRequest
	case bridge.CodeUnsupportedImageFormat:
		return http.StatusUnsupportedMediaType
	case bridge.CodeUnsupportedFeature:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, status int, code, message, requestID string) {
	s.writeJSON(w, status, ErrorResponse{
		Success:   false,
		Code:      code,
		Error:     message,
		RequestID: requestID,
	})
}
