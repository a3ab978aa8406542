package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/server"
	"github.com/MeKo-Tech/visionbridge/internal/version"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the recognition API",
	Long: `Start an HTTP server that exposes static image processing and a live
frame stream.

The server provides the following endpoints:
  POST /process/{feature} - Process an image given by URI or multipart upload
  GET  /ws/frames         - WebSocket stream of camera frames
  GET  /features          - List supported features
  GET  /health            - Health check endpoint
  GET  /metrics           - Prometheus metrics

Examples:
  visionbridge serve
  visionbridge serve --port 8090
  visionbridge serve --host 0.0.0.0 --port 3000 --text-endpoint http://ocr:8080/ocr/image`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}

		maxUploadSize := cfg.Server.MaxUploadMB
		if cmd.Flags().Changed("max-upload-size") {
			maxUploadSize, _ = cmd.Flags().GetInt("max-upload-size")
		}

		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		if cmd.Flags().Changed("workers") {
			cfg.Bridge.Workers, _ = cmd.Flags().GetInt("workers")
		}
		if cmd.Flags().Changed("text-endpoint") {
			cfg.Text.Endpoint, _ = cmd.Flags().GetString("text-endpoint")
		}
		if cmd.Flags().Changed("text-backend") {
			cfg.Text.Backend, _ = cmd.Flags().GetString("text-backend")
		}

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p, err := preprocess.New(cfg.PreprocessConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize preprocessor: %w", err)
		}
		backends := cfg.Backends()
		module := bridge.NewModule(cfg.BridgeModuleConfig(), p, backends)
		registry := plugin.NewRegistry(p, backends)

		srv := server.NewServer(server.Config{
			Host:        host,
			Port:        port,
			CORSOrigin:  corsOrigin,
			MaxUploadMB: int64(maxUploadSize),
			TimeoutSec:  timeout,
			TempDir:     cfg.BridgeModuleConfig().TempDir,
			Version:     version.String(),
			Defaults:    cfg.DefaultOptions,
		}, module, registry)

		// WriteTimeout stays unset: /ws/frames connections are long lived
		// and request deadlines come from the per request context.
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			slog.Info("Starting recognition server", "host", host, "port", port,
				"features", registry.Features(), "workers", cfg.Bridge.Workers)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}

		if err := module.Close(); err != nil {
			slog.Error("Module cleanup error", "error", err)
		}

		slog.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8090, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Int("workers", 2, "number of static image workers")
	serveCmd.Flags().String("text-backend", "remote", "text recognition backend: remote or none")
	serveCmd.Flags().String("text-endpoint", "", "remote OCR endpoint for text recognition")
}
