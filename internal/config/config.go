package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/factory"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/text"
)

// Text backends.
const (
	TextBackendRemote = "remote"
	TextBackendNone   = "none"
)

// Barcode backends.
const (
	BarcodeBackendGozxing = "gozxing"
	BarcodeBackendNone    = "none"
)

const infoLevel = "info"

// Config represents the complete configuration for the visionbridge
// application. It covers every command (image, serve, config) and supports
// loading from configuration files, environment variables and flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Processing holds the default image options applied when a caller
	// does not pass its own.
	Processing ProcessingConfig `mapstructure:"processing" yaml:"processing" json:"processing"`

	Text    TextConfig    `mapstructure:"text" yaml:"text" json:"text"`
	Barcode BarcodeConfig `mapstructure:"barcode" yaml:"barcode" json:"barcode"`
	Plugin  PluginConfig  `mapstructure:"plugin" yaml:"plugin" json:"plugin"`
	Bridge  BridgeConfig  `mapstructure:"bridge" yaml:"bridge" json:"bridge"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ProcessingConfig contains image preprocessing defaults.
type ProcessingConfig struct {
	InvertColors   bool    `mapstructure:"invert_colors" yaml:"invert_colors" json:"invert_colors"`
	Orientation    string  `mapstructure:"orientation" yaml:"orientation" json:"orientation"`
	ScaleFactor    float64 `mapstructure:"scale_factor" yaml:"scale_factor" json:"scale_factor"`
	ResampleFilter string  `mapstructure:"resample_filter" yaml:"resample_filter" json:"resample_filter"`
}

// TextConfig selects and configures the text recognition backend.
type TextConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Language   string `mapstructure:"language" yaml:"language" json:"language"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// BarcodeConfig contains barcode scanning defaults.
type BarcodeConfig struct {
	Backend                    string   `mapstructure:"backend" yaml:"backend" json:"backend"`
	Formats                    []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	TryHarder                  bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	EnableAllPotentialBarcodes bool     `mapstructure:"enable_all_potential_barcodes" yaml:"enable_all_potential_barcodes" json:"enable_all_potential_barcodes"`
}

// PluginConfig contains frame processor settings.
type PluginConfig struct {
	FrameProcessInterval int `mapstructure:"frame_process_interval" yaml:"frame_process_interval" json:"frame_process_interval"`
}

// BridgeConfig controls the static image module.
type BridgeConfig struct {
	Workers            int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	TempDir            string `mapstructure:"temp_dir" yaml:"temp_dir" json:"temp_dir"`
	DownloadTimeoutSec int    `mapstructure:"download_timeout_sec" yaml:"download_timeout_sec" json:"download_timeout_sec"`
	MaxDownloadMB      int    `mapstructure:"max_download_mb" yaml:"max_download_mb" json:"max_download_mb"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: infoLevel,
		Verbose:  false,
		Processing: ProcessingConfig{
			InvertColors:   false,
			Orientation:    string(preprocess.DefaultOrientation),
			ScaleFactor:    preprocess.MaxScaleFactor,
			ResampleFilter: preprocess.DefaultConfig().ResampleFilter,
		},
		Text: TextConfig{
			Backend:    TextBackendRemote,
			Endpoint:   "http://localhost:8080/ocr/image",
			Language:   string(text.DefaultLanguage),
			TimeoutSec: 30,
		},
		Barcode: BarcodeConfig{
			Backend: BarcodeBackendGozxing,
			Formats: []string{barcode.FormatAll.String()},
		},
		Plugin: PluginConfig{
			FrameProcessInterval: 0,
		},
		Bridge: BridgeConfig{
			Workers:            2,
			TempDir:            "",
			DownloadTimeoutSec: 30,
			MaxDownloadMB:      50,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8090,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, ok := preprocess.ParseOrientation(c.Processing.Orientation); !ok {
		return fmt.Errorf("invalid processing orientation: %s", c.Processing.Orientation)
	}
	if c.Processing.ScaleFactor != 0 &&
		(c.Processing.ScaleFactor < preprocess.MinScaleFactor || c.Processing.ScaleFactor > preprocess.MaxScaleFactor) {
		return fmt.Errorf("invalid processing scale factor: %.2f (must be between %.1f and %.1f)",
			c.Processing.ScaleFactor, preprocess.MinScaleFactor, preprocess.MaxScaleFactor)
	}
	if c.Processing.ResampleFilter != "" && !contains(preprocess.FilterNames(), strings.ToLower(c.Processing.ResampleFilter)) {
		return fmt.Errorf("invalid resample filter: %s (must be one of: %s)",
			c.Processing.ResampleFilter, strings.Join(preprocess.FilterNames(), ", "))
	}

	validTextBackends := []string{TextBackendRemote, TextBackendNone}
	if !contains(validTextBackends, c.Text.Backend) {
		return fmt.Errorf("invalid text backend: %s (must be one of: %s)", c.Text.Backend, strings.Join(validTextBackends, ", "))
	}
	if c.Text.Backend == TextBackendRemote && c.Text.Endpoint == "" {
		return fmt.Errorf("text endpoint is required for the %s backend", TextBackendRemote)
	}
	if _, ok := text.ParseLanguage(c.Text.Language); !ok {
		return fmt.Errorf("invalid text language: %s", c.Text.Language)
	}

	validBarcodeBackends := []string{BarcodeBackendGozxing, BarcodeBackendNone}
	if !contains(validBarcodeBackends, c.Barcode.Backend) {
		return fmt.Errorf("invalid barcode backend: %s (must be one of: %s)", c.Barcode.Backend, strings.Join(validBarcodeBackends, ", "))
	}
	for _, name := range c.Barcode.Formats {
		if _, ok := barcode.ParseFormat(name); !ok {
			return fmt.Errorf("invalid barcode format: %s", name)
		}
	}

	if c.Plugin.FrameProcessInterval < 0 {
		return fmt.Errorf("invalid frame process interval: %d (must not be negative)", c.Plugin.FrameProcessInterval)
	}

	if c.Bridge.Workers <= 0 {
		return fmt.Errorf("invalid bridge workers: %d (must be positive)", c.Bridge.Workers)
	}
	if c.Bridge.MaxDownloadMB <= 0 {
		return fmt.Errorf("invalid max download size: %d (must be positive)", c.Bridge.MaxDownloadMB)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	return nil
}

// PreprocessConfig returns the shared preprocessor settings.
func (c *Config) PreprocessConfig() preprocess.Config {
	return preprocess.Config{ResampleFilter: c.Processing.ResampleFilter}
}

// BridgeModuleConfig converts the bridge section to the module configuration.
func (c *Config) BridgeModuleConfig() bridge.Config {
	cfg := bridge.DefaultConfig()
	if c.Bridge.Workers > 0 {
		cfg.Workers = c.Bridge.Workers
	}
	if c.Bridge.TempDir != "" {
		cfg.TempDir = c.Bridge.TempDir
	} else {
		cfg.TempDir = os.TempDir()
	}
	if c.Bridge.DownloadTimeoutSec > 0 {
		cfg.DownloadTimeout = time.Duration(c.Bridge.DownloadTimeoutSec) * time.Second
	}
	if c.Bridge.MaxDownloadMB > 0 {
		cfg.MaxDownloadBytes = int64(c.Bridge.MaxDownloadMB) << 20
	}
	return cfg
}

// RemoteTextConfig returns the HTTP OCR backend settings.
func (c *Config) RemoteTextConfig() text.RemoteConfig {
	lang, _ := text.ParseLanguage(c.Text.Language)
	return text.RemoteConfig{
		Endpoint: c.Text.Endpoint,
		Timeout:  time.Duration(c.Text.TimeoutSec) * time.Second,
		Language: lang,
	}
}

// Backends builds the recognizer constructors selected by the config.
// Labeling and object detection have no built-in backend.
func (c *Config) Backends() plugin.Backends {
	var b plugin.Backends
	if c.Text.Backend == TextBackendRemote {
		b.Text = factory.RemoteTextBackend(c.RemoteTextConfig())
	}
	if c.Barcode.Backend == BarcodeBackendGozxing {
		b.Barcode = factory.GozxingBackend(c.Barcode.TryHarder)
	}
	return b
}

// DefaultOptions returns the caller options map for feature built from the
// processing and feature sections. Explicit caller options are merged on top.
func (c *Config) DefaultOptions(feature string) map[string]any {
	opts := map[string]any{
		"invertColors": c.Processing.InvertColors,
		"orientation":  c.Processing.Orientation,
	}
	if c.Processing.ScaleFactor != 0 {
		opts["scaleFactor"] = c.Processing.ScaleFactor
	}
	switch feature {
	case plugin.TextRecognition:
		opts["language"] = c.Text.Language
	case plugin.BarcodeScanning:
		formats := make([]any, len(c.Barcode.Formats))
		for i, f := range c.Barcode.Formats {
			formats[i] = f
		}
		opts["formats"] = formats
		opts["enableAllPotentialBarcodes"] = c.Barcode.EnableAllPotentialBarcodes
	}
	if c.Plugin.FrameProcessInterval > 0 {
		opts["frameProcessInterval"] = c.Plugin.FrameProcessInterval
	}
	return opts
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
