package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.Same(t, viper.GetViper(), loader.GetViper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadWithValidYAMLFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
log_level: debug
verbose: true
processing:
  invert_colors: true
  orientation: landscape-right
  scale_factor: 0.95
text:
  language: KOREAN
  endpoint: http://ocr.internal:9000/ocr/image
barcode:
  formats: [QR_CODE, EAN_13]
  try_harder: true
plugin:
  frame_process_interval: 4
bridge:
  workers: 8
server:
  port: 9090
`)

	loader := newTestLoader()
	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.Processing.InvertColors)
	assert.Equal(t, "landscape-right", cfg.Processing.Orientation)
	assert.InDelta(t, 0.95, cfg.Processing.ScaleFactor, 1e-9)
	assert.Equal(t, "KOREAN", cfg.Text.Language)
	assert.Equal(t, "http://ocr.internal:9000/ocr/image", cfg.Text.Endpoint)
	assert.Equal(t, []string{"QR_CODE", "EAN_13"}, cfg.Barcode.Formats)
	assert.True(t, cfg.Barcode.TryHarder)
	assert.Equal(t, 4, cfg.Plugin.FrameProcessInterval)
	assert.Equal(t, 8, cfg.Bridge.Workers)
	assert.Equal(t, 9090, cfg.Server.Port)

	// untouched keys keep their defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, TextBackendRemote, cfg.Text.Backend)
	assert.Equal(t, path, loader.GetConfigFileUsed())
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "log_level: warn\n")
	t.Chdir(dir)

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "log_level: [debug\n")
		_, err := newTestLoader().LoadWithFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := newTestLoader().LoadWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("validation failure", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "server:\n  port: 0\n")
		_, err := newTestLoader().LoadWithFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
	})
}

func TestLoadWithoutValidation(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "log_level: chatty\n")

	cfg, err := newTestLoader().LoadWithFileWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "chatty", cfg.LogLevel)
}

func TestEnvironmentVariableOverride(t *testing.T) {
	t.Setenv("VISIONBRIDGE_SERVER_PORT", "7070")
	t.Setenv("VISIONBRIDGE_TEXT_LANGUAGE", "CHINESE")
	t.Setenv("VISIONBRIDGE_PLUGIN_FRAME_PROCESS_INTERVAL", "2")

	path := writeConfig(t, t.TempDir(), "server:\n  port: 9090\n")
	cfg, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "CHINESE", cfg.Text.Language)
	assert.Equal(t, 2, cfg.Plugin.FrameProcessInterval)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()

	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", ConfigFileName))
	assert.Equal(t, "/etc/visionbridge", paths[len(paths)-1])
}

func TestPrintConfigInfo(t *testing.T) {
	var sb strings.Builder
	newTestLoader().PrintConfigInfo(&sb)
	assert.Contains(t, sb.String(), "Environment prefix: VISIONBRIDGE")
}
