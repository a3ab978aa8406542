package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the config search away from the developer's files.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Chdir(t.TempDir())
}

// resetFlags restores every flag of c and its children to its default, since
// cobra commands are package globals shared between tests.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	isolate(t)
	resetFlags(rootCmd)
	cfgFile = ""
	globalConfig = nil
	t.Cleanup(func() { resetFlags(rootCmd) })

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return strings.TrimSpace(buf.String()), err
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "visionbridge", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "text recognition, barcode scanning")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	output, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "visionbridge version "), output)
	assert.Contains(t, output, "commit:")
}

func TestRootCommandNoArgs(t *testing.T) {
	output, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"image", "serve", "config", "features", "benchmark"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	output, err := executeCommand(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, output, "unknown flag")
}

func TestRootCommandConfiguration(t *testing.T) {
	assert.True(t, rootCmd.HasSubCommands())
	for _, name := range []string{"config", "verbose", "log-level", "version"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCommandInvalidConfig(t *testing.T) {
	output, err := executeCommand(t, "--config", "/does/not/exist.yaml", "features")
	require.Error(t, err)
	assert.Contains(t, output, "error loading configuration")
}

func TestResolveFeature(t *testing.T) {
	tests := map[string]string{
		"text":            "TextRecognition",
		"OCR":             "TextRecognition",
		"barcode":         "BarcodeScanning",
		"label":           "ImageLabeling",
		"objects":         "ObjectDetection",
		"BarcodeScanning": "BarcodeScanning",
		"FaceDetection":   "FaceDetection",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, resolveFeature(in))
		})
	}
}
