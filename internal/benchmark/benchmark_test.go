package benchmark

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/bridge"
	"github.com/MeKo-Tech/visionbridge/internal/factory"
	"github.com/MeKo-Tech/visionbridge/internal/plugin"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuiteRun(t *testing.T) {
	suite := NewSuite()
	calls := 0
	suite.Add("success", func(context.Context) error {
		calls++
		time.Sleep(time.Millisecond)
		return nil
	})
	suite.Add("failure", func(context.Context) error {
		return errors.New("test error")
	})
	assert.Equal(t, []string{"success", "failure"}, suite.Names())

	result := suite.Run(context.Background(), "success", 5)
	require.NoError(t, result.Error)
	assert.Equal(t, 5, result.Iterations)
	assert.Equal(t, 5, calls)
	assert.Positive(t, result.Duration)
	assert.Positive(t, result.Average())

	result = suite.Run(context.Background(), "failure", 3)
	require.Error(t, result.Error)
	assert.Equal(t, 0, result.Iterations)
	assert.Contains(t, result.String(), "ERROR - test error")

	result = suite.Run(context.Background(), "missing", 1)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "not found")
}

func TestSuiteRunAll(t *testing.T) {
	suite := NewSuite()
	suite.Add("a", func(context.Context) error { return nil })
	suite.Add("b", func(context.Context) error { return nil })

	results := suite.RunAll(context.Background(), 2)
	require.Len(t, results, 2)
	assert.Equal(t, results, suite.Results())

	var buf bytes.Buffer
	suite.WriteResults(&buf)
	assert.Contains(t, buf.String(), "a: 2 iterations")
	assert.Contains(t, buf.String(), "b: 2 iterations")
}

func TestSuiteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite := NewSuite()
	suite.Add("never", func(context.Context) error { return nil })
	result := suite.Run(ctx, "never", 3)
	assert.ErrorIs(t, result.Error, context.Canceled)
	assert.Equal(t, 0, result.Iterations)
	assert.Zero(t, result.Average())
}

func TestMemoryStats(t *testing.T) {
	s := GetMemoryStats()
	assert.Positive(t, s.SysBytes)
	assert.Contains(t, s.String(), "Alloc:")
}

func TestRecognitionSuite(t *testing.T) {
	path := testutil.WriteTempPNG(t, testutil.GenerateQRCode(t, "bench", 200), "bench.png")
	backends := plugin.Backends{Barcode: factory.GozxingBackend(false)}
	p := preprocess.NewDefault()
	module := bridge.NewModule(bridge.Config{Workers: 1, TempDir: t.TempDir()}, p, backends)
	t.Cleanup(func() { require.NoError(t, module.Close()) })

	suite, cleanup, err := NewRecognitionSuite(Target{
		Path:    path,
		Feature: plugin.BarcodeScanning,
		Options: map[string]any{"frameProcessInterval": 5},
	}, p, module, plugin.NewRegistry(p, backends))
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, []string{"decode", "preprocess", "static/BarcodeScanning", "frame/BarcodeScanning"}, suite.Names())
	for _, r := range suite.RunAll(context.Background(), 2) {
		require.NoError(t, r.Error, r.Name)
		assert.Equal(t, 2, r.Iterations, r.Name)
	}

	t.Run("unsupported feature", func(t *testing.T) {
		_, _, err := NewRecognitionSuite(Target{Path: path, Feature: plugin.ImageLabeling}, p, module, plugin.NewRegistry(p, backends))
		assert.ErrorIs(t, err, plugin.ErrUnsupportedFeature)
	})

	t.Run("missing image", func(t *testing.T) {
		_, _, err := NewRecognitionSuite(Target{Path: "/does/not/exist.png", Feature: plugin.BarcodeScanning}, p, module, plugin.NewRegistry(p, backends))
		assert.Error(t, err)
	})
}
