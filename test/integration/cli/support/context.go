package support

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	EnvVars    []string

	// Named fixtures, substituted as {name} in commands
	Files map[string]string

	// In-process server
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a new test context rooted at the module directory.
func NewTestContext() (*TestContext, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// Look for go.mod to identify project root
	currentDir := workingDir
	for {
		if _, err := os.Stat(filepath.Join(currentDir, "go.mod")); err == nil {
			workingDir = currentDir
			break
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	tempDir, err := os.MkdirTemp("", "visionbridge-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		WorkingDir: workingDir,
		TempDir:    tempDir,
		EnvVars:    []string{},
		Files:      map[string]string{"temp": tempDir},
	}, nil
}

// Cleanup stops the server and removes the scenario's temp directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if testCtx.HTTPTestServer != nil {
		if err := testCtx.stopTestHTTPServer(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
		}
	}

	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// GetTempFile returns a path to a temporary file.
func (testCtx *TestContext) GetTempFile(suffix string) string {
	return filepath.Join(testCtx.TempDir, fmt.Sprintf("test-%d%s", time.Now().UnixNano(), suffix))
}
