package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/visionbridge/internal/testutil"
	"github.com/cucumber/godog"
)

// RegisterCommonSteps registers fixture and command steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR code image "([^"]*)" encoding "([^"]*)"$`, testCtx.aQRCodeImageEncoding)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)
	sc.Step(`^a config file "([^"]*)" with:$`, testCtx.aConfigFileWith)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON field "([^"]*)" should equal "([^"]*)"$`, testCtx.theJSONFieldShouldEqual)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}

// aQRCodeImageEncoding writes a QR code PNG and registers it as {name}.
func (testCtx *TestContext) aQRCodeImageEncoding(name, payload string) error {
	img, err := testutil.EncodeQRCode(payload, 200)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}
	path := filepath.Join(testCtx.TempDir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	testCtx.Files[name] = path
	return nil
}

func (testCtx *TestContext) aFileContaining(name, content string) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return err
	}
	testCtx.Files[name] = path
	return nil
}

func (testCtx *TestContext) aConfigFileWith(name string, doc *godog.DocString) error {
	return testCtx.aFileContaining(name, doc.Content)
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, value)
	return nil
}

// substituteCommandVariables replaces {name} with the fixture path.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	for name, path := range testCtx.Files {
		command = strings.ReplaceAll(command, "{"+name+"}", path)
	}
	return command
}

// iRunCommand executes a command and stores the result.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)

	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	// Run from the temp dir so no stray config file is picked up.
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), "HOME="+testCtx.TempDir, "XDG_CONFIG_HOME="+testCtx.TempDir)
	cmd.Env = append(cmd.Env, testCtx.EnvVars...)

	// stdout only: logs go to stderr and would break JSON assertions
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	testCtx.LastOutput = string(output)
	testCtx.LastError = err
	if err != nil && stderr.Len() > 0 {
		testCtx.LastError = fmt.Errorf("%w: %s", err, stderr.String())
	}
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	} else {
		testCtx.LastExitCode = 0
	}

	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, testCtx.substituteCommandVariables(expectedText)) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies the output is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.lastJSON()
	return err
}

func (testCtx *TestContext) lastJSON() (any, error) {
	output := strings.TrimSpace(testCtx.LastOutput)
	var data any
	if err := json.Unmarshal([]byte(output), &data); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, output)
	}
	return data, nil
}

// theJSONFieldShouldEqual walks a dotted path where numeric parts index
// arrays, e.g. "result.barcodes.0.rawValue".
func (testCtx *TestContext) theJSONFieldShouldEqual(field, expected string) error {
	data, err := testCtx.lastJSON()
	if err != nil {
		return err
	}
	return checkJSONField(data, field, expected)
}

func checkJSONField(data any, field, expected string) error {
	current := data
	for _, part := range strings.Split(field, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return fmt.Errorf("field '%s' not found in JSON", field)
			}
			current = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(v) {
				return fmt.Errorf("invalid index '%s' in '%s'", part, field)
			}
			current = v[i]
		default:
			return fmt.Errorf("cannot navigate into '%s' of '%s'", part, field)
		}
	}
	if got := fmt.Sprint(current); got != expected {
		return fmt.Errorf("field '%s' is '%s', want '%s'", field, got, expected)
	}
	return nil
}

// theErrorShouldMention verifies stdout or stderr contains errorText.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil && testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}

	fullErrorText := testCtx.LastOutput
	if testCtx.LastError != nil {
		fullErrorText += " " + testCtx.LastError.Error()
	}

	if !strings.Contains(strings.ToLower(fullErrorText), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, fullErrorText)
	}
	return nil
}

func (testCtx *TestContext) resolvePath(name string) string {
	if p, ok := testCtx.Files[name]; ok {
		return p
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.resolvePath(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, expectedContent string) error {
	data, err := os.ReadFile(testCtx.resolvePath(name))
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", name, err)
	}
	if !strings.Contains(string(data), expectedContent) {
		return fmt.Errorf("file %s does not contain '%s'", name, expectedContent)
	}
	return nil
}
