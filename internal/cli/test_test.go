package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: simple_launch
description: "Launch then accelerate"
deliveries:
  - channel: c1
    seq: 2
    type: RocketSpeedIncreased
    message: { by: 100 }
    expect: { outcome: buffered, pending: 1 }
  - channel: c1
    seq: 1
    type: RocketLaunched
    message: { type: Falcon-9, launchSpeed: 500, mission: ARTEMIS }
    expect: { outcome: applied, applied: [1, 2], cursor: 2 }
assertions:
  - type: final_state
    channel: c1
    expect: { speed: 600 }
`

const failingScenario = `
name: wrong_speed
description: "Asserts a speed the deliveries never reach"
deliveries:
  - channel: c1
    seq: 1
    type: RocketLaunched
    message: { type: Falcon-9, launchSpeed: 500, mission: ARTEMIS }
assertions:
  - type: final_state
    channel: c1
    expect: { speed: 1 }
`

// scenarioDir writes the named scenarios into a temp directory.
func scenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range scenarios {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func executeTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	output, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	output, err := executeTest(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"simple_launch.yaml": passingScenario})

	output, err := executeTest(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ simple_launch")
	assert.Contains(t, output, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"simple_launch.yaml": passingScenario,
		"wrong_speed.yaml":   failingScenario,
	})

	output, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ wrong_speed")
	assert.Contains(t, output, "Assertion failed: final_state")
	assert.Contains(t, output, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"wrong_speed.yaml": failingScenario})

	output, err := executeTest(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "wrong_speed", resp.Data.Scenarios[0].Name)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"simple_launch.yaml": passingScenario,
		"wrong_speed.yaml":   failingScenario,
	})

	output, err := executeTest(t, "text", dir, "--filter", "simple_*")
	require.NoError(t, err)
	assert.Contains(t, output, "1 total")
	assert.NotContains(t, output, "wrong_speed")
}

func TestTestCommandSingleFile(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"simple_launch.yaml": passingScenario,
		"wrong_speed.yaml":   failingScenario,
	})

	output, err := executeTest(t, "text", filepath.Join(dir, "simple_launch.yaml"))
	require.NoError(t, err)
	assert.Contains(t, output, "1 passed, 0 failed, 1 total")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: [unclosed\n"})

	output, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, output, "✗ broken.yaml")
	assert.Contains(t, output, "failed to load scenario")
}

func TestTestCommandGoldenUpdateThenMatch(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"simple_launch.yaml": passingScenario})
	golden := filepath.Join(dir, "golden", "simple_launch.golden")

	output, err := executeTest(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ simple_launch (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"simple_launch"`)
	assert.Contains(t, string(data), `"speed":600`)

	_, err = executeTest(t, "text", dir)
	require.NoError(t, err, "rerun matches the freshly written golden file")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"simple_launch.yaml": passingScenario})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "simple_launch.golden"), []byte(`{}`), 0644))

	output, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, output, "trace does not match golden file")
}

func TestTestHelpText(t *testing.T) {
	output, err := executeTest(t, "text", "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "--update")
	assert.Contains(t, output, "--filter")
	assert.Contains(t, output, "Exit codes:")
}

func TestGoldenFilePath(t *testing.T) {
	tests := []struct {
		scenario string
		want     string
	}{
		{"scenarios/out_of_order.yaml", filepath.Join("scenarios", "golden", "out_of_order.golden")},
		{"gaps.yml", filepath.Join("golden", "gaps.golden")},
		{"/abs/dir/x.yaml", filepath.Join("/abs/dir", "golden", "x.golden")},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			assert.Equal(t, tt.want, goldenFilePath(tt.scenario))
		})
	}
}
