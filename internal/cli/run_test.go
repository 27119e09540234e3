package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPrintsTrace(t *testing.T) {
	out, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), filepath.Join(scenariosDir, "merge_split.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "Scenario: merge_split")
	assert.Contains(t, out, "step:merge")
	assert.Contains(t, out, "  [")
	assert.Contains(t, out, "dispatch:REPLACE_BLOCKS")
	assert.Contains(t, out, "forward:change")
	assert.Contains(t, out, "  gen-2 core/paragraph")
	assert.Contains(t, out, "✓ All checks passed")
}

func TestRunJSON(t *testing.T) {
	out, _, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}), filepath.Join(scenariosDir, "external_change.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, "external_change", resp.Data.Name)
	assert.NotEmpty(t, resp.Data.Trace)
	assert.Empty(t, resp.Data.Blocks)
}

func TestRunVerboseLogsToStderr(t *testing.T) {
	out, errOut, err := execute(t, NewRunCommand(&RootOptions{Format: "text", Verbose: true}), filepath.Join(scenariosDir, "nested_sync.yaml"))
	require.NoError(t, err)

	assert.Contains(t, errOut, "flow step completed")
	assert.NotContains(t, out, "flow step completed")
}

func TestRunFailingChecks(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typing", typingBody+`  - type: trace_count
    action: forward:input
    count: 3
`)

	out, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Checks failed")
}

func TestRunMissingScenario(t *testing.T) {
	_, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
