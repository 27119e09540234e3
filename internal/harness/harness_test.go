package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/ir"
)

func specPath(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs(blocksSpec)
	require.NoError(t, err)
	return p
}

func paragraphSpec(id, content string) BlockSpec {
	return BlockSpec{ClientID: id, Name: "core/paragraph", Attributes: ir.Object{"content": ir.String(content)}}
}

func TestScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ForwardsPersistentChange(t *testing.T) {
	scenario := &Scenario{
		Name:   "forward",
		Specs:  []string{specPath(t)},
		Entity: "post",
		Value:  []BlockSpec{paragraphSpec("a", "Hi")},
		Flow: []FlowStep{
			{Do: StepUpdateAttributes, ClientIDs: []string{"a"}, Attributes: ir.Object{"content": ir.String("Hi!")}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	labels := make([]string, len(result.Trace))
	for i, e := range result.Trace {
		labels[i] = e.Label()
	}
	assert.Equal(t, []string{
		"dispatch:MARK_NEXT_CHANGE_AS_NOT_PERSISTENT",
		"dispatch:RESET_BLOCKS",
		"dispatch:RESET_SELECTION",
		"step:update_attributes",
		"dispatch:UPDATE_BLOCK_ATTRIBUTES",
		"forward:change",
	}, labels)

	// The owner holds exactly what the store forwarded.
	require.Len(t, result.Value, 1)
	assert.Same(t, result.Blocks[0], result.Value[0])
	assert.Equal(t, ir.String("Hi!"), result.Value[0].Attributes["content"])
}

func TestRun_SequencesAreStrictlyIncreasing(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/merge_split.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	for i := 1; i < len(result.Trace); i++ {
		assert.Greater(t, result.Trace[i].Seq, result.Trace[i-1].Seq, "event %d (%s)", i, result.Trace[i].Label())
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/undo_restores_selection.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Trace, second.Trace); diff != "" {
		t.Errorf("trace differs between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Selection, second.Selection); diff != "" {
		t.Errorf("selection differs between runs (-first +second):\n%s", diff)
	}
}

func TestRun_ExpectClauseMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:   "expect",
		Specs:  []string{specPath(t)},
		Entity: "post",
		Value:  []BlockSpec{paragraphSpec("a", "Hi")},
		Flow: []FlowStep{
			// Same value: nothing changes, so the store reports false.
			{Do: StepUpdateAttributes, ClientIDs: []string{"a"}, Attributes: ir.Object{"content": ir.String("Hi")}, Expect: &ExpectClause{OK: true}},
			{Do: StepUndo, Expect: &ExpectClause{OK: false}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[0] update_attributes: expected ok=true, got ok=false")
}

func TestRun_UnknownNestedOwner(t *testing.T) {
	scenario := &Scenario{
		Name:   "nested",
		Specs:  []string{specPath(t)},
		Entity: "post",
		Value:  []BlockSpec{paragraphSpec("a", "Hi")},
		Flow:   []FlowStep{{Do: StepUndo, ClientID: "missing"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no nested owner attached at "missing"`)
}

func TestRun_MissingSpec(t *testing.T) {
	_, err := Run(&Scenario{Name: "x", Specs: []string{"nowhere.cue"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load specs")
}

func TestRun_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	scenario, err := LoadScenario("testdata/scenarios/typing_persistence.yaml")
	require.NoError(t, err)

	result, err := Run(scenario, WithLogger(logger))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	out := buf.String()
	assert.Contains(t, out, "flow step completed")
	assert.Contains(t, out, "forward blocks")
	assert.Contains(t, out, "entity changed")
}

func TestRun_FreshStatePerRun(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/merge_split.yaml")
	require.NoError(t, err)

	for range 2 {
		result, err := Run(scenario)
		require.NoError(t, err)
		require.True(t, result.Pass, "errors: %v", result.Errors)
		// Generated IDs restart with every run.
		assert.Equal(t, "gen-2", result.Blocks[1].ClientID)
	}
}
