package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/store"
)

// journaledDB runs the typing scenario against a fresh database file.
func journaledDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "journal.db")
	_, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		"--db", db, filepath.Join(scenariosDir, "typing_persistence.yaml"))
	require.NoError(t, err)
	return db
}

func TestHistoryRequiresDB(t *testing.T) {
	_, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"db" not set`)
}

func TestHistoryMissingDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "absent.db")

	_, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, db, "history never creates a database")
}

func TestHistoryListsEntities(t *testing.T) {
	db := journaledDB(t)

	out, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "post\n", out)
}

func TestHistoryRevisionsJSON(t *testing.T) {
	db := journaledDB(t)

	out, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "post")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Revisions, 3)

	var persistent []bool
	for i, rev := range resp.Data.Revisions {
		assert.Equal(t, int64(i+1), rev.Seq)
		persistent = append(persistent, rev.Persistent)
	}
	assert.Equal(t, []bool{true, false, true}, persistent)
	assert.Equal(t, resp.Data.Revisions[0].ID, resp.Data.Revisions[1].ParentID)
}

func TestHistoryCheckpoints(t *testing.T) {
	db := journaledDB(t)

	out, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "post", "--checkpoints")
	require.NoError(t, err)
	assert.Contains(t, out, "Entity: post")
	assert.Contains(t, out, "change")
	assert.NotContains(t, out, "input")
}

func TestHistoryUnknownEntity(t *testing.T) {
	db := journaledDB(t)

	_, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "page")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryVerify(t *testing.T) {
	db := journaledDB(t)

	out, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "post", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Journal verified")
}

func TestHistoryVerifyDetectsTampering(t *testing.T) {
	db := journaledDB(t)

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		`UPDATE revisions SET blocks_json = '[]' WHERE entity = 'post' AND seq = 2`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "post", "--verify")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string        `json:"status"`
		Data   HistoryResult `json:"data"`
		Error  *CLIError     `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "E_JOURNAL_CORRUPT", resp.Error.Code)
	require.Len(t, resp.Data.Problems, 1)
	assert.Contains(t, resp.Data.Problems[0], "seq 2")
	assert.False(t, resp.Data.Verified)
}
