package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	specsDir     = "../compiler/testdata/blocks"
	scenariosDir = "../harness/testdata/scenarios"
)

// execute runs cmd with args and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeSpecs writes src as the only CUE file of a fresh directory.
func writeSpecs(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocks.cue"), []byte(src), 0o644))
	return dir
}

// writeScenario writes a scenario into dir that references the shared
// block declarations by absolute path.
func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	spec, err := filepath.Abs(filepath.Join(specsDir, "blocks.cue"))
	require.NoError(t, err)

	path := filepath.Join(dir, name+".yaml")
	content := "name: " + name + "\ndescription: \"" + name + "\"\nspecs: [" + spec + "]\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const typingBody = `
value:
  - client_id: a
    name: core/paragraph
    attributes: { content: "Hi" }
flow:
  - do: update_attributes
    client_ids: [a]
    attributes: { content: "Hi!" }
assertions:
  - type: trace_count
    action: forward:change
    count: 1
`
