package blocks

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/testutil"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry(WithIDGenerator(testutil.NewSequentialIDs("")))
	require.NoError(t, r.Register(&BlockType{
		Name: "core/paragraph",
		Attributes: map[string]AttributeSchema{
			"content": {Type: "string", Source: SourceRichText, Role: RoleContent, Default: ir.String("")},
			"dropCap": {Type: "boolean", Default: ir.Bool(false)},
		},
		Merge:    ConcatMerge("content", ""),
		Supports: DefaultSupports(),
	}))
	require.NoError(t, r.Register(&BlockType{
		Name: "core/heading",
		Attributes: map[string]AttributeSchema{
			"content": {Type: "string", Source: SourceRichText, Role: RoleContent, Default: ir.String("")},
			"level":   {Type: "integer", Default: ir.Int(2)},
		},
		Merge: ConcatMerge("content", ""),
		Transforms: Transforms{
			From: []Transform{{Blocks: []string{"core/paragraph"}, Attributes: map[string]string{"content": "content"}}},
			To:   []Transform{{Blocks: []string{"core/paragraph"}, Attributes: map[string]string{"content": "content"}}},
		},
		Supports: DefaultSupports(),
	}))
	require.NoError(t, r.Register(&BlockType{
		Name:       "core/group",
		Attributes: map[string]AttributeSchema{"tagName": {Type: "string", Default: ir.String("div")}},
		Supports:   Supports{Multiple: true, Inserter: true, Lock: true, OnMerge: true},
	}))
	require.NoError(t, r.SetDefaultBlockName("core/paragraph"))
	return r
}
