package editor

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/testutil"
)

func newTestRegistry(t *testing.T) *blocks.Registry {
	t.Helper()

	r := blocks.NewRegistry(blocks.WithIDGenerator(testutil.NewSequentialIDs("")))
	text := func(extra map[string]blocks.AttributeSchema) map[string]blocks.AttributeSchema {
		attrs := map[string]blocks.AttributeSchema{
			"content": {Type: "string", Source: blocks.SourceRichText, Role: blocks.RoleContent, Default: ir.String("")},
		}
		for k, v := range extra {
			attrs[k] = v
		}
		return attrs
	}

	types := []*blocks.BlockType{
		{
			Name:       "core/paragraph",
			Attributes: text(map[string]blocks.AttributeSchema{"dropCap": {Type: "boolean", Default: ir.Bool(false)}}),
			Merge:      blocks.ConcatMerge("content", ""),
			Supports:   blocks.DefaultSupports(),
		},
		{
			Name:       "core/heading",
			Attributes: text(map[string]blocks.AttributeSchema{"level": {Type: "integer", Default: ir.Int(2)}}),
			Merge:      blocks.ConcatMerge("content", ""),
			Transforms: blocks.Transforms{
				From: []blocks.Transform{{Blocks: []string{"core/paragraph"}, Attributes: map[string]string{"content": "content"}}},
				To:   []blocks.Transform{{Blocks: []string{"core/paragraph"}, Attributes: map[string]string{"content": "content"}}},
			},
			Supports: blocks.DefaultSupports(),
		},
		{
			Name:       "core/group",
			Attributes: map[string]blocks.AttributeSchema{"tagName": {Type: "string", Default: ir.String("div")}},
			Transforms: blocks.Transforms{
				From: []blocks.Transform{{Blocks: []string{blocks.AnyBlock}, Fixed: ir.Object{"tagName": ir.String("div")}}},
			},
			Supports: blocks.Supports{Multiple: true, Inserter: true, Lock: true, OnMerge: true},
		},
		{
			Name:          "core/columns",
			AllowedBlocks: []string{"core/column"},
			Supports:      blocks.DefaultSupports(),
		},
		{
			Name:     "core/column",
			Parent:   []string{"core/columns"},
			Supports: blocks.DefaultSupports(),
		},
		{
			Name:     "core/footnote",
			Ancestor: []string{"core/group"},
			Supports: blocks.DefaultSupports(),
		},
		{
			Name:     "core/more",
			Supports: blocks.Supports{Inserter: true},
		},
		{
			Name:       "core/preformatted",
			Attributes: text(nil),
			Supports:   blocks.DefaultSupports(),
		},
	}
	for _, bt := range types {
		require.NoError(t, r.Register(bt))
	}
	require.NoError(t, r.SetDefaultBlockName("core/paragraph"))
	return r
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()

	base := []StoreOption{WithLogger(discardLogger()), WithInvariantChecks(true)}
	s := New(newTestRegistry(t), append(base, opts...)...)
	t.Cleanup(func() {
		require.NoError(t, s.CheckInvariants())
	})
	return s
}

func para(clientID, content string) *ir.Block {
	return &ir.Block{
		ClientID:    clientID,
		Name:        "core/paragraph",
		IsValid:     true,
		Attributes:  ir.Object{"content": ir.String(content), "dropCap": ir.Bool(false)},
		InnerBlocks: []*ir.Block{},
	}
}

func group(clientID string, inner ...*ir.Block) *ir.Block {
	if inner == nil {
		inner = []*ir.Block{}
	}
	return &ir.Block{
		ClientID:    clientID,
		Name:        "core/group",
		IsValid:     true,
		Attributes:  ir.Object{"tagName": ir.String("div")},
		InnerBlocks: inner,
	}
}

// counter counts store notifications.
type counter struct{ n int }

func watch(s *Store) *counter {
	c := &counter{}
	s.Subscribe(func() { c.n++ })
	return c
}
