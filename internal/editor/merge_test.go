package editor

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/ir"
)

func heading(clientID, content string) *ir.Block {
	return &ir.Block{
		ClientID:    clientID,
		Name:        "core/heading",
		IsValid:     true,
		Attributes:  ir.Object{"content": ir.String(content), "level": ir.Int(2)},
		InnerBlocks: []*ir.Block{},
	}
}

func TestStore_MergeBlocks_JoinsParagraphs(t *testing.T) {
	r := newTestRegistry(t)
	bt, _ := r.BlockType("core/paragraph")
	spaced := *bt
	spaced.Merge = blocks.ConcatMerge("content", " ")
	require.True(t, r.Unregister("core/paragraph"))
	require.NoError(t, r.Register(&spaced))
	require.NoError(t, r.SetDefaultBlockName("core/paragraph"))

	s := New(r, WithLogger(discardLogger()), WithInvariantChecks(true))
	s.ResetBlocks([]*ir.Block{para("first", "chicken"), para("second", "ribs")})
	s.SelectionChange("second", "content", 0, 0)

	require.True(t, s.MergeBlocks("first", "second"))

	require.Equal(t, []string{"first"}, s.BlockOrder(""))
	assert.Equal(t, ir.String("chicken ribs"), s.BlockAttributes("first")["content"])
	assert.Nil(t, s.Block("second"))
	assert.Equal(t, ir.SelectionPoint{ClientID: "first", AttributeKey: "content", Offset: ir.Offset(8)}, s.SelectionStart())
	assert.True(t, s.IsLastBlockChangePersistent())
	require.NoError(t, s.CheckInvariants())
}

func TestStore_MergeBlocks_NotifiesOnce(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "one"), para("b", "two")})
	s.SelectionChange("b", "content", 0, 0)
	c := watch(s)

	require.True(t, s.MergeBlocks("a", "b"))
	assert.Equal(t, 1, c.n)
}

func TestStore_MergeBlocks_CaretInTarget(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "one"), para("b", "two")})
	s.SelectionChange("a", "content", 3, 3)

	require.True(t, s.MergeBlocks("a", "b"))
	assert.Equal(t, ir.String("onetwo"), s.BlockAttributes("a")["content"])
	assert.Equal(t, ir.Offset(3), s.SelectionStart().Offset)
}

func TestStore_MergeBlocks_TransformsSecondBlock(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "Hello"), heading("h", " world")})
	s.SelectionChange("h", "content", 2, 2)

	require.True(t, s.MergeBlocks("a", "h"))

	assert.Equal(t, []string{"a"}, s.BlockOrder(""))
	assert.Equal(t, "core/paragraph", s.BlockName("a"))
	assert.Equal(t, ir.String("Hello world"), s.BlockAttributes("a")["content"])
	assert.Equal(t, ir.Offset(7), s.SelectionStart().Offset)
}

func TestStore_MergeBlocks_NoTransformIsNoop(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "Hello"), group("g", para("g1", "x"))})
	c := watch(s)

	assert.False(t, s.MergeBlocks("a", "g"))
	assert.Equal(t, []string{"a", "g"}, s.BlockOrder(""))
	assert.Equal(t, 0, c.n)
}

func TestStore_MergeBlocks_RemovesUnmodifiedDefaultBlock(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("empty", ""), para("b", "text")})
	s.SelectBlock("empty", ir.CaretStart)

	require.True(t, s.MergeBlocks("empty", "b"))
	assert.Equal(t, []string{"b"}, s.BlockOrder(""))

	s.ResetBlocks([]*ir.Block{para("a", "text"), para("empty", "")})
	require.True(t, s.MergeBlocks("a", "empty"))
	assert.Equal(t, []string{"a"}, s.BlockOrder(""))
	assert.Equal(t, ir.String("text"), s.BlockAttributes("a")["content"])
}

func TestStore_MergeBlocks_WithoutMergeFunctionSelects(t *testing.T) {
	s := newTestStore(t)
	pre := &ir.Block{ClientID: "pre", Name: "core/preformatted", IsValid: true, Attributes: ir.Object{"content": ir.String("code")}, InnerBlocks: []*ir.Block{}}
	s.ResetBlocks([]*ir.Block{pre, para("b", "text")})

	require.True(t, s.MergeBlocks("pre", "b"))
	assert.Equal(t, []string{"pre", "b"}, s.BlockOrder(""))
	assert.Equal(t, "pre", s.SelectedBlockClientID())
}

func TestStore_MergeBlocks_UndefinedSelectionAttributeIsLogged(t *testing.T) {
	var buf bytes.Buffer
	s := New(newTestRegistry(t), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))), WithInvariantChecks(true))
	s.ResetBlocks([]*ir.Block{para("a", "one"), para("b", "two")})
	s.SelectionChange("b", "caption", 1, 1)

	require.True(t, s.MergeBlocks("a", "b"))

	assert.Equal(t, ir.String("onetwo"), s.BlockAttributes("a")["content"])
	assert.Contains(t, buf.String(), "selection attribute is not defined by the block type")
	assert.Contains(t, buf.String(), "attribute_key=caption")
}

func TestStore_MergeBlocks_InnerBlocks(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{
		group("g1", para("p1", "one")),
		group("g2", para("p2", "two")),
		group("g3", para("p3", "three")),
	})
	for _, id := range []string{"g1", "g2", "g3"} {
		require.True(t, s.RegisterInnerBlocks(id, TemplateLockNone))
	}

	require.True(t, s.MergeBlocks("g1", "g2"))

	// g2's child was copied in; the identical g3 that followed was folded
	// in as well.
	assert.Equal(t, []string{"g1"}, s.BlockOrder(""))
	children := s.BlockOrder("g1")
	require.Len(t, children, 3)
	assert.Equal(t, "p1", children[0])
	assert.Equal(t, "p3", children[2])
	assert.Equal(t, ir.String("two"), s.BlockAttributes(children[1])["content"])
	assert.Equal(t, children[1], s.SelectedBlockClientID())
}

func TestStore_MergeBlocks_DifferentListsIsNoop(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "one"), group("g", para("p", "two"))})
	s.SelectionChange("p", "content", 0, 0)
	c := watch(s)

	assert.False(t, s.MergeBlocks("a", "p"))
	assert.False(t, s.MergeBlocks("p", "a"))

	assert.Equal(t, 0, c.n)
	assert.Equal(t, []string{"a", "g"}, s.BlockOrder(""))
	assert.Equal(t, []string{"p"}, s.BlockOrder("g"))
	assert.Equal(t, ir.String("one"), s.BlockAttributes("a")["content"])
}

func TestStore_MergeAdjacent(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "one"), para("b", "two"), para("c", "three")})

	require.True(t, s.MergeAdjacent("b", true))
	assert.Equal(t, []string{"a", "b"}, s.BlockOrder(""))
	assert.Equal(t, ir.String("twothree"), s.BlockAttributes("b")["content"])

	require.True(t, s.MergeAdjacent("b", false))
	assert.Equal(t, []string{"a"}, s.BlockOrder(""))
	assert.Equal(t, ir.String("onetwothree"), s.BlockAttributes("a")["content"])

	assert.False(t, s.MergeAdjacent("a", true))
	assert.False(t, s.MergeAdjacent("a", false))
}

func selectAcross(s *Store, startID string, startOffset int, endID string, endOffset int) {
	s.SelectionChangeRange(
		ir.SelectionPoint{ClientID: startID, AttributeKey: "content", Offset: ir.Offset(startOffset)},
		ir.SelectionPoint{ClientID: endID, AttributeKey: "content", Offset: ir.Offset(endOffset)},
	)
}

func TestStore_DeleteSelection(t *testing.T) {
	tests := []struct {
		name    string
		forward bool
		keep    string
	}{
		{name: "backward keeps the first block", forward: false, keep: "a"},
		{name: "forward keeps the last block", forward: true, keep: "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			s.ResetBlocks([]*ir.Block{para("a", "Hello world"), para("b", "middle"), para("c", "Goodbye moon")})
			selectAcross(s, "c", 8, "a", 5)

			require.True(t, s.IsSelectionMergeable(tt.forward))
			require.True(t, s.DeleteSelection(tt.forward))

			assert.Equal(t, []string{tt.keep}, s.BlockOrder(""))
			assert.Equal(t, ir.String("Hellomoon"), s.BlockAttributes(tt.keep)["content"])
			assert.Equal(t, ir.SelectionPoint{ClientID: tt.keep, AttributeKey: "content", Offset: ir.Offset(5)}, s.SelectionStart())
			assert.Equal(t, s.SelectionStart(), s.SelectionEnd())
		})
	}
}

func TestStore_DeleteSelection_TransformsOtherBlock(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "Hello world"), heading("h", "Big title")})
	selectAcross(s, "a", 6, "h", 4)

	require.True(t, s.DeleteSelection(false))
	assert.Equal(t, []string{"a"}, s.BlockOrder(""))
	assert.Equal(t, "core/paragraph", s.BlockName("a"))
	assert.Equal(t, ir.String("Hello title"), s.BlockAttributes("a")["content"])
	assert.Equal(t, ir.Offset(6), s.SelectionStart().Offset)
}

func TestStore_IsSelectionMergeable(t *testing.T) {
	s := newTestStore(t)
	pre := &ir.Block{ClientID: "pre", Name: "core/preformatted", IsValid: true, Attributes: ir.Object{"content": ir.String("code")}, InnerBlocks: []*ir.Block{}}
	s.ResetBlocks([]*ir.Block{para("a", "one"), pre, group("g", para("g1", "x"))})

	s.SelectionChange("a", "content", 0, 1)
	assert.False(t, s.IsSelectionMergeable(false), "single block")

	require.True(t, s.MultiSelect("a", "pre", ir.CaretStart))
	assert.False(t, s.IsSelectionMergeable(false), "no caret")

	selectAcross(s, "a", 1, "pre", 1)
	assert.False(t, s.IsSelectionMergeable(true), "target cannot merge")
	assert.False(t, s.IsSelectionMergeable(false), "no transform to paragraph")
	assert.False(t, s.DeleteSelection(true))

	selectAcross(s, "a", 1, "g1", 0)
	assert.False(t, s.IsSelectionMergeable(false), "different lists")
}
