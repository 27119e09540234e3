package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/ir"
)

func threeParagraphs(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "one"), para("b", "two"), para("c", "three")})
	return s
}

func TestStore_SelectionChange(t *testing.T) {
	s := threeParagraphs(t)
	s.SelectionChange("b", "content", 1, 2)

	assert.Equal(t, ir.SelectionPoint{ClientID: "b", AttributeKey: "content", Offset: ir.Offset(1)}, s.SelectionStart())
	assert.Equal(t, ir.SelectionPoint{ClientID: "b", AttributeKey: "content", Offset: ir.Offset(2)}, s.SelectionEnd())
	assert.Equal(t, "b", s.SelectedBlockClientID())
	assert.True(t, s.IsBlockSelected("b"))
	assert.False(t, s.HasMultiSelection())
}

func TestStore_SelectionChangeRange(t *testing.T) {
	s := threeParagraphs(t)
	s.SelectionChange("a", "content", 2, 2)
	s.SelectionChangeRange(ir.SelectionPoint{}, ir.SelectionPoint{ClientID: "c", AttributeKey: "content", Offset: ir.Offset(1)})

	assert.Equal(t, "a", s.BlockSelectionStart())
	assert.Equal(t, "c", s.BlockSelectionEnd())
	assert.Equal(t, []string{"a", "b", "c"}, s.SelectedBlockClientIDs())
	assert.Equal(t, "a", s.FirstMultiSelectedBlockClientID())
	assert.Equal(t, "c", s.LastMultiSelectedBlockClientID())
	assert.True(t, s.IsBlockMultiSelected("b"))
}

func TestStore_MultiSelect(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "one"), group("g", para("g1", "x")), para("c", "three")})

	assert.False(t, s.MultiSelect("a", "g1", ir.CaretStart), "ends in different lists")
	assert.Empty(t, s.SelectedBlockClientIDs())

	require.True(t, s.MultiSelect("c", "a", ir.CaretStart))
	assert.Equal(t, []string{"a", "g", "c"}, s.MultiSelectedBlockClientIDs())
	assert.Equal(t, 3, s.SelectedBlockCount())
	assert.Equal(t, "", s.SelectedBlockClientID())
}

func TestStore_SelectBlockKeepsCaretOnSameBlock(t *testing.T) {
	s := threeParagraphs(t)
	s.SelectionChange("a", "content", 2, 2)

	s.SelectBlock("a", ir.CaretStart)
	assert.True(t, s.SelectionStart().HasCaret())

	s.SelectBlock("b", ir.CaretEnd)
	assert.Equal(t, ir.SelectionPoint{ClientID: "b"}, s.SelectionStart())
	assert.Equal(t, ir.Offset(ir.CaretEnd), s.SelectedBlocksInitialCaretPosition())

	s.ClearSelectedBlock()
	assert.False(t, s.HasSelectedBlock())
}

func TestStore_SelectPreviousAndNext(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "one"), group("g", para("g1", "x"))})

	assert.True(t, s.SelectPreviousBlock("g", false))
	assert.Equal(t, "a", s.SelectedBlockClientID())
	assert.Equal(t, ir.Offset(ir.CaretEnd), s.SelectedBlocksInitialCaretPosition())

	assert.False(t, s.SelectPreviousBlock("g1", false))
	assert.True(t, s.SelectPreviousBlock("g1", true))
	assert.Equal(t, "g", s.SelectedBlockClientID())

	assert.True(t, s.SelectNextBlock("a"))
	assert.Equal(t, "g", s.SelectedBlockClientID())
	assert.False(t, s.SelectNextBlock("g"))
}

func TestStore_SelectionFollowsInsert(t *testing.T) {
	s := threeParagraphs(t)
	s.SelectionChange("a", "content", 1, 1)

	require.True(t, s.InsertBlock(para("d", ""), 1, "", false))
	assert.Equal(t, "a", s.SelectedBlockClientID())

	require.True(t, s.InsertBlocks([]*ir.Block{para("e", ""), para("f", "")}, 1, "", true, ir.CaretEnd))
	assert.Equal(t, "e", s.SelectedBlockClientID())
	assert.Equal(t, ir.Offset(ir.CaretEnd), s.SelectedBlocksInitialCaretPosition())
}

func TestStore_RemoveClearsSelectionInDescendants(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "one"), group("g", group("g2", para("deep", "x")))})
	s.SelectionChange("deep", "content", 0, 0)

	require.True(t, s.RemoveBlock("g", false))

	assert.Equal(t, ir.SelectionPoint{}, s.SelectionStart())
	assert.Equal(t, ir.SelectionPoint{}, s.SelectionEnd())
}

func TestStore_RemoveWithSelectPrevious(t *testing.T) {
	s := threeParagraphs(t)
	s.SelectBlock("b", ir.CaretStart)

	require.True(t, s.RemoveBlock("b", true))
	assert.Equal(t, "a", s.SelectedBlockClientID())
	assert.Equal(t, []string{"a", "c"}, s.BlockOrder(""))
}

func TestStore_ReplaceMovesSelection(t *testing.T) {
	s := threeParagraphs(t)
	s.SelectionChange("b", "content", 1, 1)

	require.True(t, s.ReplaceBlocks([]string{"b"}, []*ir.Block{para("x", ""), para("y", "")}, nil, ir.CaretStart))
	assert.Equal(t, "y", s.SelectedBlockClientID(), "last block by default")

	require.True(t, s.ReplaceBlocks([]string{"y"}, []*ir.Block{para("p", ""), para("q", "")}, ir.Offset(0), ir.CaretEnd))
	assert.Equal(t, "p", s.SelectedBlockClientID())
	assert.Equal(t, ir.Offset(ir.CaretEnd), s.SelectedBlocksInitialCaretPosition())

	// A replacement that does not touch the selection leaves it alone.
	require.True(t, s.ReplaceBlock("a", para("z", "")))
	assert.Equal(t, "p", s.SelectedBlockClientID())
}

func TestStore_ResetBlocksCollapsesSelection(t *testing.T) {
	s := threeParagraphs(t)
	s.SelectionChangeRange(
		ir.SelectionPoint{ClientID: "a", AttributeKey: "content", Offset: ir.Offset(1)},
		ir.SelectionPoint{ClientID: "c", AttributeKey: "content", Offset: ir.Offset(1)},
	)

	s.ResetBlocks([]*ir.Block{para("a", "one"), para("b", "two")})
	assert.Equal(t, s.SelectionStart(), s.SelectionEnd())
	assert.Equal(t, "a", s.SelectedBlockClientID())

	s.ResetBlocks([]*ir.Block{group("g", para("a", "nested"))})
	assert.Equal(t, "a", s.SelectedBlockClientID(), "nested blocks count as present")

	s.ResetBlocks([]*ir.Block{para("b", "two")})
	assert.False(t, s.HasSelectedBlock())
}

func TestStore_ResetSelection(t *testing.T) {
	s := threeParagraphs(t)
	start := ir.SelectionPoint{ClientID: "a", AttributeKey: "content", Offset: ir.Offset(0)}
	end := ir.SelectionPoint{ClientID: "b", AttributeKey: "content", Offset: ir.Offset(2)}

	s.ResetSelection(start, end, ir.Offset(ir.CaretEnd))

	sel := s.Selection()
	assert.Equal(t, start, sel.Start)
	assert.Equal(t, end, sel.End)
	assert.Equal(t, ir.Offset(ir.CaretEnd), sel.InitialPosition)
}
