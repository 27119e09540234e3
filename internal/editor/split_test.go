package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/ir"
)

func contents(s *Store) []string {
	var out []string
	for _, b := range s.Blocks("") {
		out = append(out, b.Attributes.String("content"))
	}
	return out
}

func TestStore_SplitBlock_Caret(t *testing.T) {
	tests := []struct {
		name      string
		offset    int
		wantOrder []string
		wantText  []string
		selected  string
	}{
		{name: "middle", offset: 5, wantOrder: []string{"a", "block-1"}, wantText: []string{"Hello", " world"}, selected: "block-1"},
		{name: "end", offset: 11, wantOrder: []string{"a", "block-1"}, wantText: []string{"Hello world", ""}, selected: "block-1"},
		{name: "start keeps the id on the content", offset: 0, wantOrder: []string{"block-1", "a"}, wantText: []string{"", "Hello world"}, selected: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			s.ResetBlocks([]*ir.Block{para("a", "Hello world")})
			s.SelectionChange("a", "content", tt.offset, tt.offset)

			require.True(t, s.SplitBlock("a", "content", tt.offset, nil, SplitIntentCaret))

			assert.Equal(t, tt.wantOrder, s.BlockOrder(""))
			assert.Equal(t, tt.wantText, contents(s))
			assert.Equal(t, tt.selected, s.SelectedBlockClientID())
			assert.Equal(t, ir.Offset(ir.CaretStart), s.SelectedBlocksInitialCaretPosition())
		})
	}
}

func TestStore_SplitBlock_Paste(t *testing.T) {
	tests := []struct {
		name      string
		offset    int
		pasted    []*ir.Block
		wantOrder []string
		selected  string
	}{
		{
			name:      "middle",
			offset:    5,
			pasted:    []*ir.Block{heading("h1", "One"), heading("h2", "Two")},
			wantOrder: []string{"a", "h1", "h2", "block-1"},
			selected:  "h2",
		},
		{
			name:      "start drops the empty leading block",
			offset:    0,
			pasted:    []*ir.Block{heading("h1", "One")},
			wantOrder: []string{"h1", "a"},
			selected:  "h1",
		},
		{
			name:      "end drops the empty trailing block",
			offset:    11,
			pasted:    []*ir.Block{heading("h1", "One")},
			wantOrder: []string{"a", "h1"},
			selected:  "h1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			s.ResetBlocks([]*ir.Block{para("a", "Hello world")})
			s.SelectionChange("a", "content", tt.offset, tt.offset)

			require.True(t, s.SplitBlock("a", "content", tt.offset, tt.pasted, SplitIntentPaste))

			assert.Equal(t, tt.wantOrder, s.BlockOrder(""))
			assert.Equal(t, tt.selected, s.SelectedBlockClientID())
			assert.Equal(t, ir.Offset(ir.CaretEnd), s.SelectedBlocksInitialCaretPosition())
		})
	}
}

func TestStore_SplitBlock_SnapsToGrapheme(t *testing.T) {
	s := newTestStore(t)
	// A thumbs-up with a skin tone modifier is two runes and one grapheme.
	s.ResetBlocks([]*ir.Block{para("a", "ok\U0001F44D\U0001F3FD")})

	require.True(t, s.SplitBlock("a", "content", 3, nil, SplitIntentCaret))
	assert.Equal(t, []string{"ok", "\U0001F44D\U0001F3FD"}, contents(s))
}

func TestStore_SplitBlock_Rejects(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "Hello"), group("g")})

	assert.False(t, s.SplitBlock("missing", "content", 1, nil, SplitIntentCaret))
	assert.False(t, s.SplitBlock("a", "dropCap", 1, nil, SplitIntentCaret), "not rich text")
	assert.False(t, s.SplitBlock("g", "tagName", 1, nil, SplitIntentCaret))
	assert.Equal(t, []string{"a", "g"}, s.BlockOrder(""))
}

func TestStore_SplitAtDoubleLineEnd(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "line\n\n"), para("b", "after")})

	s.SelectionChange("a", "content", 5, 5)
	assert.False(t, s.SplitAtDoubleLineEnd("a", "content"), "caret not at the end")

	s.SelectionChange("a", "content", 6, 6)
	require.True(t, s.SplitAtDoubleLineEnd("a", "content"))

	assert.Equal(t, []string{"a", "block-1", "b"}, s.BlockOrder(""))
	assert.Equal(t, ir.String("line"), s.BlockAttributes("a")["content"])
	assert.Equal(t, "block-1", s.SelectedBlockClientID())
}

func TestStore_SplitAtDoubleLineEnd_SingleBreak(t *testing.T) {
	s := newTestStore(t)
	s.ResetBlocks([]*ir.Block{para("a", "line\n")})
	s.SelectionChange("a", "content", 5, 5)

	assert.False(t, s.SplitAtDoubleLineEnd("a", "content"))
	assert.Equal(t, 1, s.BlockCount(""))
}
