package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameBlockList(t *testing.T) {
	a := []*Block{{ClientID: "a"}, {ClientID: "b"}}
	copied := append([]*Block(nil), a...)

	assert.True(t, SameBlockList(a, a))
	assert.True(t, SameBlockList(a, a[:2]))
	assert.False(t, SameBlockList(a, copied), "equal content, different list")
	assert.False(t, SameBlockList(a, a[:1]))
	assert.True(t, SameBlockList(nil, []*Block{}))
}

func TestCopyTree(t *testing.T) {
	orig := []*Block{{
		ClientID:    "a",
		Name:        "core/group",
		Attributes:  Object{"tags": Array{String("x")}},
		InnerBlocks: []*Block{{ClientID: "b", Name: "core/paragraph"}},
	}}

	copied := CopyTree(orig)
	require.True(t, BlocksEqual(orig, copied))
	assert.NotSame(t, orig[0], copied[0])
	assert.NotSame(t, orig[0].InnerBlocks[0], copied[0].InnerBlocks[0])

	copied[0].Attributes["tags"].(Array)[0] = String("y")
	assert.Equal(t, String("x"), orig[0].Attributes["tags"].(Array)[0])
}

func TestBlockEqual_NilAttributesMatchEmpty(t *testing.T) {
	assert.True(t, BlockEqual(&Block{ClientID: "a"}, &Block{ClientID: "a", Attributes: Object{}}))
	assert.False(t, BlockEqual(&Block{ClientID: "a"}, &Block{ClientID: "b"}))
	assert.False(t, BlockEqual(&Block{ClientID: "a"}, nil))
}

func TestWalk_SkipsChildren(t *testing.T) {
	tree := []*Block{
		{ClientID: "a", InnerBlocks: []*Block{{ClientID: "a1"}}},
		{ClientID: "b", InnerBlocks: []*Block{{ClientID: "b1"}}},
	}
	var seen []string
	Walk(tree, func(b *Block) bool {
		seen = append(seen, b.ClientID)
		return b.ClientID != "b"
	})
	assert.Equal(t, []string{"a", "a1", "b"}, seen)
}

func TestBlock_MarshalJSONEmptyCollections(t *testing.T) {
	data, err := json.Marshal(&Block{ClientID: "a", Name: "core/paragraph"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"clientId":"a","name":"core/paragraph","isValid":false,"attributes":{},"innerBlocks":[]}`, string(data))
}

func TestSelection_Equal(t *testing.T) {
	a := Selection{Start: SelectionPoint{ClientID: "a", Offset: Offset(1)}}
	b := Selection{Start: SelectionPoint{ClientID: "a", Offset: Offset(1)}}
	assert.True(t, a.Equal(b))

	b.InitialPosition = Offset(CaretStart)
	assert.False(t, a.Equal(b))
	assert.True(t, SelectionPoint{ClientID: "a", AttributeKey: "content", Offset: Offset(0)}.HasCaret())
	assert.False(t, SelectionPoint{ClientID: "a", AttributeKey: "content"}.HasCaret())
}
