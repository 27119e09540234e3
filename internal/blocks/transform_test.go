package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/ir"
)

func TestSwitchToBlockType_FromTransform(t *testing.T) {
	r := newTestRegistry(t)
	p := r.CreateBlock("core/paragraph", ir.Object{"content": ir.String("ribs")}, nil)

	out, caret := r.SwitchToBlockType(p, "core/heading", &Caret{Key: "content", Offset: 2})

	require.Len(t, out, 1)
	assert.Equal(t, p.ClientID, out[0].ClientID, "first switched block keeps the client ID")
	assert.Equal(t, "core/heading", out[0].Name)
	assert.Equal(t, ir.Object{"content": ir.String("ribs"), "level": ir.Int(2)}, out[0].Attributes)
	assert.Equal(t, &Caret{Key: "content", Offset: 2}, caret)
}

func TestSwitchToBlockType_SameTypeIsIdentity(t *testing.T) {
	r := newTestRegistry(t)
	p := r.CreateBlock("core/paragraph", nil, nil)

	out, _ := r.SwitchToBlockType(p, "core/paragraph", nil)
	require.Len(t, out, 1)
	assert.Same(t, p, out[0])
}

func TestSwitchToBlockType_NoTransform(t *testing.T) {
	r := newTestRegistry(t)
	g := r.CreateBlock("core/group", nil, nil)

	out, caret := r.SwitchToBlockType(g, "core/paragraph", nil)
	assert.Nil(t, out)
	assert.Nil(t, caret)

	out, _ = r.SwitchToBlockType(g, "core/unknown", nil)
	assert.Nil(t, out)
}

func TestSwitchToBlockType_CaretOnDroppedAttribute(t *testing.T) {
	r := newTestRegistry(t)
	h := r.CreateBlock("core/heading", ir.Object{"content": ir.String("x")}, nil)

	out, caret := r.SwitchToBlockType(h, "core/paragraph", &Caret{Key: "level", Offset: 0})
	require.Len(t, out, 1)
	assert.Nil(t, caret)
}
