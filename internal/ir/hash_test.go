package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBlocks(content string) []*Block {
	return []*Block{{
		ClientID:   "a",
		Name:       "core/paragraph",
		IsValid:    true,
		Attributes: Object{"content": String(content)},
	}}
}

func TestContentHash_Deterministic(t *testing.T) {
	h1, err := ContentHash(sampleBlocks("hello"))
	require.NoError(t, err)
	h2, err := ContentHash(sampleBlocks("hello"))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestContentHash_DiffersByContent(t *testing.T) {
	assert.NotEqual(t, MustContentHash(sampleBlocks("a")), MustContentHash(sampleBlocks("b")))
}

func TestRevisionID_DomainSeparated(t *testing.T) {
	blocks := sampleBlocks("hello")
	rev, err := RevisionID("post/1", "", blocks)
	require.NoError(t, err)

	assert.NotEqual(t, MustContentHash(blocks), rev)

	other, err := RevisionID("post/2", "", blocks)
	require.NoError(t, err)
	assert.NotEqual(t, rev, other, "entity is part of the identity")

	child, err := RevisionID("post/1", rev, blocks)
	require.NoError(t, err)
	assert.NotEqual(t, rev, child, "parent is part of the identity")
}

func TestHashWithDomain_NullSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" must not collide with "a" + 0x00 + "bc".
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}
