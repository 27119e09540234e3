package ir

import (
	"encoding/json"
)

// Block is a fully materialized block: a typed content node with its
// attributes and nested children.
//
// Blocks handed out by the editor store are shared and must be treated as
// immutable. Pointer identity is the change signal consumers rely on: a block
// whose pointer did not change has not changed.
type Block struct {
	ClientID    string   `json:"clientId" yaml:"client_id"`
	Name        string   `json:"name" yaml:"name"`
	IsValid     bool     `json:"isValid" yaml:"is_valid"`
	Attributes  Object   `json:"attributes" yaml:"attributes"`
	InnerBlocks []*Block `json:"innerBlocks" yaml:"inner_blocks"`
}

// MarshalJSON keeps empty attribute maps and child lists as {} and [] rather
// than null.
func (b *Block) MarshalJSON() ([]byte, error) {
	type plain Block
	out := plain(*b)
	if out.Attributes == nil {
		out.Attributes = Object{}
	}
	if out.InnerBlocks == nil {
		out.InnerBlocks = []*Block{}
	}
	return json.Marshal(out)
}

// SameBlockList reports whether a and b are the same list instance: same
// length and same backing array head. Two empty lists are the same list.
func SameBlockList(a, b []*Block) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}

// BlocksEqual reports whether two block lists are structurally equal,
// including client IDs.
func BlocksEqual(a, b []*Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !BlockEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// BlockEqual reports whether two blocks are structurally equal.
func BlockEqual(a, b *Block) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.ClientID == b.ClientID &&
		a.Name == b.Name &&
		a.IsValid == b.IsValid &&
		Equal(normalizeObject(a.Attributes), normalizeObject(b.Attributes)) &&
		BlocksEqual(a.InnerBlocks, b.InnerBlocks)
}

func normalizeObject(o Object) Object {
	if o == nil {
		return Object{}
	}
	return o
}

// CopyTree deep-copies blocks, keeping client IDs. The store uses it at its
// ingest boundary so external owners cannot mutate stored state.
func CopyTree(blocks []*Block) []*Block {
	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = &Block{
			ClientID:    b.ClientID,
			Name:        b.Name,
			IsValid:     b.IsValid,
			Attributes:  b.Attributes.Clone(),
			InnerBlocks: CopyTree(b.InnerBlocks),
		}
	}
	return out
}

// Walk visits every block in depth-first pre-order. Returning false from
// visit skips the block's children.
func Walk(blocks []*Block, visit func(*Block) bool) {
	for _, b := range blocks {
		if visit(b) {
			Walk(b.InnerBlocks, visit)
		}
	}
}

// ClientIDs returns the client IDs of blocks, in order.
func ClientIDs(blocks []*Block) []string {
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ClientID
	}
	return ids
}
