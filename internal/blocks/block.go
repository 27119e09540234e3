package blocks

import (
	"github.com/roach88/blocksync/internal/ir"
)

// CreateBlock builds a new block with a fresh client ID.
//
// For registered types the attributes are sanitized against the schema:
// declared attributes missing from attrs get their defaults, and undeclared
// ones are dropped (except the lock attribute). Unregistered types keep attrs
// as given; policy checks reject them later.
func (r *Registry) CreateBlock(name string, attrs ir.Object, inner []*ir.Block) *ir.Block {
	if inner == nil {
		inner = []*ir.Block{}
	}
	return &ir.Block{
		ClientID:    r.ids.NewClientID(),
		Name:        name,
		IsValid:     true,
		Attributes:  r.sanitizeAttributes(name, attrs),
		InnerBlocks: inner,
	}
}

func (r *Registry) sanitizeAttributes(name string, attrs ir.Object) ir.Object {
	bt, ok := r.BlockType(name)
	if !ok {
		return attrs.Clone()
	}

	out := make(ir.Object, len(bt.Attributes))
	for key, schema := range bt.Attributes {
		if v, ok := attrs[key]; ok {
			out[key] = ir.CloneValue(v)
		} else if schema.Default != nil {
			out[key] = ir.CloneValue(schema.Default)
		}
	}
	if lock, ok := attrs[LockAttribute]; ok {
		out[LockAttribute] = ir.CloneValue(lock)
	}
	return out
}

// CloneBlock copies block under a new client ID, overlaying mergeAttrs on
// its attributes. When inner is nil the children are cloned recursively, so
// every block in the copy gets a fresh ID.
func (r *Registry) CloneBlock(block *ir.Block, mergeAttrs ir.Object, inner []*ir.Block) *ir.Block {
	if inner == nil {
		inner = make([]*ir.Block, len(block.InnerBlocks))
		for i, child := range block.InnerBlocks {
			inner[i] = r.CloneBlock(child, nil, nil)
		}
	}
	return &ir.Block{
		ClientID:    r.ids.NewClientID(),
		Name:        block.Name,
		IsValid:     block.IsValid,
		Attributes:  block.Attributes.Clone().Merge(mergeAttrs),
		InnerBlocks: inner,
	}
}

// IsUnmodifiedBlock reports whether every schema attribute of block still
// holds the value a freshly created block of the same type would have.
func (r *Registry) IsUnmodifiedBlock(block *ir.Block) bool {
	bt, ok := r.BlockType(block.Name)
	if !ok {
		return false
	}
	for key, schema := range bt.Attributes {
		current, has := block.Attributes[key]
		if schema.Default == nil {
			if has && !isEmptyValue(current) {
				return false
			}
			continue
		}
		if !has || !ir.Equal(current, schema.Default) {
			return false
		}
	}
	return true
}

// IsUnmodifiedDefaultBlock reports whether block is an untouched instance of
// the default block type, the placeholder a user has not typed into yet.
func (r *Registry) IsUnmodifiedDefaultBlock(block *ir.Block) bool {
	name := r.DefaultBlockName()
	if name == "" || block.Name != name {
		return false
	}
	return r.IsUnmodifiedBlock(block)
}

func isEmptyValue(v ir.Value) bool {
	switch val := v.(type) {
	case nil, ir.Null:
		return true
	case ir.String:
		return val == ""
	default:
		return false
	}
}
