package blocks

import (
	"slices"
	"sort"

	"github.com/roach88/blocksync/internal/ir"
)

// AnyBlock matches every source type in a From transform.
const AnyBlock = "*"

// Transform maps one block onto another type.
type Transform struct {
	// Blocks lists the target types (for To) or the source types (for From).
	Blocks []string

	// Attributes maps target attribute names to source attribute names.
	Attributes map[string]string

	// Fixed attributes are set on the result regardless of the source.
	Fixed ir.Object
}

// Transforms groups a type's outgoing and incoming transforms.
type Transforms struct {
	To   []Transform
	From []Transform
}

// Caret is a text caret inside one attribute.
type Caret struct {
	Key    string
	Offset int
}

// SwitchToBlockType converts block into the target type.
//
// A transform is looked up first on the source type's To list, then on the
// target type's From list. The result keeps the source block's client ID and
// inner blocks. If caret points into block, it is carried through the
// attribute mapping; a caret on an attribute the transform drops is lost.
//
// It returns nil when the target is unregistered or no transform applies.
func (r *Registry) SwitchToBlockType(block *ir.Block, target string, caret *Caret) ([]*ir.Block, *Caret) {
	if block.Name == target {
		return []*ir.Block{block}, caret
	}

	targetType, ok := r.BlockType(target)
	if !ok {
		return nil, nil
	}

	t, ok := r.findTransform(block.Name, targetType)
	if !ok {
		return nil, nil
	}

	attrs := make(ir.Object, len(t.Attributes)+len(t.Fixed))
	for targetKey, sourceKey := range t.Attributes {
		if v, ok := block.Attributes[sourceKey]; ok {
			attrs[targetKey] = v
		}
	}
	for k, v := range t.Fixed {
		attrs[k] = v
	}

	switched := &ir.Block{
		ClientID:    block.ClientID,
		Name:        target,
		IsValid:     true,
		Attributes:  r.sanitizeAttributes(target, attrs),
		InnerBlocks: block.InnerBlocks,
	}
	if switched.InnerBlocks == nil {
		switched.InnerBlocks = []*ir.Block{}
	}

	return []*ir.Block{switched}, mapCaret(t, caret)
}

func (r *Registry) findTransform(source string, targetType *BlockType) (Transform, bool) {
	if sourceType, ok := r.BlockType(source); ok {
		for _, t := range sourceType.Transforms.To {
			if slices.Contains(t.Blocks, targetType.Name) {
				return t, true
			}
		}
	}
	for _, t := range targetType.Transforms.From {
		if slices.Contains(t.Blocks, source) || slices.Contains(t.Blocks, AnyBlock) {
			return t, true
		}
	}
	return Transform{}, false
}

func mapCaret(t Transform, caret *Caret) *Caret {
	if caret == nil {
		return nil
	}
	targets := make([]string, 0, len(t.Attributes))
	for targetKey, sourceKey := range t.Attributes {
		if sourceKey == caret.Key {
			targets = append(targets, targetKey)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	sort.Strings(targets)
	return &Caret{Key: targets[0], Offset: caret.Offset}
}
