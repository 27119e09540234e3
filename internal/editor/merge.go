package editor

import (
	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/richtext"
)

// MergeBlocks merges the second block into the first. The first block's
// client ID survives. Depending on the blocks involved this may instead:
//   - move the second block's children into the first, for types that merge
//     inner blocks instead of attributes;
//   - remove whichever block is an untouched default block;
//   - only move the selection, when the first type cannot merge.
//
// When the selection is a caret in either block, it is carried into the
// merged block. Blocks in different lists are never merged.
func (s *Store) MergeBlocks(firstClientID, secondClientID string) bool {
	blockA, blockB := s.Block(firstClientID), s.Block(secondClientID)
	if blockA == nil || blockB == nil {
		return false
	}
	if rootA, rootB := s.blocks.parents[firstClientID], s.blocks.parents[secondClientID]; rootA != rootB {
		s.logger.Debug("merge rejected: blocks are not siblings",
			"first_client_id", firstClientID,
			"second_client_id", secondClientID,
		)
		return false
	}
	typeA, ok := s.registry.BlockType(blockA.Name)
	if !ok {
		return false
	}

	if typeA.Merge == nil && typeA.Supports.OnMerge {
		return s.mergeInnerBlocks(blockA, blockB)
	}
	if s.registry.IsUnmodifiedDefaultBlock(blockA) {
		return s.RemoveBlock(firstClientID, s.IsBlockSelected(firstClientID))
	}
	if s.registry.IsUnmodifiedDefaultBlock(blockB) {
		return s.RemoveBlock(secondClientID, s.IsBlockSelected(secondClientID))
	}
	if typeA.Merge == nil {
		return s.changed(func() { s.SelectBlock(firstClientID, ir.CaretStart) })
	}

	caret := s.mergeCaret(blockA, blockB, typeA)

	var sourceCaret *blocks.Caret
	if caret != nil && caret.InSource {
		sourceCaret = &caret.Caret
	}
	switched, mapped := s.registry.SwitchToBlockType(s.registry.CloneBlock(blockB, nil, nil), blockA.Name, sourceCaret)
	if len(switched) == 0 {
		return false
	}
	if caret != nil && caret.InSource {
		if mapped == nil {
			caret = nil
		} else {
			caret = &blocks.MergeCaret{Caret: *mapped, InSource: true}
		}
	}

	merged, newCaret := typeA.Merge(blockA.Attributes, switched[0].Attributes, caret)
	replacement := append([]*ir.Block{withAttributes(blockA, merged)}, switched[1:]...)

	return s.changed(func() {
		s.Batch(func() {
			if newCaret != nil {
				s.SelectionChange(firstClientID, newCaret.Key, newCaret.Offset, newCaret.Offset)
			}
			s.ReplaceBlocks([]string{firstClientID, secondClientID}, replacement, ir.Offset(0), ir.CaretStart)
		})
	})
}

// mergeCaret returns the selection caret when it sits in one of the two
// blocks on a defined attribute.
func (s *Store) mergeCaret(blockA, blockB *ir.Block, typeA *blocks.BlockType) *blocks.MergeCaret {
	start := s.SelectionStart()
	if start.ClientID != blockA.ClientID && start.ClientID != blockB.ClientID {
		return nil
	}
	if start.AttributeKey == "" || start.Offset == nil {
		return nil
	}

	selectedType := typeA
	if start.ClientID == blockB.ClientID {
		selectedType, _ = s.registry.BlockType(blockB.Name)
	}
	if selectedType == nil {
		return nil
	}
	if _, defined := selectedType.Attributes[start.AttributeKey]; !defined {
		s.logger.Error("selection attribute is not defined by the block type",
			"client_id", start.ClientID,
			"attribute_key", start.AttributeKey,
			"block_name", selectedType.Name)
		return nil
	}
	return &blocks.MergeCaret{
		Caret:    blocks.Caret{Key: start.AttributeKey, Offset: *start.Offset},
		InSource: start.ClientID == blockB.ClientID,
	}
}

// withAttributes returns a copy of b with patch overlaid on its attributes.
// The client ID and children are kept.
func withAttributes(b *ir.Block, patch ir.Object) *ir.Block {
	return &ir.Block{
		ClientID:    b.ClientID,
		Name:        b.Name,
		IsValid:     b.IsValid,
		Attributes:  b.Attributes.Merge(patch),
		InnerBlocks: b.InnerBlocks,
	}
}

// mergeInnerBlocks moves copies of b's children (after converting b to a's
// type) into a and removes b. If the block now after a is an identical
// container, its children are folded into a as well.
func (s *Store) mergeInnerBlocks(a, b *ir.Block) bool {
	switched, _ := s.registry.SwitchToBlockType(b, a.Name, nil)
	if len(switched) != 1 || len(switched[0].InnerBlocks) == 0 {
		return s.changed(func() { s.SelectBlock(a.ClientID, ir.CaretStart) })
	}

	children := switched[0].InnerBlocks
	inner := make([]*ir.Block, len(children))
	for i, child := range children {
		inner[i] = s.registry.CloneBlock(child, nil, nil)
	}

	return s.changed(func() {
		s.Batch(func() {
			s.InsertBlocks(inner, AppendIndex, a.ClientID, true, ir.CaretStart)
			s.RemoveBlock(b.ClientID, false)
			s.SelectBlock(inner[0].ClientID, ir.CaretStart)

			next := s.NextBlockClientID(a.ClientID)
			if next == "" || s.BlockName(next) != s.BlockName(a.ClientID) {
				return
			}
			attrs, nextAttrs := s.BlockAttributes(a.ClientID), s.BlockAttributes(next)
			for k, v := range attrs {
				if !ir.Equal(v, nextAttrs[k]) {
					return
				}
			}
			s.MoveBlocksToPosition(s.BlockOrder(next), next, a.ClientID, AppendIndex)
			s.RemoveBlock(next, false)
		})
	})
}

// MergeAdjacent merges clientID with its neighbour. Forward merges the next
// block into clientID; backward merges clientID into the previous block.
func (s *Store) MergeAdjacent(clientID string, forward bool) bool {
	if forward {
		next := s.NextBlockClientID(clientID)
		if next == "" {
			return false
		}
		return s.MergeBlocks(clientID, next)
	}
	prev := s.PreviousBlockClientID(clientID)
	if prev == "" {
		return false
	}
	return s.MergeBlocks(prev, clientID)
}

// orderedSelection returns the selection endpoints in document order when
// both are carets in different blocks of the same list.
func (s *Store) orderedSelection() (first, last ir.SelectionPoint, ok bool) {
	anchor, focus := s.SelectionStart(), s.SelectionEnd()
	if anchor.ClientID == focus.ClientID {
		return first, last, false
	}
	if !anchor.HasCaret() || !focus.HasCaret() {
		return first, last, false
	}
	anchorRoot, okA := s.BlockRootClientID(anchor.ClientID)
	focusRoot, okF := s.BlockRootClientID(focus.ClientID)
	if !okA || !okF || anchorRoot != focusRoot {
		return first, last, false
	}
	if s.BlockIndex(anchor.ClientID) > s.BlockIndex(focus.ClientID) {
		return focus, anchor, true
	}
	return anchor, focus, true
}

// IsSelectionMergeable reports whether DeleteSelection(forward) would merge
// the blocks at either end of the selection.
func (s *Store) IsSelectionMergeable(forward bool) bool {
	first, last, ok := s.orderedSelection()
	if !ok {
		return false
	}
	target, other := first, last
	if forward {
		target, other = last, first
	}

	targetName := s.BlockName(target.ClientID)
	targetType, ok := s.registry.BlockType(targetName)
	if !ok || targetType.Merge == nil {
		return false
	}
	toMerge := s.Block(other.ClientID)
	if toMerge.Name == targetName {
		return true
	}
	switched, _ := s.registry.SwitchToBlockType(toMerge, targetName, nil)
	return len(switched) > 0
}

// DeleteSelection deletes a selection spanning several blocks and merges
// what remains of the first and last blocks. A forward delete keeps the
// later block and its type; a backward delete keeps the earlier one. The
// caret lands where the deleted range began.
func (s *Store) DeleteSelection(forward bool) bool {
	first, last, ok := s.orderedSelection()
	if !ok {
		return false
	}
	target := first
	if forward {
		target = last
	}
	targetBlock := s.Block(target.ClientID)
	targetType, ok := s.registry.BlockType(targetBlock.Name)
	if !ok || targetType.Merge == nil {
		return false
	}

	blockA, blockB := s.Block(first.ClientID), s.Block(last.ClientID)
	valueA := richtext.New(blockA.Attributes.String(first.AttributeKey))
	valueB := richtext.New(blockB.Attributes.String(last.AttributeKey))
	valueA = valueA.Remove(*first.Offset, valueA.Len())
	valueB = valueB.Remove(0, *last.Offset)

	cloneA := s.registry.CloneBlock(blockA, ir.Object{first.AttributeKey: ir.String(valueA.String())}, nil)
	cloneB := s.registry.CloneBlock(blockB, ir.Object{last.AttributeKey: ir.String(valueB.String())}, nil)

	// The caret sits at the start of what is left of the last block.
	caret := &blocks.MergeCaret{Caret: blocks.Caret{Key: last.AttributeKey}, InSource: true}

	var merged ir.Object
	var newCaret *blocks.Caret
	var rest []*ir.Block
	if forward {
		switched, _ := s.registry.SwitchToBlockType(cloneA, targetType.Name, nil)
		if len(switched) == 0 {
			return false
		}
		rest = switched[:len(switched)-1]
		merged, newCaret = targetType.Merge(switched[len(switched)-1].Attributes, cloneB.Attributes, caret)
	} else {
		switched, mapped := s.registry.SwitchToBlockType(cloneB, targetType.Name, &caret.Caret)
		if len(switched) == 0 {
			return false
		}
		if mapped == nil {
			caret = nil
		} else {
			caret.Caret = *mapped
		}
		rest = switched[1:]
		merged, newCaret = targetType.Merge(cloneA.Attributes, switched[0].Attributes, caret)
	}

	replacement := []*ir.Block{withAttributes(targetBlock, merged)}
	if forward {
		replacement = append(rest, replacement...)
	} else {
		replacement = append(replacement, rest...)
	}

	selected := s.SelectedBlockClientIDs()
	initialPosition := ir.CaretStart
	if p := s.SelectedBlocksInitialCaretPosition(); p != nil {
		initialPosition = *p
	}
	return s.changed(func() {
		s.Batch(func() {
			if newCaret != nil {
				s.SelectionChange(targetBlock.ClientID, newCaret.Key, newCaret.Offset, newCaret.Offset)
			}
			s.ReplaceBlocks(selected, replacement, ir.Offset(0), initialPosition)
		})
	})
}
