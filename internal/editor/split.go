package editor

import (
	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/richtext"
)

// SplitIntent says why a block is being split. It decides whether an empty
// leading block is kept.
type SplitIntent int

const (
	// SplitIntentCaret is a user split at the caret (Enter). Both halves are
	// kept even when empty.
	SplitIntentCaret SplitIntent = iota

	// SplitIntentPaste splices pasted blocks in at the caret. Empty halves
	// are dropped.
	SplitIntentPaste
)

func (i SplitIntent) String() string {
	if i == SplitIntentPaste {
		return "paste"
	}
	return "caret"
}

// SplitBlock divides the rich text held in attributeKey at offset into two
// blocks of the same type, splicing pasted in between. The offset is snapped
// back to a grapheme boundary.
//
// The half that holds the original content keeps the client ID: the first
// half, unless it is empty and the second is not. A caret split selects the
// second half at its start; a paste selects the last pasted block at its
// end.
func (s *Store) SplitBlock(clientID, attributeKey string, offset int, pasted []*ir.Block, intent SplitIntent) bool {
	block := s.Block(clientID)
	if block == nil {
		return false
	}
	bt, ok := s.registry.BlockType(block.Name)
	if !ok {
		return false
	}
	if schema, ok := bt.Attributes[attributeKey]; !ok || !schema.IsRichText() {
		s.logger.Debug("split rejected: not a rich-text attribute",
			"client_id", clientID, "attribute_key", attributeKey)
		return false
	}

	value := richtext.New(block.Attributes.String(attributeKey))
	before, after := value.Split(value.SnapToGrapheme(offset))
	afterIsOriginal := before.IsEmpty() && !after.IsEmpty()

	half := func(v richtext.Value, original bool) *ir.Block {
		patch := ir.Object{attributeKey: ir.String(v.String())}
		if original {
			return withAttributes(block, patch)
		}
		return s.registry.CreateBlock(block.Name, block.Attributes.Merge(patch), nil)
	}

	var out []*ir.Block
	lastPasted := -1
	if intent == SplitIntentCaret || !before.IsEmpty() {
		out = append(out, half(before, !afterIsOriginal))
		lastPasted++
	}
	if intent == SplitIntentPaste {
		out = append(out, pasted...)
		lastPasted += len(pasted)
	}
	if intent == SplitIntentCaret || !after.IsEmpty() {
		out = append(out, half(after, afterIsOriginal))
	}
	if len(out) == 0 {
		return false
	}

	indexToSelect, initialPosition := 1, ir.CaretStart
	if intent == SplitIntentPaste {
		indexToSelect, initialPosition = max(lastPasted, 0), ir.CaretEnd
	}
	s.logger.Debug("split block",
		"client_id", clientID,
		"intent", intent.String(),
		"offset", offset,
		"result_count", len(out))
	return s.ReplaceBlocks([]string{clientID}, out, ir.Offset(indexToSelect), initialPosition)
}

// SplitAtDoubleLineEnd handles Enter pressed at the end of a block whose text
// already ends in two line breaks. The trailing breaks are removed and a new
// default block is inserted after, selected. It does nothing unless the
// selection is a collapsed caret at the end of attributeKey.
func (s *Store) SplitAtDoubleLineEnd(clientID, attributeKey string) bool {
	start, end := s.SelectionStart(), s.SelectionEnd()
	if start.ClientID != clientID || start.AttributeKey != attributeKey || !start.Equal(end) || start.Offset == nil {
		return false
	}
	value := richtext.New(s.BlockAttributes(clientID).String(attributeKey))
	if !value.IsDoubleLineEnd(*start.Offset) {
		return false
	}
	root, _ := s.BlockRootClientID(clientID)
	index := s.BlockIndex(clientID) + 1

	return s.changed(func() {
		s.Batch(func() {
			s.UpdateBlockAttributes([]string{clientID}, ir.Object{
				attributeKey: ir.String(value.TrimTrailingLineBreaks().String()),
			})
			s.InsertDefaultBlock(nil, root, index)
		})
	})
}
