package editor

import (
	"slices"

	"github.com/roach88/blocksync/internal/ir"
)

type selectionState struct {
	start ir.SelectionPoint
	end   ir.SelectionPoint
}

// reduceSelection runs before the block reducer, so removals can still see
// the descendants of the blocks they remove.
func (s *Store) reduceSelection(a *Action) bool {
	next, ok := s.nextSelection(a)
	if !ok || (next.start.Equal(s.selection.start) && next.end.Equal(s.selection.end)) {
		return false
	}
	s.selection = next
	return true
}

func (s *Store) nextSelection(a *Action) (selectionState, bool) {
	cur := s.selection
	switch a.Type {
	case ActionSelectionChange:
		if a.ClientID != "" {
			return selectionState{
				start: ir.SelectionPoint{ClientID: a.ClientID, AttributeKey: a.Start.AttributeKey, Offset: cloneInt(a.Start.Offset)},
				end:   ir.SelectionPoint{ClientID: a.ClientID, AttributeKey: a.Start.AttributeKey, Offset: cloneInt(a.End.Offset)},
			}, true
		}
		next := cur
		if a.Start.ClientID != "" {
			next.start = clonePoint(a.Start)
		}
		if a.End.ClientID != "" {
			next.end = clonePoint(a.End)
		}
		return next, true

	case ActionResetSelection:
		return selectionState{start: clonePoint(a.Start), end: clonePoint(a.End)}, true

	case ActionMultiSelect:
		if a.Start.ClientID == cur.start.ClientID && a.End.ClientID == cur.end.ClientID {
			return cur, false
		}
		return selectionState{
			start: ir.SelectionPoint{ClientID: a.Start.ClientID},
			end:   ir.SelectionPoint{ClientID: a.End.ClientID},
		}, true

	case ActionResetBlocks:
		if cur.start.ClientID == "" && cur.end.ClientID == "" {
			return cur, false
		}
		present := make(map[string]bool)
		ir.Walk(a.Blocks, func(b *ir.Block) bool {
			present[b.ClientID] = true
			return true
		})
		if !present[cur.start.ClientID] {
			return selectionState{}, true
		}
		if !present[cur.end.ClientID] {
			return selectionState{start: cur.start, end: cur.start}, true
		}
		return cur, false
	}

	var removed map[string]bool
	if a.Type == ActionRemoveBlocks {
		removed = make(map[string]bool)
		for _, id := range s.blocks.withDescendants(s.existing(a.ClientIDs), a.keepControlled) {
			removed[id] = true
		}
	}
	return selectionState{
		start: selectEndpoint(cur.start, a, removed),
		end:   selectEndpoint(cur.end, a, removed),
	}, true
}

// selectEndpoint moves one selection endpoint in response to a block action.
func selectEndpoint(p ir.SelectionPoint, a *Action, removed map[string]bool) ir.SelectionPoint {
	switch a.Type {
	case ActionClearSelectedBlock:
		return ir.SelectionPoint{}

	case ActionSelectBlock:
		if a.ClientID == p.ClientID {
			return p
		}
		return ir.SelectionPoint{ClientID: a.ClientID}

	case ActionInsertBlocks, ActionReplaceInnerBlocks:
		if !a.UpdateSelection || len(a.Blocks) == 0 {
			return p
		}
		return ir.SelectionPoint{ClientID: a.Blocks[0].ClientID}

	case ActionRemoveBlocks:
		if removed[p.ClientID] {
			return ir.SelectionPoint{}
		}
		return p

	case ActionReplaceBlocks:
		if !slices.Contains(a.ClientIDs, p.ClientID) {
			return p
		}
		if len(a.Blocks) == 0 {
			return ir.SelectionPoint{}
		}
		target := a.Blocks[len(a.Blocks)-1]
		if a.IndexToSelect != nil && *a.IndexToSelect >= 0 && *a.IndexToSelect < len(a.Blocks) {
			target = a.Blocks[*a.IndexToSelect]
		}
		if target.ClientID == p.ClientID {
			return p
		}
		return ir.SelectionPoint{ClientID: target.ClientID}
	}
	return p
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clonePoint(p ir.SelectionPoint) ir.SelectionPoint {
	p.Offset = cloneInt(p.Offset)
	return p
}

// SelectionChange places a caret (or a range within one attribute) in a
// block.
func (s *Store) SelectionChange(clientID, attributeKey string, startOffset, endOffset int) {
	s.dispatch(Action{
		Type:     ActionSelectionChange,
		ClientID: clientID,
		Start:    ir.SelectionPoint{AttributeKey: attributeKey, Offset: ir.Offset(startOffset)},
		End:      ir.SelectionPoint{Offset: ir.Offset(endOffset)},
	})
}

// SelectionChangeRange moves either endpoint independently. A zero point
// leaves that endpoint where it is.
func (s *Store) SelectionChangeRange(start, end ir.SelectionPoint) {
	s.dispatch(Action{Type: ActionSelectionChange, Start: start, End: end})
}

// ResetSelection replaces the selection wholesale.
func (s *Store) ResetSelection(start, end ir.SelectionPoint, initialPosition *int) {
	s.dispatch(Action{
		Type:            ActionResetSelection,
		Start:           start,
		End:             end,
		InitialPosition: initialPosition,
	})
}

// SelectBlock selects a whole block. initialPosition tells the block where to
// put the caret (ir.CaretStart or ir.CaretEnd).
func (s *Store) SelectBlock(clientID string, initialPosition int) {
	s.dispatch(Action{Type: ActionSelectBlock, ClientID: clientID, InitialPosition: ir.Offset(initialPosition)})
}

// ClearSelectedBlock drops the selection.
func (s *Store) ClearSelectedBlock() {
	s.dispatch(Action{Type: ActionClearSelectedBlock})
}

// MultiSelect selects the run of siblings from start to end. Both blocks
// must share a parent list; otherwise nothing happens.
func (s *Store) MultiSelect(start, end string, initialPosition int) bool {
	startRoot, ok1 := s.BlockRootClientID(start)
	endRoot, ok2 := s.BlockRootClientID(end)
	if !ok1 || !ok2 || startRoot != endRoot {
		return false
	}
	s.dispatch(Action{
		Type:            ActionMultiSelect,
		Start:           ir.SelectionPoint{ClientID: start},
		End:             ir.SelectionPoint{ClientID: end},
		InitialPosition: ir.Offset(initialPosition),
	})
	return true
}

// SelectPreviousBlock selects the block before clientID with the caret at
// its end. With fallbackToParent, the parent is selected when clientID is
// the first child.
func (s *Store) SelectPreviousBlock(clientID string, fallbackToParent bool) bool {
	if prev := s.PreviousBlockClientID(clientID); prev != "" {
		s.SelectBlock(prev, ir.CaretEnd)
		return true
	}
	if fallbackToParent {
		if parent, ok := s.BlockRootClientID(clientID); ok && parent != "" {
			s.SelectBlock(parent, ir.CaretEnd)
			return true
		}
	}
	return false
}

// SelectNextBlock selects the block after clientID.
func (s *Store) SelectNextBlock(clientID string) bool {
	next := s.NextBlockClientID(clientID)
	if next == "" {
		return false
	}
	s.SelectBlock(next, ir.CaretStart)
	return true
}

// SelectionStart returns the start of the selection.
func (s *Store) SelectionStart() ir.SelectionPoint { return s.selection.start }

// SelectionEnd returns the end of the selection.
func (s *Store) SelectionEnd() ir.SelectionPoint { return s.selection.end }

// Selection returns both endpoints and the initial caret position.
func (s *Store) Selection() ir.Selection {
	return ir.Selection{
		Start:           s.selection.start,
		End:             s.selection.end,
		InitialPosition: cloneInt(s.initialPosition),
	}
}

// BlockSelectionStart returns the client ID at the start of the selection.
func (s *Store) BlockSelectionStart() string { return s.selection.start.ClientID }

// BlockSelectionEnd returns the client ID at the end of the selection.
func (s *Store) BlockSelectionEnd() string { return s.selection.end.ClientID }

// SelectedBlocksInitialCaretPosition returns where a newly selected block
// should put its caret, or nil.
func (s *Store) SelectedBlocksInitialCaretPosition() *int {
	return cloneInt(s.initialPosition)
}

// SelectedBlockClientID returns the single selected block, or "" when
// nothing or several blocks are selected.
func (s *Store) SelectedBlockClientID() string {
	start, end := s.selection.start.ClientID, s.selection.end.ClientID
	if start == "" || start != end {
		return ""
	}
	return start
}

// HasSelectedBlock reports whether exactly one block is selected.
func (s *Store) HasSelectedBlock() bool {
	return s.SelectedBlockClientID() != ""
}

// SelectedBlockClientIDs returns every selected block in document order.
func (s *Store) SelectedBlockClientIDs() []string {
	start, end := s.selection.start.ClientID, s.selection.end.ClientID
	if start == "" || end == "" {
		return nil
	}
	if start == end {
		return []string{start}
	}
	root, ok := s.BlockRootClientID(start)
	if !ok {
		return nil
	}
	order := s.blocks.order[root]
	i, j := slices.Index(order, start), slices.Index(order, end)
	if i < 0 || j < 0 {
		return nil
	}
	if i > j {
		i, j = j, i
	}
	return slices.Clone(order[i : j+1])
}

// SelectedBlockCount returns the number of selected blocks.
func (s *Store) SelectedBlockCount() int {
	return len(s.SelectedBlockClientIDs())
}

// MultiSelectedBlockClientIDs returns the selected blocks when more than one
// is selected.
func (s *Store) MultiSelectedBlockClientIDs() []string {
	ids := s.SelectedBlockClientIDs()
	if len(ids) < 2 {
		return nil
	}
	return ids
}

// HasMultiSelection reports whether the selection spans several blocks.
func (s *Store) HasMultiSelection() bool {
	start, end := s.selection.start.ClientID, s.selection.end.ClientID
	return start != "" && end != "" && start != end
}

// FirstMultiSelectedBlockClientID returns the first block of a multi
// selection in document order.
func (s *Store) FirstMultiSelectedBlockClientID() string {
	ids := s.MultiSelectedBlockClientIDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// LastMultiSelectedBlockClientID returns the last block of a multi selection
// in document order.
func (s *Store) LastMultiSelectedBlockClientID() string {
	ids := s.MultiSelectedBlockClientIDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}

// IsBlockSelected reports whether clientID is the single selected block.
func (s *Store) IsBlockSelected(clientID string) bool {
	return clientID != "" && s.SelectedBlockClientID() == clientID
}

// IsBlockMultiSelected reports whether clientID is part of a multi selection.
func (s *Store) IsBlockMultiSelected(clientID string) bool {
	return slices.Contains(s.MultiSelectedBlockClientIDs(), clientID)
}
