package editor

import (
	"slices"

	"github.com/roach88/blocksync/internal/ir"
)

// reduceBlocks applies block actions to the normalized state and reports
// whether anything changed.
func (s *Store) reduceBlocks(a *Action) bool {
	st := s.blocks
	structural := true

	switch a.Type {
	case ActionResetBlocks:
		st.reset(a.Blocks)

	case ActionReceiveBlocks:
		if !st.receive(a.Blocks) {
			return false
		}

	case ActionInsertBlocks:
		if len(a.Blocks) == 0 || !st.isList(a.RootClientID) {
			return false
		}
		st.insert(a.Blocks, a.RootClientID, a.Index)

	case ActionReplaceBlocks:
		ids := s.existing(a.ClientIDs)
		if len(ids) == 0 {
			return false
		}
		st.replace(ids, a.Blocks)

	case ActionReplaceInnerBlocks:
		if !st.isList(a.RootClientID) {
			return false
		}
		st.replaceInner(a.RootClientID, a.Blocks)

	case ActionRemoveBlocks:
		ids := s.existing(a.ClientIDs)
		if len(ids) == 0 {
			return false
		}
		st.remove(ids, a.keepControlled)

	case ActionMoveBlocksToPosition:
		if !s.canApplyMove(a) {
			return false
		}
		st.moveToPosition(a.ClientIDs, a.FromRootClientID, a.ToRootClientID, a.Index)

	case ActionMoveBlocksUp, ActionMoveBlocksDown:
		delta := -1
		if a.Type == ActionMoveBlocksDown {
			delta = 1
		}
		if len(a.ClientIDs) == 0 || !st.moveBy(a.ClientIDs, a.RootClientID, delta) {
			return false
		}

	case ActionUpdateBlock:
		if !s.updateBlock(a.ClientID, a.Update) {
			return false
		}
		structural = a.Update.Name != nil

	case ActionUpdateBlockAttributes:
		if !s.updateAttributes(a) {
			return false
		}
		structural = false

	case ActionSetHasControlledInnerBlocks:
		if !st.exists(a.ClientID) {
			return false
		}
		st.setControlled(a.ClientID, a.HasControlledInnerBlocks)

	default:
		return false
	}

	if structural {
		s.stamps.structure++
	}
	return true
}

func (s *Store) existing(clientIDs []string) []string {
	out := make([]string, 0, len(clientIDs))
	for _, id := range clientIDs {
		if s.blocks.exists(id) {
			out = append(out, id)
		}
	}
	return out
}

// canApplyMove checks the structural preconditions of a move: every block
// sits in the source list, contiguously, and the target list exists.
func (s *Store) canApplyMove(a *Action) bool {
	st := s.blocks
	if len(a.ClientIDs) == 0 || !st.isList(a.FromRootClientID) || !st.isList(a.ToRootClientID) {
		return false
	}
	sub := st.order[a.FromRootClientID]
	first := slices.Index(sub, a.ClientIDs[0])
	if first < 0 || first+len(a.ClientIDs) > len(sub) {
		return false
	}
	if a.FromRootClientID == a.ToRootClientID {
		return slices.Equal(sub[first:first+len(a.ClientIDs)], a.ClientIDs)
	}
	for _, id := range a.ClientIDs {
		if st.parents[id] != a.FromRootClientID {
			return false
		}
		// A block cannot move into its own subtree.
		if id == a.ToRootClientID || slices.Contains(s.BlockParents(a.ToRootClientID, false), id) {
			return false
		}
	}
	return true
}

func (s *Store) updateBlock(clientID string, update BlockUpdate) bool {
	st := s.blocks
	rec, ok := st.byClientID[clientID]
	if !ok {
		return false
	}

	changed := false
	if update.Name != nil && *update.Name != rec.name {
		rec.name = *update.Name
		changed = true
	}
	if update.IsValid != nil && *update.IsValid != rec.isValid {
		rec.isValid = *update.IsValid
		changed = true
	}
	if changed {
		st.byClientID[clientID] = rec
	}
	if len(update.Attributes) > 0 {
		st.attributes[clientID] = st.attributes[clientID].Merge(update.Attributes)
		changed = true
	}
	if !changed {
		return false
	}
	st.republish([]string{clientID})
	return true
}

// updateAttributes shallow-merges attribute patches. Values equal to the
// current ones are not a change, and a block whose attributes did not change
// keeps its attribute object and tree node.
func (s *Store) updateAttributes(a *Action) bool {
	st := s.blocks
	var updated []string
	for _, id := range a.ClientIDs {
		current, ok := st.attributes[id]
		if !ok {
			continue
		}
		patch := a.Attributes
		if a.UniqueByBlock {
			patch = a.AttributesByID[id]
		}

		var changes ir.Object
		for key, value := range patch {
			if old, has := current[key]; has && ir.Equal(old, value) {
				continue
			}
			if changes == nil {
				changes = make(ir.Object, len(patch))
			}
			changes[key] = ir.CloneValue(value)
		}
		if changes == nil {
			continue
		}
		st.attributes[id] = current.Merge(changes)
		updated = append(updated, id)
	}
	if len(updated) == 0 {
		return false
	}
	st.republish(updated)
	return true
}

func (s *Store) reduceInitialPosition(a *Action) {
	var next *int
	switch a.Type {
	case ActionReplaceBlocks:
		if a.InitialPosition == nil {
			return
		}
		next = a.InitialPosition
	case ActionMultiSelect, ActionSelectBlock, ActionResetSelection, ActionInsertBlocks, ActionReplaceInnerBlocks:
		next = a.InitialPosition
	default:
		return
	}
	if intPtrEqual(s.initialPosition, next) {
		return
	}
	if next != nil {
		v := *next
		next = &v
	}
	s.initialPosition = next
	s.touch()
}

func (s *Store) reduceSettings(a *Action) {
	switch a.Type {
	case ActionUpdateSettings:
		if a.Settings == nil {
			return
		}
		s.settings = *a.Settings
		s.stamps.settings++
		s.touch()

	case ActionUpdateBlockListSettings:
		current, has := s.listSettings[a.ClientID]
		if a.BlockListSettings == nil {
			if !has {
				return
			}
			delete(s.listSettings, a.ClientID)
		} else {
			if has && current.equal(*a.BlockListSettings) {
				return
			}
			s.listSettings[a.ClientID] = *a.BlockListSettings
		}
		s.stamps.listSettings++
		s.touch()

	case ActionSetTemplateValidity:
		if s.templateValid != a.IsValid {
			s.templateValid = a.IsValid
			s.touch()
		}

	case ActionRemoveBlocks, ActionReplaceBlocks, ActionReplaceInnerBlocks,
		ActionResetBlocks, ActionSetHasControlledInnerBlocks:
		s.pruneListSettings()
	}
}

// pruneListSettings drops list settings of blocks that no longer exist.
func (s *Store) pruneListSettings() {
	pruned := false
	for id := range s.listSettings {
		if !s.blocks.exists(id) {
			delete(s.listSettings, id)
			pruned = true
		}
	}
	if pruned {
		s.stamps.listSettings++
		s.touch()
	}
}

func (s *Store) reduceEditingModes(a *Action) {
	switch a.Type {
	case ActionSetBlockEditingMode:
		if s.editingModes[a.ClientID] == a.EditingMode {
			return
		}
		s.editingModes[a.ClientID] = a.EditingMode

	case ActionUnsetBlockEditingMode:
		if _, ok := s.editingModes[a.ClientID]; !ok {
			return
		}
		delete(s.editingModes, a.ClientID)

	case ActionSetEditorMode:
		if s.editorMode == a.EditorMode {
			return
		}
		s.editorMode = a.EditorMode

	case ActionRemoveBlocks, ActionReplaceBlocks, ActionReplaceInnerBlocks,
		ActionResetBlocks, ActionSetHasControlledInnerBlocks:
		pruned := false
		for id := range s.editingModes {
			if id != "" && !s.blocks.exists(id) {
				delete(s.editingModes, id)
				pruned = true
			}
		}
		if !pruned {
			return
		}

	default:
		return
	}
	s.stamps.modes++
	s.touch()
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
