package editor

import (
	"slices"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/ir"
)

// insertKey memoizes CanInsertBlockType against the versions of every input
// it reads.
type insertKey struct {
	name, root   string
	registry     uint64
	structure    uint64
	settings     uint64
	listSettings uint64
	modes        uint64
}

// CanInsertBlockType reports whether a block of type name may be inserted
// into rootClientID's list ("" for the document).
//
// The checks, in order: the type is registered; the editor allow list
// admits it; the target list has no template lock; the target is not
// disabled; a block target has list settings; and the parent, child, and
// ancestor constraints agree. A parent's allowed-children list and the
// child's allowed-parents list each grant on their own; an unset list
// expresses no opinion.
func (s *Store) CanInsertBlockType(name, rootClientID string) bool {
	key := insertKey{
		name:         name,
		root:         rootClientID,
		registry:     s.registry.Generation(),
		structure:    s.stamps.structure,
		settings:     s.stamps.settings,
		listSettings: s.stamps.listSettings,
		modes:        s.stamps.modes,
	}
	if allowed, ok := s.insertMemo.Get(key); ok {
		return allowed
	}
	allowed := s.canInsertBlockType(name, rootClientID)
	s.insertMemo.Add(key, allowed)
	return allowed
}

func (s *Store) canInsertBlockType(name, rootClientID string) bool {
	bt, ok := s.registry.BlockType(name)
	if !ok {
		return false
	}
	if allowed, _ := s.settings.AllowedBlockTypes.check(name, true); !allowed {
		return false
	}
	if s.TemplateLock(rootClientID) != TemplateLockNone {
		return false
	}
	if s.BlockEditingMode(rootClientID) == EditingModeDisabled {
		return false
	}

	listSettings, hasListSettings := s.listSettings[rootClientID]
	if rootClientID != "" && !hasListSettings {
		return false
	}

	parentAllows, parentSet := listSettings.AllowedBlocks.check(name, false)

	parentName := s.BlockName(rootClientID)
	childAllows, childSet := false, bt.Parent != nil
	if childSet {
		childAllows = slices.Contains(bt.Parent, parentName)
	}

	ancestorOK := true
	if bt.Ancestor != nil {
		ancestorOK = false
		ancestors := append([]string{rootClientID}, s.BlockParents(rootClientID, false)...)
		for _, id := range ancestors {
			if slices.Contains(bt.Ancestor, s.BlockName(id)) {
				ancestorOK = true
				break
			}
		}
	}

	return ancestorOK && ((!parentSet && !childSet) || parentAllows || childAllows)
}

// CanInsertBlocks reports whether every listed block could be inserted into
// rootClientID.
func (s *Store) CanInsertBlocks(clientIDs []string, rootClientID string) bool {
	for _, id := range clientIDs {
		if !s.CanInsertBlockType(s.BlockName(id), rootClientID) {
			return false
		}
	}
	return true
}

// lockFlag reads one flag of the lock attribute. set is false when the block
// does not lock or unlock that operation explicitly.
func lockFlag(attrs ir.Object, flag string) (locked, set bool) {
	lock, ok := attrs[blocks.LockAttribute].(ir.Object)
	if !ok {
		return false, false
	}
	v, ok := lock[flag].(ir.Bool)
	if !ok {
		return false, false
	}
	return bool(v), true
}

// CanRemoveBlock reports whether clientID may be removed from its list.
// An explicit lock attribute wins over the list's template lock.
func (s *Store) CanRemoveBlock(clientID string) bool {
	attrs, ok := s.blocks.attributes[clientID]
	if !ok {
		return true
	}
	if locked, set := lockFlag(attrs, "remove"); set {
		return !locked
	}
	root := s.blocks.parents[clientID]
	if s.TemplateLock(root) != TemplateLockNone {
		return false
	}
	return s.BlockEditingMode(root) != EditingModeDisabled
}

// CanRemoveBlocks reports whether every listed block may be removed.
func (s *Store) CanRemoveBlocks(clientIDs []string) bool {
	for _, id := range clientIDs {
		if !s.CanRemoveBlock(id) {
			return false
		}
	}
	return true
}

// CanMoveBlock reports whether clientID may be moved. Only the "all"
// template lock forbids moving.
func (s *Store) CanMoveBlock(clientID string) bool {
	attrs, ok := s.blocks.attributes[clientID]
	if !ok {
		return true
	}
	if locked, set := lockFlag(attrs, "move"); set {
		return !locked
	}
	root := s.blocks.parents[clientID]
	if s.TemplateLock(root) == TemplateLockAll {
		return false
	}
	return s.BlockEditingMode(root) != EditingModeDisabled
}

// CanMoveBlocks reports whether every listed block may be moved.
func (s *Store) CanMoveBlocks(clientIDs []string) bool {
	for _, id := range clientIDs {
		if !s.CanMoveBlock(id) {
			return false
		}
	}
	return true
}

// CanEditBlock reports whether clientID's attributes may be edited.
func (s *Store) CanEditBlock(clientID string) bool {
	attrs, ok := s.blocks.attributes[clientID]
	if !ok {
		return true
	}
	locked, _ := lockFlag(attrs, "edit")
	return !locked
}

// CanLockBlockType reports whether users may lock blocks of type name.
func (s *Store) CanLockBlockType(name string) bool {
	if !s.registry.HasBlockSupport(name, func(sp blocks.Supports) bool { return sp.Lock }, true) {
		return false
	}
	return s.settings.CanLockBlocks
}
