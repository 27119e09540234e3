package editor

import (
	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/ir"
)

// changed runs fn and reports whether observable state moved.
func (s *Store) changed(fn func()) bool {
	before := s.version
	fn()
	return s.version != before
}

func nonNil(list []*ir.Block) []*ir.Block {
	if list == nil {
		return []*ir.Block{}
	}
	return list
}

// ResetBlocks replaces the whole document, then recomputes template
// validity.
func (s *Store) ResetBlocks(list []*ir.Block) {
	s.dispatch(Action{Type: ActionResetBlocks, Blocks: nonNil(list)})
	s.validateBlocksToTemplate(list)
}

// validateBlocksToTemplate updates template validity when it changed. Only
// an "all" lock makes the template binding; other locks treat it as a
// starting point.
func (s *Store) validateBlocksToTemplate(list []*ir.Block) bool {
	template := s.settings.Template
	valid := template == nil ||
		s.settings.TemplateLock != TemplateLockAll ||
		s.templates.DoBlocksMatchTemplate(list, template)
	if valid != s.templateValid {
		s.SetTemplateValidity(valid)
	}
	return valid
}

// SetTemplateValidity records whether the document matches its template.
func (s *Store) SetTemplateValidity(valid bool) {
	s.dispatch(Action{Type: ActionSetTemplateValidity, IsValid: valid})
}

// SynchronizeTemplate reshapes the document to follow the template and marks
// it valid.
func (s *Store) SynchronizeTemplate() {
	synced := s.templates.SynchronizeBlocksWithTemplate(s.Blocks(""), s.settings.Template)
	s.ResetBlocks(ir.CopyTree(synced))
}

// ReceiveBlocks appends blocks to the document without the change being
// forwarded to the document owner.
func (s *Store) ReceiveBlocks(list []*ir.Block) bool {
	return s.changed(func() {
		s.dispatch(Action{Type: ActionReceiveBlocks, Blocks: nonNil(list)})
	})
}

// InsertBlocks inserts blocks into rootClientID's list at index (AppendIndex
// for the end). Blocks whose type may not go there, or whose client IDs are
// already taken, are skipped. With updateSelection the first inserted block
// is selected.
func (s *Store) InsertBlocks(list []*ir.Block, index int, rootClientID string, updateSelection bool, initialPosition int) bool {
	allowed := make([]*ir.Block, 0, len(list))
	for _, b := range list {
		if !s.CanInsertBlockType(b.Name, rootClientID) {
			s.logger.Debug("insert rejected by policy", "name", b.Name, "root_client_id", rootClientID)
			continue
		}
		if s.anyExists([]*ir.Block{b}) {
			s.logger.Debug("insert rejected: client id in use", "client_id", b.ClientID)
			continue
		}
		allowed = append(allowed, b)
	}
	if len(allowed) == 0 {
		return false
	}

	a := Action{
		Type:            ActionInsertBlocks,
		Blocks:          allowed,
		Index:           index,
		RootClientID:    rootClientID,
		UpdateSelection: updateSelection,
	}
	if updateSelection {
		a.InitialPosition = ir.Offset(initialPosition)
	}
	return s.changed(func() { s.dispatch(a) })
}

// InsertBlock inserts one block and selects it.
func (s *Store) InsertBlock(block *ir.Block, index int, rootClientID string, updateSelection bool) bool {
	return s.InsertBlocks([]*ir.Block{block}, index, rootClientID, updateSelection, ir.CaretStart)
}

// InsertDefaultBlock inserts a new block of the registry's default type.
func (s *Store) InsertDefaultBlock(attrs ir.Object, rootClientID string, index int) bool {
	name := s.registry.DefaultBlockName()
	if name == "" {
		return false
	}
	return s.InsertBlock(s.registry.CreateBlock(name, attrs, nil), index, rootClientID, true)
}

func (s *Store) anyExists(list []*ir.Block) bool {
	found := false
	ir.Walk(list, func(b *ir.Block) bool {
		if s.blocks.exists(b.ClientID) {
			found = true
		}
		return !found
	})
	return found
}

// replacementCollision finds a client ID in list that would be listed twice
// after replacing clientIDs: one that is live outside the replaced subtrees,
// or one that list repeats.
func (s *Store) replacementCollision(clientIDs []string, list []*ir.Block) (string, bool) {
	replaced := make(map[string]bool)
	for _, id := range s.blocks.withDescendants(clientIDs, nil) {
		replaced[id] = true
	}
	seen := make(map[string]bool)
	var hit string
	ir.Walk(list, func(b *ir.Block) bool {
		if hit != "" {
			return false
		}
		if seen[b.ClientID] || (s.blocks.exists(b.ClientID) && !replaced[b.ClientID]) {
			hit = b.ClientID
			return false
		}
		seen[b.ClientID] = true
		return true
	})
	return hit, hit != ""
}

// ensureDefaultBlock keeps an empty document from having nowhere to type,
// unless the host provides its own appender.
func (s *Store) ensureDefaultBlock() {
	if s.BlockCount("") > 0 || s.settings.HasCustomAppender {
		return
	}
	s.InsertDefaultBlock(nil, "", AppendIndex)
}

// ReplaceBlocks swaps sibling blocks for new ones. The replacement is
// rejected when any new block may not be inserted into the siblings' list.
// indexToSelect picks the block to select when the selection was on a
// replaced block; nil selects the last one.
func (s *Store) ReplaceBlocks(clientIDs []string, list []*ir.Block, indexToSelect *int, initialPosition int) bool {
	if len(clientIDs) == 0 {
		return false
	}
	root, ok := s.BlockRootClientID(clientIDs[0])
	if !ok {
		return false
	}
	for _, b := range list {
		if !s.CanInsertBlockType(b.Name, root) {
			s.logger.Debug("replace rejected by policy", "name", b.Name, "root_client_id", root)
			return false
		}
	}

	if id, ok := s.replacementCollision(clientIDs, list); ok {
		s.logger.Debug("replace rejected: client id in use", "client_id", id)
		return false
	}

	return s.changed(func() {
		s.Batch(func() {
			s.dispatch(Action{
				Type:            ActionReplaceBlocks,
				ClientIDs:       clientIDs,
				Blocks:          nonNil(list),
				IndexToSelect:   indexToSelect,
				InitialPosition: ir.Offset(initialPosition),
			})
			s.ensureDefaultBlock()
		})
	})
}

// ReplaceBlock swaps one block for another.
func (s *Store) ReplaceBlock(clientID string, block *ir.Block) bool {
	return s.ReplaceBlocks([]string{clientID}, []*ir.Block{block}, nil, ir.CaretStart)
}

// ReplaceInnerBlocks swaps the children of rootClientID. It performs no
// policy checks: it is how owners of a block list put content into it.
func (s *Store) ReplaceInnerBlocks(rootClientID string, list []*ir.Block, updateSelection bool, initialPosition int) bool {
	a := Action{
		Type:            ActionReplaceInnerBlocks,
		RootClientID:    rootClientID,
		Blocks:          nonNil(list),
		UpdateSelection: updateSelection,
	}
	if updateSelection {
		a.InitialPosition = ir.Offset(initialPosition)
	}
	return s.changed(func() { s.dispatch(a) })
}

// RemoveBlocks removes blocks and their descendants. With selectPrevious the
// block before the first removed one (or its parent) is selected first.
func (s *Store) RemoveBlocks(clientIDs []string, selectPrevious bool) bool {
	if len(clientIDs) == 0 {
		return false
	}
	if !s.CanRemoveBlocks(clientIDs) {
		s.logger.Debug("remove rejected by policy", "client_ids", clientIDs)
		return false
	}
	return s.changed(func() {
		if selectPrevious {
			s.SelectPreviousBlock(clientIDs[0], true)
		}
		s.Batch(func() {
			s.dispatch(Action{Type: ActionRemoveBlocks, ClientIDs: clientIDs})
			s.ensureDefaultBlock()
		})
	})
}

// RemoveBlock removes one block.
func (s *Store) RemoveBlock(clientID string, selectPrevious bool) bool {
	return s.RemoveBlocks([]string{clientID}, selectPrevious)
}

// MoveBlocksToPosition moves sibling blocks to index in another (or the
// same) list. Moving between lists also needs remove permission at the
// source and insert permission at the target.
func (s *Store) MoveBlocksToPosition(clientIDs []string, fromRootClientID, toRootClientID string, index int) bool {
	if !s.CanMoveBlocks(clientIDs) {
		return false
	}
	if fromRootClientID != toRootClientID {
		if !s.CanRemoveBlocks(clientIDs) || !s.CanInsertBlocks(clientIDs, toRootClientID) {
			return false
		}
	}
	return s.changed(func() {
		s.dispatch(Action{
			Type:             ActionMoveBlocksToPosition,
			ClientIDs:        clientIDs,
			FromRootClientID: fromRootClientID,
			ToRootClientID:   toRootClientID,
			Index:            index,
		})
	})
}

// MoveBlockToPosition moves one block.
func (s *Store) MoveBlockToPosition(clientID, fromRootClientID, toRootClientID string, index int) bool {
	return s.MoveBlocksToPosition([]string{clientID}, fromRootClientID, toRootClientID, index)
}

// MoveBlocksUp shifts a run of siblings one position earlier.
func (s *Store) MoveBlocksUp(clientIDs []string, rootClientID string) bool {
	return s.moveBlocksBy(ActionMoveBlocksUp, clientIDs, rootClientID)
}

// MoveBlocksDown shifts a run of siblings one position later.
func (s *Store) MoveBlocksDown(clientIDs []string, rootClientID string) bool {
	return s.moveBlocksBy(ActionMoveBlocksDown, clientIDs, rootClientID)
}

func (s *Store) moveBlocksBy(t ActionType, clientIDs []string, rootClientID string) bool {
	if len(clientIDs) == 0 || !s.CanMoveBlocks(clientIDs) {
		return false
	}
	return s.changed(func() {
		s.dispatch(Action{Type: t, ClientIDs: clientIDs, RootClientID: rootClientID})
	})
}

// UpdateBlock changes a block's type name, validity, or attributes directly,
// without a transform.
func (s *Store) UpdateBlock(clientID string, update BlockUpdate) bool {
	return s.changed(func() {
		s.dispatch(Action{Type: ActionUpdateBlock, ClientID: clientID, Update: update})
	})
}

// UpdateBlockAttributes merges attrs into each listed block. Consecutive
// updates of the same keys on the same blocks coalesce into one persistent
// change.
func (s *Store) UpdateBlockAttributes(clientIDs []string, attrs ir.Object) bool {
	return s.changed(func() {
		s.dispatch(Action{Type: ActionUpdateBlockAttributes, ClientIDs: clientIDs, Attributes: attrs})
	})
}

// UpdateBlockAttributesByID merges a separate patch into each listed block.
func (s *Store) UpdateBlockAttributesByID(clientIDs []string, attrs map[string]ir.Object) bool {
	return s.changed(func() {
		s.dispatch(Action{
			Type:           ActionUpdateBlockAttributes,
			ClientIDs:      clientIDs,
			UniqueByBlock:  true,
			AttributesByID: attrs,
		})
	})
}

// BlockLock is the value of the lock attribute.
type BlockLock struct {
	Move   bool
	Remove bool
	Edit   bool
}

// UpdateBlockLock sets a block's lock attribute, if its type can be locked.
func (s *Store) UpdateBlockLock(clientID string, lock BlockLock) bool {
	if !s.CanLockBlockType(s.BlockName(clientID)) {
		return false
	}
	return s.UpdateBlockAttributes([]string{clientID}, ir.Object{
		blocks.LockAttribute: ir.Object{
			"move":   ir.Bool(lock.Move),
			"remove": ir.Bool(lock.Remove),
			"edit":   ir.Bool(lock.Edit),
		},
	})
}

// DuplicateBlocks inserts copies of sibling blocks after the last of them
// and returns the new client IDs. Types that do not support multiple
// instances cannot be duplicated.
func (s *Store) DuplicateBlocks(clientIDs []string, updateSelection bool) []string {
	if len(clientIDs) == 0 {
		return nil
	}
	originals := s.BlocksByClientID(clientIDs)
	for _, b := range originals {
		if b == nil {
			return nil
		}
		if !s.registry.HasBlockSupport(b.Name, func(sp blocks.Supports) bool { return sp.Multiple }, true) {
			return nil
		}
	}

	root, _ := s.BlockRootClientID(clientIDs[0])
	index := s.BlockIndex(clientIDs[len(clientIDs)-1]) + 1
	clones := make([]*ir.Block, len(originals))
	for i, b := range originals {
		clones[i] = s.registry.CloneBlock(b, nil, nil)
	}

	if !s.InsertBlocks(clones, index, root, updateSelection, ir.CaretStart) {
		return nil
	}
	if len(clones) > 1 && updateSelection {
		s.MultiSelect(clones[0].ClientID, clones[len(clones)-1].ClientID, ir.CaretStart)
	}
	return ir.ClientIDs(clones)
}

// InsertBeforeBlock inserts a default block before clientID.
func (s *Store) InsertBeforeBlock(clientID string) bool {
	return s.insertDefaultBeside(clientID, 0)
}

// InsertAfterBlock inserts a default block after clientID.
func (s *Store) InsertAfterBlock(clientID string) bool {
	return s.insertDefaultBeside(clientID, 1)
}

func (s *Store) insertDefaultBeside(clientID string, offset int) bool {
	root, ok := s.BlockRootClientID(clientID)
	if !ok || s.TemplateLock(root) != TemplateLockNone {
		return false
	}
	return s.InsertDefaultBlock(nil, root, s.BlockIndex(clientID)+offset)
}

// SetHasControlledInnerBlocks marks clientID's children as owned by another
// synchronized entity. Its current children are removed either way.
func (s *Store) SetHasControlledInnerBlocks(clientID string, controlled bool) bool {
	return s.changed(func() {
		s.dispatch(Action{
			Type:                     ActionSetHasControlledInnerBlocks,
			ClientID:                 clientID,
			HasControlledInnerBlocks: controlled,
		})
	})
}

// UpdateBlockListSettings registers (or with nil, clears) the list settings
// of clientID's inner block list.
func (s *Store) UpdateBlockListSettings(clientID string, settings *BlockListSettings) bool {
	return s.changed(func() {
		s.dispatch(Action{Type: ActionUpdateBlockListSettings, ClientID: clientID, BlockListSettings: settings})
	})
}

// RegisterInnerBlocks gives clientID an inner block list whose allowed
// children come from its type's AllowedBlocks. A block must have a list
// before anything can be inserted into it.
func (s *Store) RegisterInnerBlocks(clientID string, lock TemplateLock) bool {
	bt, ok := s.registry.BlockType(s.BlockName(clientID))
	if !ok {
		return false
	}
	ls := BlockListSettings{TemplateLock: lock}
	if bt.AllowedBlocks != nil {
		ls.AllowedBlocks = AllowOnly(bt.AllowedBlocks...)
	}
	return s.UpdateBlockListSettings(clientID, &ls)
}

// UpdateSettings replaces the editor settings.
func (s *Store) UpdateSettings(settings Settings) {
	s.dispatch(Action{Type: ActionUpdateSettings, Settings: &settings})
}
