package editor

import (
	"slices"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/ir"
)

// Block returns the materialized block, or nil if clientID is unknown.
// The result is shared and must not be mutated; it is the same pointer on
// every call until the block or one of its descendants changes.
func (s *Store) Block(clientID string) *ir.Block {
	if !s.blocks.exists(clientID) {
		return nil
	}
	node, ok := s.blocks.tree[clientID]
	if !ok {
		s.violate(ErrCodeTreeMiss, clientID, "no tree node for live block")
		return nil
	}
	return node
}

// Blocks returns the materialized children of rootClientID ("" for the
// document). For a block with controlled inner blocks this is the controlled
// list, which its parent's tree does not include.
func (s *Store) Blocks(rootClientID string) []*ir.Block {
	return s.blocks.blocks(rootClientID)
}

// BlocksByClientID returns the blocks for ids, with nil for unknown ones.
func (s *Store) BlocksByClientID(clientIDs []string) []*ir.Block {
	out := make([]*ir.Block, len(clientIDs))
	for i, id := range clientIDs {
		out[i] = s.Block(id)
	}
	return out
}

// BlockName returns the block's type name, or "" if it is unknown.
func (s *Store) BlockName(clientID string) string {
	return s.blocks.byClientID[clientID].name
}

// IsBlockValid reports the block's validity flag.
func (s *Store) IsBlockValid(clientID string) bool {
	return s.blocks.byClientID[clientID].isValid
}

// BlockAttributes returns the block's attributes, or nil if it is unknown.
// The object is shared and must not be mutated.
func (s *Store) BlockAttributes(clientID string) ir.Object {
	return s.blocks.attributes[clientID]
}

// BlockOrder returns the child IDs of rootClientID.
func (s *Store) BlockOrder(rootClientID string) []string {
	return slices.Clone(s.blocks.order[rootClientID])
}

// BlockIndex returns the position of clientID among its siblings, or -1.
func (s *Store) BlockIndex(clientID string) int {
	parent, ok := s.blocks.parents[clientID]
	if !ok {
		return -1
	}
	return slices.Index(s.blocks.order[parent], clientID)
}

// BlockRootClientID returns the parent of clientID ("" for top-level
// blocks). ok is false when the block is unknown.
func (s *Store) BlockRootClientID(clientID string) (root string, ok bool) {
	root, ok = s.blocks.parents[clientID]
	return root, ok
}

// BlockParents returns the ancestors of clientID, outermost first, or
// nearest first when ascending is set. The document root is not included.
func (s *Store) BlockParents(clientID string, ascending bool) []string {
	var parents []string
	current, ok := s.blocks.parents[clientID]
	for ok && current != "" {
		parents = append(parents, current)
		current, ok = s.blocks.parents[current]
	}
	if !ascending {
		slices.Reverse(parents)
	}
	return parents
}

// BlockHierarchyRootClientID returns the top-level ancestor of clientID, or
// clientID itself when it is top-level.
func (s *Store) BlockHierarchyRootClientID(clientID string) string {
	parents := s.BlockParents(clientID, false)
	if len(parents) == 0 {
		return clientID
	}
	return parents[0]
}

// BlockCount returns the number of children of rootClientID.
func (s *Store) BlockCount(rootClientID string) int {
	return len(s.blocks.order[rootClientID])
}

// GlobalBlockCount counts blocks of the named type anywhere in the store,
// or all blocks when name is "".
func (s *Store) GlobalBlockCount(name string) int {
	if name == "" {
		return len(s.blocks.byClientID)
	}
	n := 0
	for _, rec := range s.blocks.byClientID {
		if rec.name == name {
			n++
		}
	}
	return n
}

// ClientIDsOfDescendants returns all descendants of clientIDs, depth first.
func (s *Store) ClientIDsOfDescendants(clientIDs []string) []string {
	var out []string
	var walk func(id string)
	walk = func(id string) {
		for _, child := range s.blocks.order[id] {
			out = append(out, child)
			walk(child)
		}
	}
	for _, id := range clientIDs {
		walk(id)
	}
	return out
}

// ClientIDsWithDescendants returns every top-level block and its
// descendants, depth first.
func (s *Store) ClientIDsWithDescendants() []string {
	var out []string
	for _, id := range s.blocks.order[""] {
		out = append(out, id)
		out = append(out, s.ClientIDsOfDescendants([]string{id})...)
	}
	return out
}

// PreviousBlockClientID returns the sibling before clientID, or "".
func (s *Store) PreviousBlockClientID(clientID string) string {
	return s.adjacentBlockClientID(clientID, -1)
}

// NextBlockClientID returns the sibling after clientID, or "".
func (s *Store) NextBlockClientID(clientID string) string {
	return s.adjacentBlockClientID(clientID, 1)
}

func (s *Store) adjacentBlockClientID(clientID string, delta int) string {
	parent, ok := s.blocks.parents[clientID]
	if !ok {
		return ""
	}
	order := s.blocks.order[parent]
	i := slices.Index(order, clientID) + delta
	if i < 0 || i >= len(order) {
		return ""
	}
	return order[i]
}

// AreInnerBlocksControlled reports whether clientID's children belong to a
// separately synchronized entity.
func (s *Store) AreInnerBlocksControlled(clientID string) bool {
	return s.blocks.controlled[clientID]
}

// Settings returns the editor settings.
func (s *Store) Settings() Settings {
	return s.settings
}

// Template returns the document template, or nil.
func (s *Store) Template() blocks.Template {
	return s.settings.Template
}

// TemplateLock returns the lock on rootClientID's list. The document root
// uses the editor settings; blocks use their list settings.
func (s *Store) TemplateLock(rootClientID string) TemplateLock {
	if rootClientID == "" {
		return s.settings.TemplateLock
	}
	return s.listSettings[rootClientID].TemplateLock
}

// BlockListSettings returns the list settings registered for clientID.
func (s *Store) BlockListSettings(clientID string) (BlockListSettings, bool) {
	ls, ok := s.listSettings[clientID]
	return ls, ok
}

// IsValidTemplate reports whether the document matched its template at the
// last reset.
func (s *Store) IsValidTemplate() bool {
	return s.templateValid
}

// EditorMode returns the active editor mode.
func (s *Store) EditorMode() EditorMode {
	return s.editorMode
}

// CheckInvariants scans the whole store and returns every broken invariant
// as a multierror of *InvariantError. It is meant for tests.
func (s *Store) CheckInvariants() error {
	var result *multierror.Error
	st := s.blocks
	add := func(code InvariantCode, id, msg string) {
		result = multierror.Append(result, &InvariantError{Code: code, Message: msg, ClientID: id})
	}

	parents := make([]string, 0, len(st.order))
	for parent := range st.order {
		parents = append(parents, parent)
	}
	sort.Strings(parents)

	for _, parent := range parents {
		if !st.isList(parent) {
			add(ErrCodeDanglingReference, parent, "order entry for unknown block")
		}
		seen := make(map[string]bool, len(st.order[parent]))
		for _, child := range st.order[parent] {
			if seen[child] {
				add(ErrCodeDuplicateChild, child, "listed more than once under "+strconv.Quote(parent))
				continue
			}
			seen[child] = true
			if !st.exists(child) {
				add(ErrCodeDanglingReference, child, "order list of "+strconv.Quote(parent)+" names unknown block")
				continue
			}
			p, ok := st.parents[child]
			switch {
			case !ok:
				add(ErrCodeMissingParent, child, "child has no parent entry")
			case p != parent:
				add(ErrCodeParentMismatch, child, "parent entry is "+strconv.Quote(p)+" but listed under "+strconv.Quote(parent))
			}
			if _, ok := st.tree[child]; !ok {
				add(ErrCodeTreeMiss, child, "no tree node for live block")
			}
		}
	}

	ids := make([]string, 0, len(st.parents))
	for id := range st.parents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !st.exists(id) {
			add(ErrCodeDanglingReference, id, "parent entry for unknown block")
		}
		if !st.isList(st.parents[id]) {
			add(ErrCodeDanglingReference, id, "parent "+strconv.Quote(st.parents[id])+" is unknown")
		}
	}
	return result.ErrorOrNil()
}
