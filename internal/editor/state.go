package editor

import (
	"slices"

	"github.com/roach88/blocksync/internal/ir"
)

// controlledPrefix keys the tree node holding a controlled block's children.
const controlledPrefix = "controlled||"

func controlledKey(clientID string) string {
	return controlledPrefix + clientID
}

// emptyBlocks is returned for lists with no tree node, so repeated reads of
// an empty list are the same list.
var emptyBlocks = []*ir.Block{}

type blockRecord struct {
	name    string
	isValid bool
}

// blocksState is the normalized block document. Maps are mutated in place by
// the reducer; tree nodes are replaced, never mutated, once published.
type blocksState struct {
	byClientID map[string]blockRecord
	attributes map[string]ir.Object
	order      map[string][]string
	parents    map[string]string
	controlled map[string]bool
	tree       map[string]*ir.Block

	// violate reports a broken invariant found while patching the tree.
	violate func(code InvariantCode, clientID, format string, args ...any)
}

func newBlocksState(violate func(InvariantCode, string, string, ...any)) *blocksState {
	st := &blocksState{violate: violate}
	st.clear()
	return st
}

func (st *blocksState) clear() {
	st.byClientID = make(map[string]blockRecord)
	st.attributes = make(map[string]ir.Object)
	st.order = map[string][]string{"": {}}
	st.parents = make(map[string]string)
	st.controlled = make(map[string]bool)
	st.tree = map[string]*ir.Block{"": {InnerBlocks: emptyBlocks}}
}

func (st *blocksState) exists(clientID string) bool {
	_, ok := st.byClientID[clientID]
	return ok
}

// isList reports whether clientID can hold children: the root or a live block.
func (st *blocksState) isList(clientID string) bool {
	return clientID == "" || st.exists(clientID)
}

// ingest records blocks and all their descendants under parent. Attribute
// objects are deep-copied so the caller's blocks stay independent of the
// store.
func (st *blocksState) ingest(blocks []*ir.Block, parent string) {
	for _, b := range blocks {
		st.byClientID[b.ClientID] = blockRecord{name: b.Name, isValid: b.IsValid}
		st.attributes[b.ClientID] = b.Attributes.Clone()
		st.parents[b.ClientID] = parent
		st.order[b.ClientID] = ir.ClientIDs(b.InnerBlocks)
		st.ingest(b.InnerBlocks, b.ClientID)
	}
}

// buildTree creates fresh nodes for blocks and their descendants, shaped
// like the given blocks.
func (st *blocksState) buildTree(blocks []*ir.Block) {
	var flat []*ir.Block
	ir.Walk(blocks, func(b *ir.Block) bool {
		flat = append(flat, b)
		return true
	})

	// Create every node before linking so children resolve in any order.
	for _, b := range flat {
		rec := st.byClientID[b.ClientID]
		st.tree[b.ClientID] = &ir.Block{
			ClientID:   b.ClientID,
			Name:       rec.name,
			IsValid:    rec.isValid,
			Attributes: st.attributes[b.ClientID],
		}
	}
	for _, b := range flat {
		node := st.tree[b.ClientID]
		node.InnerBlocks = make([]*ir.Block, len(b.InnerBlocks))
		for i, child := range b.InnerBlocks {
			node.InnerBlocks[i] = st.tree[child.ClientID]
		}
	}
}

// patchAncestors republishes the tree nodes above the given blocks.
//
// With self set, the walk starts at each given ID (its children changed);
// otherwise it starts at the ID's parent (the block itself changed). The walk
// stops at the first block with controlled inner blocks, whose children are
// published under its controlled key instead.
func (st *blocksState) patchAncestors(clientIDs []string, self bool) {
	var uncontrolled []string
	seen := make(map[string]bool)
	controlledParents := make(map[string]bool)

	for _, id := range clientIDs {
		current, ok := id, true
		if !self {
			current, ok = st.parents[id]
		}
		for ok {
			if st.controlled[current] {
				controlledParents[current] = true
				break
			}
			if seen[current] {
				break
			}
			seen[current] = true
			uncontrolled = append(uncontrolled, current)
			current, ok = st.parents[current]
		}
	}

	// Copy first, then link, so a parent always points at its child's copy.
	for _, id := range uncontrolled {
		old, ok := st.tree[id]
		if !ok {
			st.violate(ErrCodeTreeMiss, id, "no tree node for live block")
			old = &ir.Block{ClientID: id}
		}
		node := *old
		st.tree[id] = &node
	}
	for _, id := range uncontrolled {
		st.tree[id].InnerBlocks = st.childNodes(id)
	}
	for id := range controlledParents {
		st.tree[controlledKey(id)] = &ir.Block{InnerBlocks: st.childNodes(id)}
	}
}

func (st *blocksState) childNodes(parent string) []*ir.Block {
	order := st.order[parent]
	out := make([]*ir.Block, len(order))
	for i, childID := range order {
		node, ok := st.tree[childID]
		if !ok {
			st.violate(ErrCodeTreeMiss, childID, "no tree node for child of %q", parent)
			node = &ir.Block{ClientID: childID}
		}
		out[i] = node
	}
	return out
}

// withDescendants returns clientIDs followed by all their descendants,
// breadth first. Blocks in keep are returned without their children.
func (st *blocksState) withDescendants(clientIDs []string, keep map[string]bool) []string {
	out := slices.Clone(clientIDs)
	for i := 0; i < len(out); i++ {
		if keep[out[i]] {
			continue
		}
		out = append(out, st.order[out[i]]...)
	}
	return out
}

// drop deletes the records of clientIDs. Controller flags and controlled
// tree nodes survive for IDs in keep.
func (st *blocksState) drop(clientIDs []string, keep map[string]bool) {
	for _, id := range clientIDs {
		delete(st.byClientID, id)
		delete(st.attributes, id)
		delete(st.order, id)
		delete(st.parents, id)
		delete(st.tree, id)
		if !keep[id] {
			delete(st.tree, controlledKey(id))
			delete(st.controlled, id)
		}
	}
}

// reset replaces the whole document. Controller flags are cleared, so nested
// synchronizations notice they were reset out from under them.
func (st *blocksState) reset(blocks []*ir.Block) {
	st.clear()
	st.ingest(blocks, "")
	st.order[""] = ir.ClientIDs(blocks)
	st.buildTree(blocks)
	st.tree[""] = &ir.Block{InnerBlocks: st.childNodes("")}
}

func (st *blocksState) insert(blocks []*ir.Block, root string, index int) {
	st.ingest(blocks, root)
	st.order[root] = insertAt(st.order[root], ir.ClientIDs(blocks), index)
	st.buildTree(blocks)
	st.patchAncestors([]string{root}, true)
}

// receive appends blocks not already present to the root list.
func (st *blocksState) receive(blocks []*ir.Block) bool {
	fresh := make([]*ir.Block, 0, len(blocks))
	for _, b := range blocks {
		if !st.exists(b.ClientID) {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) == 0 {
		return false
	}
	st.insert(fresh, "", AppendIndex)
	return true
}

// remove deletes clientIDs with their descendants. Children of blocks in
// keep are left in place.
func (st *blocksState) remove(clientIDs []string, keep map[string]bool) {
	removed := st.withDescendants(clientIDs, keep)
	removedSet := make(map[string]bool, len(removed))
	for _, id := range removed {
		removedSet[id] = true
	}

	var touched []string
	for _, id := range clientIDs {
		parent, ok := st.parents[id]
		if !ok || removedSet[parent] {
			continue
		}
		st.order[parent] = slices.DeleteFunc(slices.Clone(st.order[parent]), func(c string) bool {
			return removedSet[c]
		})
		if !slices.Contains(touched, parent) {
			touched = append(touched, parent)
		}
	}

	st.drop(removed, keep)

	var live []string
	for _, parent := range touched {
		if st.isList(parent) {
			live = append(live, parent)
		}
	}
	st.patchAncestors(live, true)
}

// replace swaps clientIDs, which must be siblings, for blocks. The new blocks
// take the position of the first replaced block.
func (st *blocksState) replace(clientIDs []string, blocks []*ir.Block) {
	root := st.parents[clientIDs[0]]
	replaced := st.withDescendants(clientIDs, nil)

	inserted := make(map[string]bool)
	ir.Walk(blocks, func(b *ir.Block) bool {
		inserted[b.ClientID] = true
		return true
	})
	keep := make(map[string]bool)
	for _, id := range replaced {
		if inserted[id] {
			keep[id] = true
		}
	}

	var touched []string
	replacedTop := make(map[string]bool, len(clientIDs))
	for _, id := range clientIDs {
		replacedTop[id] = true
		if parent, ok := st.parents[id]; ok && !slices.Contains(touched, parent) {
			touched = append(touched, parent)
		}
	}

	newIDs := ir.ClientIDs(blocks)
	for _, parent := range touched {
		old := st.order[parent]
		next := make([]string, 0, len(old)+len(newIDs))
		for _, sub := range old {
			switch {
			case sub == clientIDs[0]:
				next = append(next, newIDs...)
			case !replacedTop[sub]:
				next = append(next, sub)
			}
		}
		st.order[parent] = next
	}

	st.drop(replaced, keep)
	st.ingest(blocks, root)
	st.buildTree(blocks)
	st.patchAncestors(newIDs, false)

	var live []string
	for _, parent := range touched {
		if st.isList(parent) {
			live = append(live, parent)
		}
	}
	st.patchAncestors(live, true)
}

// replaceInner swaps the children of root for blocks. Nested controllers
// present in blocks keep their existing children.
func (st *blocksState) replaceInner(root string, blocks []*ir.Block) {
	nested := make(map[string]bool)
	if len(st.controlled) > 0 {
		ir.Walk(blocks, func(b *ir.Block) bool {
			if st.controlled[b.ClientID] {
				nested[b.ClientID] = true
			}
			return true
		})
	}
	savedOrder := make(map[string][]string, len(nested))
	savedNodes := make(map[string]*ir.Block, len(nested))
	for id := range nested {
		if order, ok := st.order[id]; ok {
			savedOrder[id] = order
		}
		if node, ok := st.tree[controlledKey(id)]; ok {
			savedNodes[id] = node
		}
	}

	if current := st.order[root]; len(current) > 0 {
		st.remove(current, nested)
	}
	if len(blocks) == 0 {
		return
	}
	st.insert(blocks, root, 0)
	for id, order := range savedOrder {
		st.order[id] = order
	}
	for id, node := range savedNodes {
		st.tree[controlledKey(id)] = node
	}
}

func (st *blocksState) setControlled(clientID string, controlled bool) {
	st.replaceInner(clientID, nil)
	if controlled {
		st.controlled[clientID] = true
	} else {
		delete(st.controlled, clientID)
		delete(st.tree, controlledKey(clientID))
	}
}

// moveToPosition moves sibling blocks from one list to another.
func (st *blocksState) moveToPosition(clientIDs []string, from, to string, index int) {
	if from == to {
		sub := st.order[to]
		fromIndex := slices.Index(sub, clientIDs[0])
		st.order[to] = moveTo(sub, fromIndex, index, len(clientIDs))
	} else {
		moving := make(map[string]bool, len(clientIDs))
		for _, id := range clientIDs {
			moving[id] = true
		}
		st.order[from] = slices.DeleteFunc(slices.Clone(st.order[from]), func(c string) bool {
			return moving[c]
		})
		st.order[to] = insertAt(st.order[to], clientIDs, index)
	}
	for _, id := range clientIDs {
		st.parents[id] = to
	}
	st.patchAncestors([]string{from, to}, true)
}

// moveBy shifts a run of siblings one position up (-1) or down (+1).
func (st *blocksState) moveBy(clientIDs []string, root string, delta int) bool {
	sub := st.order[root]
	if len(sub) == 0 {
		return false
	}
	if delta < 0 && clientIDs[0] == sub[0] {
		return false
	}
	if delta > 0 && clientIDs[len(clientIDs)-1] == sub[len(sub)-1] {
		return false
	}
	first := slices.Index(sub, clientIDs[0])
	if first < 0 {
		return false
	}
	st.order[root] = moveTo(sub, first, first+delta, len(clientIDs))
	st.patchAncestors([]string{root}, true)
	return true
}

// republish replaces the node of clientID with a copy reflecting its current
// record and attributes, then patches its ancestors.
func (st *blocksState) republish(clientIDs []string) {
	for _, id := range clientIDs {
		old, ok := st.tree[id]
		if !ok {
			st.violate(ErrCodeTreeMiss, id, "no tree node for live block")
			old = &ir.Block{ClientID: id, InnerBlocks: st.childNodes(id)}
		}
		rec := st.byClientID[id]
		node := *old
		node.Name = rec.name
		node.IsValid = rec.isValid
		node.Attributes = st.attributes[id]
		st.tree[id] = &node
	}
	st.patchAncestors(clientIDs, false)
}

// blocks returns the materialized children of rootClientID.
func (st *blocksState) blocks(rootClientID string) []*ir.Block {
	key := rootClientID
	if rootClientID != "" && st.controlled[rootClientID] {
		key = controlledKey(rootClientID)
	}
	node, ok := st.tree[key]
	if !ok || node.InnerBlocks == nil {
		return emptyBlocks
	}
	return node.InnerBlocks
}

func insertAt(list []string, elements []string, index int) []string {
	if index < 0 || index > len(list) {
		index = len(list)
	}
	out := make([]string, 0, len(list)+len(elements))
	out = append(out, list[:index]...)
	out = append(out, elements...)
	return append(out, list[index:]...)
}

// moveTo moves count elements starting at from so they start at to in the
// list without them.
func moveTo(list []string, from, to, count int) []string {
	moved := slices.Clone(list[from : from+count])
	rest := make([]string, 0, len(list)-count)
	rest = append(rest, list[:from]...)
	rest = append(rest, list[from+count:]...)
	return insertAt(rest, moved, to)
}
