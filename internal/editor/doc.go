// Package editor implements the block tree store: a normalized, in-memory
// document of blocks with a derived tree cache, the selection model, policy
// predicates, and the merge and split algorithms built on top of them.
//
// The store keeps one record per block in flat maps keyed by client ID:
//
//	byClientID  name and validity
//	attributes  attribute object, replaced wholesale on every update
//	order       parent ID -> ordered child IDs ("" is the document root)
//	parents     child ID -> parent ID
//	controlled  IDs whose inner blocks belong to another synchronized entity
//	tree        materialized *ir.Block nodes, patched incrementally
//
// Tree nodes are immutable once published. A mutation creates new nodes for
// the changed blocks and their ancestors only, so an unaffected subtree keeps
// its pointer identity and callers can compare with == to skip work.
//
// Ancestor patching stops at a block with controlled inner blocks. Its
// children are published under the composite key "controlled||<id>" and never
// appear in the parent's materialized inner blocks.
//
// # Dispatch Model
//
// All mutations go through a single reducer. Store methods validate their
// preconditions (insert, move, and remove permissions) and then dispatch one
// or more actions; a failed precondition is a silent no-op reported through
// the method's bool result.
//
// Observers registered with Subscribe run synchronously after each dispatch,
// or once after the outermost Batch. They never see a partially applied
// batch. A Store is not safe for concurrent use.
package editor
