// Package engine keeps a block tree store in step with the owner of its
// content.
//
// A BlockSync binds one attachment point of an editor.Store (the store root,
// or one block's inner blocks) to an externally owned block list:
//
//	owner value ──Attach/Update──▶ seed ──▶ store
//	store change ──subscriber──▶ OnChange / OnInput ──▶ owner
//
// Two markers break the feedback loop between the directions. A seed sets
// the incoming marker so the subscriber does not forward the store change it
// causes. Every forward is queued in a FIFO outbox so the owner's echo of
// it is recognized as a confirmation instead of a new value.
//
// Persistence follows the store's classification of the last block change:
// persistent changes go to OnChange, transient ones to OnInput, and ignored
// ones nowhere. A transient change the store later marks persistent is
// forwarded a second time, through OnChange.
//
// Outbound pushes are stamped by a logical Clock, never wall-clock time.
//
// Like the store, a BlockSync is single-goroutine.
package engine
