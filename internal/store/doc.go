// Package store provides the SQLite revision journal for owning entities.
//
// Every block list an entity accepts from the editor is appended as a
// revision row:
//   - entity: the entity's name
//   - seq: position in that entity's journal, starting at 1
//   - id: content-addressed revision ID (see ir.RevisionID)
//   - parent_id: the ID of the revision it was derived from
//   - persistent: 1 for undo checkpoints, 0 for transient input
//   - stamp: the sync engine's logical clock value for the push
//
// # Critical Patterns
//
// Logical ordering:
//   - All ordering uses seq, NEVER timestamps
//   - Queries MUST include ORDER BY seq ASC
//
// Canonical content:
//   - blocks_json and selection_json hold RFC 8785 canonical JSON
//   - The revision ID hashes the same canonical form, so a journal can be
//     verified by recomputing IDs
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
