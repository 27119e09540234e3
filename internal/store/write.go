package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/blocksync/internal/ir"
)

// Revision is one journaled block list of an entity.
type Revision struct {
	Entity     string
	Seq        int64
	ID         string
	ParentID   string
	Persistent bool
	Blocks     []*ir.Block
	Selection  ir.Selection
	Stamp      int64
}

// AppendRevision adds rev to the end of its entity's journal and returns it
// with Seq and ID filled in.
//
// Seq is assigned as one past the entity's last seq, inside the same
// transaction as the insert. The ID is computed with ir.RevisionID from the
// entity, ParentID, and blocks; a caller-supplied ID is ignored.
func (s *Store) AppendRevision(ctx context.Context, rev Revision) (Revision, error) {
	if rev.Entity == "" {
		return Revision{}, fmt.Errorf("append revision: entity is required")
	}

	id, err := ir.RevisionID(rev.Entity, rev.ParentID, rev.Blocks)
	if err != nil {
		return Revision{}, fmt.Errorf("append revision: %w", err)
	}
	rev.ID = id

	blocksJSON, err := marshalBlocks(rev.Blocks)
	if err != nil {
		return Revision{}, fmt.Errorf("append revision: %w", err)
	}
	selectionJSON, err := marshalSelection(rev.Selection)
	if err != nil {
		return Revision{}, fmt.Errorf("append revision: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, fmt.Errorf("append revision: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM revisions WHERE entity = ?`, rev.Entity,
	).Scan(&last); err != nil {
		return Revision{}, fmt.Errorf("append revision: next seq: %w", err)
	}
	rev.Seq = last.Int64 + 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revisions
		(entity, seq, id, parent_id, persistent, blocks_json, selection_json, stamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rev.Entity,
		rev.Seq,
		rev.ID,
		rev.ParentID,
		boolToInt(rev.Persistent),
		blocksJSON,
		selectionJSON,
		rev.Stamp,
	)
	if err != nil {
		return Revision{}, fmt.Errorf("append revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Revision{}, fmt.Errorf("append revision: commit: %w", err)
	}
	return rev, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
