package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const revisionColumns = `entity, seq, id, parent_id, persistent, blocks_json, selection_json, stamp`

// Revisions returns every revision of entity in journal order.
//
// Returns an empty slice (not nil) if the entity has no revisions.
func (s *Store) Revisions(ctx context.Context, entity string) ([]Revision, error) {
	return s.queryRevisions(ctx, `
		SELECT `+revisionColumns+`
		FROM revisions
		WHERE entity = ?
		ORDER BY seq ASC
	`, entity)
}

// Checkpoints returns the persistent revisions of entity in journal order.
func (s *Store) Checkpoints(ctx context.Context, entity string) ([]Revision, error) {
	return s.queryRevisions(ctx, `
		SELECT `+revisionColumns+`
		FROM revisions
		WHERE entity = ? AND persistent = 1
		ORDER BY seq ASC
	`, entity)
}

// LatestRevision returns the last revision of entity.
// Returns found=false if the entity has no revisions.
func (s *Store) LatestRevision(ctx context.Context, entity string) (rev Revision, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+revisionColumns+`
		FROM revisions
		WHERE entity = ?
		ORDER BY seq DESC
		LIMIT 1
	`, entity)
	rev, err = scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, false, nil
	}
	if err != nil {
		return Revision{}, false, fmt.Errorf("latest revision: %w", err)
	}
	return rev, true, nil
}

// Entities returns the names of all journaled entities, sorted.
func (s *Store) Entities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT entity FROM revisions ORDER BY entity COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	entities := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

func (s *Store) queryRevisions(ctx context.Context, query string, args ...any) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revisions := []Revision{}
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revisions, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(row scanner) (Revision, error) {
	var (
		rev           Revision
		persistent    int
		blocksJSON    string
		selectionJSON string
	)
	if err := row.Scan(
		&rev.Entity,
		&rev.Seq,
		&rev.ID,
		&rev.ParentID,
		&persistent,
		&blocksJSON,
		&selectionJSON,
		&rev.Stamp,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Revision{}, err
		}
		return Revision{}, fmt.Errorf("scan revision: %w", err)
	}
	rev.Persistent = persistent == 1

	blocks, err := unmarshalBlocks(blocksJSON)
	if err != nil {
		return Revision{}, fmt.Errorf("revision %s/%d: %w", rev.Entity, rev.Seq, err)
	}
	rev.Blocks = blocks

	sel, err := unmarshalSelection(selectionJSON)
	if err != nil {
		return Revision{}, fmt.Errorf("revision %s/%d: %w", rev.Entity, rev.Seq, err)
	}
	rev.Selection = sel
	return rev, nil
}
