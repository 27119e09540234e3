package store

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/blocksync/internal/ir"
)

// VerifyEntity recomputes every revision ID of entity from its stored
// content and checks that each revision's parent is the revision before it
// or an earlier one. All problems are reported together.
func (s *Store) VerifyEntity(ctx context.Context, entity string) error {
	revisions, err := s.Revisions(ctx, entity)
	if err != nil {
		return fmt.Errorf("verify %s: %w", entity, err)
	}

	var result *multierror.Error
	seen := map[string]bool{"": true}
	for _, rev := range revisions {
		want, err := ir.RevisionID(rev.Entity, rev.ParentID, rev.Blocks)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("seq %d: %w", rev.Seq, err))
			continue
		}
		if want != rev.ID {
			result = multierror.Append(result, fmt.Errorf("seq %d: id %s does not match content (want %s)", rev.Seq, rev.ID, want))
		}
		if !seen[rev.ParentID] {
			result = multierror.Append(result, fmt.Errorf("seq %d: parent %s is not an earlier revision", rev.Seq, rev.ParentID))
		}
		seen[rev.ID] = true
	}
	return result.ErrorOrNil()
}
