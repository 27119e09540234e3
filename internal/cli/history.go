package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/roach88/blocksync/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database    string
	Checkpoints bool // persistent revisions only
	Verify      bool // recompute revision IDs and parent links
}

// RevisionSummary is one journaled revision as printed.
type RevisionSummary struct {
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	ParentID   string `json:"parent_id,omitempty"`
	Persistent bool   `json:"persistent"`
	Blocks     int    `json:"blocks"`
	Stamp      int64  `json:"stamp"`
}

// HistoryResult is the JSON payload of the history command.
type HistoryResult struct {
	Entity    string            `json:"entity,omitempty"`
	Entities  []string          `json:"entities,omitempty"`
	Revisions []RevisionSummary `json:"revisions,omitempty"`
	Verified  bool              `json:"verified,omitempty"`
	Problems  []string          `json:"problems,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [entity]",
		Short: "Inspect the revision journal",
		Long: `List the entities journaled in a database, or the revisions of one
entity in order.

Each revision is identified by a content hash of its entity, parent, and
blocks. --verify recomputes every hash and checks that each parent is an
earlier revision.

Exit codes:
  0 - Success (and, with --verify, the journal is intact)
  1 - Verification found problems
  2 - Command error (database not found, etc.)

Examples:
  blocksync history --db ./journal.db
  blocksync history --db ./journal.db post --checkpoints
  blocksync history --db ./journal.db post --verify`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := ""
			if len(args) == 1 {
				entity = args[0]
			}
			return runHistory(opts, entity, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Checkpoints, "checkpoints", false, "show persistent revisions only")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify revision IDs and parent links")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, entity string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// store.Open creates missing databases; history only reads.
	if _, err := os.Stat(opts.Database); errors.Is(err, os.ErrNotExist) {
		msg := fmt.Sprintf("database not found: %s", opts.Database)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if entity == "" {
		return listEntities(ctx, formatter, st)
	}
	return listRevisions(ctx, opts, formatter, st, entity)
}

func listEntities(ctx context.Context, formatter *OutputFormatter, st *store.Store) error {
	entities, err := st.Entities(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list entities", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(HistoryResult{Entities: entities})
	}
	if len(entities) == 0 {
		fmt.Fprintln(formatter.Writer, "No entities journaled.")
		return nil
	}
	for _, e := range entities {
		fmt.Fprintln(formatter.Writer, e)
	}
	return nil
}

func listRevisions(ctx context.Context, opts *HistoryOptions, formatter *OutputFormatter, st *store.Store, entity string) error {
	read := st.Revisions
	if opts.Checkpoints {
		read = st.Checkpoints
	}
	revisions, err := read(ctx, entity)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read revisions", err)
	}
	if len(revisions) == 0 {
		msg := fmt.Sprintf("no revisions for entity %q", entity)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	result := HistoryResult{Entity: entity}
	for _, rev := range revisions {
		result.Revisions = append(result.Revisions, RevisionSummary{
			Seq:        rev.Seq,
			ID:         rev.ID,
			ParentID:   rev.ParentID,
			Persistent: rev.Persistent,
			Blocks:     len(rev.Blocks),
			Stamp:      rev.Stamp,
		})
	}

	if opts.Verify {
		formatter.VerboseLog("Verifying %d revision(s) of %s", len(revisions), entity)
		if err := st.VerifyEntity(ctx, entity); err != nil {
			var merr *multierror.Error
			if errors.As(err, &merr) {
				for _, e := range merr.Errors {
					result.Problems = append(result.Problems, e.Error())
				}
			} else {
				result.Problems = append(result.Problems, err.Error())
			}
		} else {
			result.Verified = true
		}
	}

	if formatter.Format == "json" {
		if len(result.Problems) == 0 {
			return formatter.Success(result)
		}
		if err := formatter.Failure("E_JOURNAL_CORRUPT", result.Problems[0], result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("journal has %d problem(s)", len(result.Problems)))
	}

	return outputHistoryText(formatter, result)
}

func outputHistoryText(formatter *OutputFormatter, result HistoryResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Entity: %s\n\n", result.Entity)
	for _, rev := range result.Revisions {
		kind := "input"
		if rev.Persistent {
			kind = "change"
		}
		fmt.Fprintf(w, "%4d  %s  %-6s  %d block(s)  stamp %d\n", rev.Seq, shortID(rev.ID), kind, rev.Blocks, rev.Stamp)
	}

	if len(result.Problems) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "✗ Journal verification failed")
		for _, p := range result.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("journal has %d problem(s)", len(result.Problems)))
	}
	if result.Verified {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "✓ Journal verified")
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
