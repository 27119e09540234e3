package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/blocksync/internal/harness"
	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Name   string               `json:"name"`
	Pass   bool                 `json:"pass"`
	Errors []string             `json:"errors,omitempty"`
	Trace  []harness.TraceEvent `json:"trace"`
	Blocks []*ir.Block          `json:"blocks"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run one scenario and print its trace",
		Long: `Run one scenario file and print every step, store dispatch, and
forward to the owning entity, in order.

With --db, the scenario's entities journal their revisions to the SQLite
database (created if it doesn't exist) for inspection with history.
Verbose mode logs store, sync, and entity activity to stderr.

Example:
  blocksync run ./scenarios/merge_split.yaml
  blocksync run --db ./journal.db ./scenarios/typing.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal revisions to this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithJournal(st))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	if opts.Format == "json" {
		out := RunResult{
			Name:   scenario.Name,
			Pass:   result.Pass,
			Errors: result.Errors,
			Trace:  result.Trace,
			Blocks: result.Blocks,
		}
		if result.Pass {
			return formatter.Success(out)
		}
		if err := formatter.Failure("E_RUN_FAILED", result.Errors[0], out); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d check(s) failed", len(result.Errors)))
	}

	return outputRunText(formatter, scenario.Name, result)
}

// outputRunText prints the trace one event per line, then the final tree.
func outputRunText(formatter *OutputFormatter, name string, result *harness.Result) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Scenario: %s\n\n", name)
	for _, event := range result.Trace {
		indent := "  "
		if event.Type == harness.EventStep {
			indent = ""
		}
		fmt.Fprintf(w, "%s[%d] %s\n", indent, event.Seq, event.Label())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Blocks:")
	printBlockTree(formatter, result.Blocks, 1)

	if !result.Pass {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "✗ Checks failed")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d check(s) failed", len(result.Errors)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "✓ All checks passed")
	return nil
}

func printBlockTree(formatter *OutputFormatter, list []*ir.Block, depth int) {
	for _, b := range list {
		fmt.Fprintf(formatter.Writer, "%*s%s %s\n", depth*2, "", b.ClientID, b.Name)
		printBlockTree(formatter, b.InnerBlocks, depth+1)
	}
}
