package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult summarizes a compiled declaration directory.
type CompilationResult struct {
	BlockTypes   []BlockTypeSummary `json:"block_types"`
	DefaultBlock string             `json:"default_block,omitempty"`
	Templates    []string           `json:"templates,omitempty"`
	Settings     SettingsSummary    `json:"settings"`
}

// BlockTypeSummary is the compiled shape of one block type.
type BlockTypeSummary struct {
	Name          string   `json:"name"`
	Title         string   `json:"title,omitempty"`
	Attributes    []string `json:"attributes"`
	RichText      string   `json:"rich_text,omitempty"`
	Parent        []string `json:"parent,omitempty"`
	Ancestor      []string `json:"ancestor,omitempty"`
	AllowedBlocks []string `json:"allowed_blocks,omitempty"`
	Mergeable     bool     `json:"mergeable"`
	TransformsTo  []string `json:"transforms_to,omitempty"`
	TransformFrom []string `json:"transforms_from,omitempty"`
}

// SettingsSummary is the compiled root editor settings.
type SettingsSummary struct {
	AllowedBlockTypes []string `json:"allowed_block_types,omitempty"`
	TemplateBlocks    int      `json:"template_blocks"`
	TemplateLock      string   `json:"template_lock,omitempty"`
	CanLockBlocks     bool     `json:"can_lock_blocks"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE block declarations",
		Long: `Compile CUE block type declarations into a block type registry.

Parses every CUE file in the directory as one package and prints the
compiled block types, default block, templates, and settings. With -o,
the summary is also written as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, err := LoadProjectDir(specsDir)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	result := summarizeProject(loadResult.Project)
	for _, bt := range result.BlockTypes {
		formatter.VerboseLog("Compiled block type: %s", bt.Name)
	}

	if opts.Output != "" {
		if err := writeSummaryToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarizeProject flattens a compiled project into its printable form.
func summarizeProject(p *compiler.Project) *CompilationResult {
	result := &CompilationResult{
		DefaultBlock: p.Registry.DefaultBlockName(),
		Settings: SettingsSummary{
			AllowedBlockTypes: p.Settings.AllowedBlockTypes.Names(),
			TemplateBlocks:    len(p.Settings.Template),
			TemplateLock:      string(p.Settings.TemplateLock),
			CanLockBlocks:     p.Settings.CanLockBlocks,
		},
	}

	for _, bt := range p.Registry.BlockTypes() {
		attrs := make([]string, 0, len(bt.Attributes))
		for name := range bt.Attributes {
			attrs = append(attrs, name)
		}
		slices.Sort(attrs)

		result.BlockTypes = append(result.BlockTypes, BlockTypeSummary{
			Name:          bt.Name,
			Title:         bt.Title,
			Attributes:    attrs,
			RichText:      bt.RichTextAttributeKey(),
			Parent:        bt.Parent,
			Ancestor:      bt.Ancestor,
			AllowedBlocks: bt.AllowedBlocks,
			Mergeable:     bt.Merge != nil,
			TransformsTo:  transformTargets(bt.Transforms.To),
			TransformFrom: transformTargets(bt.Transforms.From),
		})
	}

	for name := range p.Templates {
		result.Templates = append(result.Templates, name)
	}
	slices.Sort(result.Templates)

	return result
}

// transformTargets lists the distinct types named by ts.
func transformTargets(ts []blocks.Transform) []string {
	var names []string
	for _, t := range ts {
		names = append(names, t.Blocks...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d block type(s), %d template(s)\n\n", len(result.BlockTypes), len(result.Templates))

	fmt.Fprintln(w, "Block types:")
	for _, bt := range result.BlockTypes {
		marker := ""
		if bt.Name == result.DefaultBlock {
			marker = " (default)"
		}
		fmt.Fprintf(w, "  %s%s: %d attribute(s)", bt.Name, marker, len(bt.Attributes))
		if bt.Mergeable {
			fmt.Fprint(w, ", mergeable")
		}
		if len(bt.TransformsTo) > 0 {
			fmt.Fprintf(w, ", → %s", strings.Join(bt.TransformsTo, ", "))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	if len(result.Templates) > 0 {
		fmt.Fprintf(w, "Templates: %s\n\n", strings.Join(result.Templates, ", "))
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote block registry to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a load or compile error. Both are
// command-level errors (exit code 2).
func outputCompileError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	if loadErr, ok := err.(*LoadError); ok {
		code, message = loadErr.Code, loadErr.Message
		if formatter.Format != "json" && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
	}
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// writeSummaryToFile writes the compilation result to a file.
func writeSummaryToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
