package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blocksync/internal/ir"
)

// Scenario defines a conformance test scenario.
//
// A scenario builds an editor store from CUE block declarations, attaches a
// root BlockSync (and optionally nested ones) to an owning entity, runs a
// flow of edits, and asserts on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists paths to CUE block declaration files.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs"`

	// Entity names the owning entity. Default: "post".
	Entity string `yaml:"entity,omitempty"`

	// Value is the entity's initial block list.
	Value []BlockSpec `yaml:"value"`

	// Selection is the entity's initial selection.
	Selection *ir.Selection `yaml:"selection,omitempty"`

	// Nested attaches further BlockSyncs to blocks of the root list.
	Nested []NestedSync `yaml:"nested,omitempty"`

	// Journal journals every entity value to an in-memory revision store,
	// which final_state assertions query.
	Journal bool `yaml:"journal,omitempty"`

	// Flow contains the edits to perform, with optional expectations.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// BlockSpec is a block as written in a scenario. Blocks are valid unless
// marked invalid.
type BlockSpec struct {
	ClientID    string      `yaml:"client_id"`
	Name        string      `yaml:"name"`
	Invalid     bool        `yaml:"invalid,omitempty"`
	Attributes  ir.Object   `yaml:"attributes,omitempty"`
	InnerBlocks []BlockSpec `yaml:"inner_blocks,omitempty"`
}

// Block builds the ir.Block b describes.
func (b BlockSpec) Block() *ir.Block {
	attrs := b.Attributes
	if attrs == nil {
		attrs = ir.Object{}
	}
	return &ir.Block{
		ClientID:    b.ClientID,
		Name:        b.Name,
		IsValid:     !b.Invalid,
		Attributes:  attrs,
		InnerBlocks: buildBlocks(b.InnerBlocks),
	}
}

func buildBlocks(specs []BlockSpec) []*ir.Block {
	out := make([]*ir.Block, len(specs))
	for i, s := range specs {
		out[i] = s.Block()
	}
	return out
}

// NestedSync is a second owner controlling one block's inner blocks.
type NestedSync struct {
	ClientID string      `yaml:"client_id"`
	Value    []BlockSpec `yaml:"value"`
}

// FlowStep is one edit. Which fields apply depends on Do.
type FlowStep struct {
	// Do names the operation, see the Step* constants.
	Do string `yaml:"do"`

	ClientID     string      `yaml:"client_id,omitempty"`
	ClientIDs    []string    `yaml:"client_ids,omitempty"`
	RootClientID string      `yaml:"root_client_id,omitempty"`
	Index        *int        `yaml:"index,omitempty"`
	Attribute    string      `yaml:"attribute,omitempty"`
	Offset       *int        `yaml:"offset,omitempty"`
	End          *int        `yaml:"end,omitempty"`
	Attributes   ir.Object   `yaml:"attributes,omitempty"`
	Blocks       []BlockSpec `yaml:"blocks,omitempty"`
	Forward      bool        `yaml:"forward,omitempty"`

	// Expect checks the operation's boolean outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// OK is whether the store accepted the operation.
	OK bool `yaml:"ok"`
}

// Flow step operations.
const (
	StepUpdateAttributes = "update_attributes"
	StepSelect           = "select"
	StepSelectBlock      = "select_block"
	StepInsertBlocks     = "insert_blocks"
	StepRemoveBlocks     = "remove_blocks"
	StepMoveUp           = "move_up"
	StepMoveDown         = "move_down"
	StepMerge            = "merge"
	StepMergeAdjacent    = "merge_adjacent"
	StepSplit            = "split"
	StepReceiveBlocks    = "receive_blocks"
	StepMarkNotPersist   = "mark_not_persistent"
	StepMarkPersistent   = "mark_persistent"
	StepUndo             = "undo"
	StepRedo             = "redo"
	StepExternalChange   = "external_change"
	StepDetach           = "detach"
	StepAttach           = "attach"
)

var stepNames = []string{
	StepUpdateAttributes, StepSelect, StepSelectBlock, StepInsertBlocks,
	StepRemoveBlocks, StepMoveUp, StepMoveDown, StepMerge, StepMergeAdjacent,
	StepSplit, StepReceiveBlocks, StepMarkNotPersist, StepMarkPersistent,
	StepUndo, StepRedo, StepExternalChange, StepDetach, StepAttach,
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event with the label appears with matching args
	// - "trace_order": labels appear in order
	// - "trace_count": a label appears exactly N times
	// - "final_state": a row of the revision journal has expected values
	// - "final_blocks": the store's root list matches (subset per block)
	// - "final_selection": the store's selection start matches
	Type string `yaml:"type"`

	// Action is the event label, e.g. "forward:change" (used by
	// trace_contains and trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected event arguments (used by trace_contains).
	// Subset match - only specified fields are validated.
	Args map[string]any `yaml:"args,omitempty"`

	// Table is the journal table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state and
	// final_selection). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Blocks are the expected root blocks (used by final_blocks).
	Blocks []map[string]any `yaml:"blocks,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected label order (used by trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertFinalState     = "final_state"
	AssertFinalBlocks    = "final_blocks"
	AssertFinalSelection = "final_selection"
)

// LoadScenario reads and parses a scenario YAML file, resolving spec paths
// relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating spec paths.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.Entity == "" {
		scenario.Entity = "post"
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for i, n := range s.Nested {
		if n.ClientID == "" {
			return fmt.Errorf("nested[%d]: client_id is required", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that a step names a known operation and carries the
// fields it needs.
func validateStep(index int, step *FlowStep) error {
	if step.Do == "" {
		return fmt.Errorf("flow[%d]: do is required", index)
	}
	if !slices.Contains(stepNames, step.Do) {
		return fmt.Errorf("flow[%d]: unknown operation %q", index, step.Do)
	}

	switch step.Do {
	case StepSelect, StepSplit:
		if step.ClientID == "" || step.Attribute == "" || step.Offset == nil {
			return fmt.Errorf("flow[%d]: %s needs client_id, attribute, and offset", index, step.Do)
		}
	case StepSelectBlock, StepMergeAdjacent:
		if step.ClientID == "" {
			return fmt.Errorf("flow[%d]: %s needs client_id", index, step.Do)
		}
	case StepUpdateAttributes:
		if len(step.ClientIDs) == 0 || step.Attributes == nil {
			return fmt.Errorf("flow[%d]: update_attributes needs client_ids and attributes", index)
		}
	case StepRemoveBlocks, StepMoveUp, StepMoveDown:
		if len(step.ClientIDs) == 0 {
			return fmt.Errorf("flow[%d]: %s needs client_ids", index, step.Do)
		}
	case StepMerge:
		if len(step.ClientIDs) != 2 {
			return fmt.Errorf("flow[%d]: merge needs exactly two client_ids", index)
		}
	case StepInsertBlocks, StepReceiveBlocks, StepExternalChange:
		if step.Blocks == nil {
			return fmt.Errorf("flow[%d]: %s needs blocks (use [] for none)", index, step.Do)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertFinalBlocks:
		if a.Blocks == nil {
			return fmt.Errorf("assertions[%d]: blocks is required for final_blocks (use [] for none)", index)
		}
	case AssertFinalSelection:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_selection", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
