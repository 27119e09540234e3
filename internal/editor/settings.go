package editor

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blocksync/internal/blocks"
)

// TemplateLock restricts changes to a block list.
type TemplateLock string

const (
	// TemplateLockNone leaves the list unlocked.
	TemplateLockNone TemplateLock = ""

	// TemplateLockAll forbids inserting, removing, and moving blocks.
	TemplateLockAll TemplateLock = "all"

	// TemplateLockInsert forbids inserting and removing; moving is allowed.
	TemplateLockInsert TemplateLock = "insert"

	// TemplateLockContentOnly locks structure and leaves only content-role
	// attributes editable.
	TemplateLockContentOnly TemplateLock = "contentOnly"
)

// EditingMode controls how a block may be edited.
type EditingMode string

const (
	EditingModeDefault     EditingMode = "default"
	EditingModeContentOnly EditingMode = "contentOnly"
	EditingModeDisabled    EditingMode = "disabled"
)

// Valid reports whether m is one of the three editing modes.
func (m EditingMode) Valid() bool {
	switch m {
	case EditingModeDefault, EditingModeContentOnly, EditingModeDisabled:
		return true
	}
	return false
}

// EditorMode selects the context editing modes are resolved in.
type EditorMode string

const (
	EditorModeEdit       EditorMode = "edit"
	EditorModeZoomOut    EditorMode = "zoom-out"
	EditorModeNavigation EditorMode = "navigation"
)

// AllowList is a tri-state type restriction: unset (no opinion), a blanket
// true/false, or an explicit list of type names.
//
// The zero value is unset.
type AllowList struct {
	set   bool
	all   bool
	names []string
}

// AllowAll returns a list that allows every type.
func AllowAll() AllowList { return AllowList{set: true, all: true} }

// AllowNone returns a list that allows no type.
func AllowNone() AllowList { return AllowList{set: true} }

// AllowOnly returns a list that allows exactly the named types.
func AllowOnly(names ...string) AllowList {
	return AllowList{set: true, names: slices.Clone(names)}
}

// IsSet reports whether the list expresses any restriction at all.
func (l AllowList) IsSet() bool { return l.set }

// Names returns the explicit type names, or nil for unset and blanket lists.
func (l AllowList) Names() []string { return slices.Clone(l.names) }

// check resolves name against the list. ok is false when the list is unset,
// in which case allowed is def.
func (l AllowList) check(name string, def bool) (allowed, ok bool) {
	switch {
	case !l.set:
		return def, false
	case l.names != nil:
		return slices.Contains(l.names, name), true
	default:
		return l.all, true
	}
}

// UnmarshalYAML accepts a boolean or a sequence of type names.
func (l *AllowList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var all bool
		if err := node.Decode(&all); err != nil {
			return fmt.Errorf("line %d: allow list must be a bool or a list: %w", node.Line, err)
		}
		*l = AllowList{set: true, all: all}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*l = AllowOnly(names...)
		return nil
	default:
		return fmt.Errorf("line %d: allow list must be a bool or a list", node.Line)
	}
}

// Settings is the editor-wide configuration.
type Settings struct {
	// AllowedBlockTypes restricts which types can be inserted anywhere.
	AllowedBlockTypes AllowList `yaml:"allowed_block_types"`

	// Template is the layout the root list is validated against.
	// Nil means no template.
	Template blocks.Template `yaml:"template"`

	// TemplateLock locks the root list.
	TemplateLock TemplateLock `yaml:"template_lock"`

	// CanLockBlocks lets users lock blocks whose type supports it.
	CanLockBlocks bool `yaml:"can_lock_blocks"`

	// HasCustomAppender suppresses the default block inserted into an empty
	// document.
	HasCustomAppender bool `yaml:"has_custom_appender"`

	// SectionRootClientID is the block whose direct children count as
	// sections in the zoom-out and navigation editor modes.
	SectionRootClientID string `yaml:"section_root_client_id"`
}

// BlockListSettings configures one block's inner block list. A block without
// list settings cannot receive inserted children.
type BlockListSettings struct {
	AllowedBlocks AllowList    `yaml:"allowed_blocks"`
	TemplateLock  TemplateLock `yaml:"template_lock"`
}

func (a BlockListSettings) equal(b BlockListSettings) bool {
	return a.TemplateLock == b.TemplateLock &&
		a.AllowedBlocks.set == b.AllowedBlocks.set &&
		a.AllowedBlocks.all == b.AllowedBlocks.all &&
		slices.Equal(a.AllowedBlocks.names, b.AllowedBlocks.names)
}
