package editor

import (
	"log/slog"

	"github.com/roach88/blocksync/internal/ir"
)

// ActionType names a reducer transition.
type ActionType string

const (
	ActionResetBlocks                 ActionType = "RESET_BLOCKS"
	ActionReceiveBlocks               ActionType = "RECEIVE_BLOCKS"
	ActionInsertBlocks                ActionType = "INSERT_BLOCKS"
	ActionReplaceBlocks               ActionType = "REPLACE_BLOCKS"
	ActionReplaceInnerBlocks          ActionType = "REPLACE_INNER_BLOCKS"
	ActionRemoveBlocks                ActionType = "REMOVE_BLOCKS"
	ActionMoveBlocksToPosition        ActionType = "MOVE_BLOCKS_TO_POSITION"
	ActionMoveBlocksUp                ActionType = "MOVE_BLOCKS_UP"
	ActionMoveBlocksDown              ActionType = "MOVE_BLOCKS_DOWN"
	ActionUpdateBlock                 ActionType = "UPDATE_BLOCK"
	ActionUpdateBlockAttributes       ActionType = "UPDATE_BLOCK_ATTRIBUTES"
	ActionSetHasControlledInnerBlocks ActionType = "SET_HAS_CONTROLLED_INNER_BLOCKS"

	ActionSelectionChange    ActionType = "SELECTION_CHANGE"
	ActionResetSelection     ActionType = "RESET_SELECTION"
	ActionMultiSelect        ActionType = "MULTI_SELECT"
	ActionSelectBlock        ActionType = "SELECT_BLOCK"
	ActionClearSelectedBlock ActionType = "CLEAR_SELECTED_BLOCK"

	ActionMarkLastChangeAsPersistent    ActionType = "MARK_LAST_CHANGE_AS_PERSISTENT"
	ActionMarkNextChangeAsNotPersistent ActionType = "MARK_NEXT_CHANGE_AS_NOT_PERSISTENT"
	ActionSetExplicitPersistent         ActionType = "SET_EXPLICIT_PERSISTENT"
	ActionMarkAutomaticChange           ActionType = "MARK_AUTOMATIC_CHANGE"
	ActionMarkAutomaticChangeFinal      ActionType = "MARK_AUTOMATIC_CHANGE_FINAL"

	ActionUpdateSettings          ActionType = "UPDATE_SETTINGS"
	ActionUpdateBlockListSettings ActionType = "UPDATE_BLOCK_LIST_SETTINGS"
	ActionSetTemplateValidity     ActionType = "SET_TEMPLATE_VALIDITY"
	ActionSetBlockEditingMode     ActionType = "SET_BLOCK_EDITING_MODE"
	ActionUnsetBlockEditingMode   ActionType = "UNSET_BLOCK_EDITING_MODE"
	ActionSetEditorMode           ActionType = "SET_EDITOR_MODE"
)

// AppendIndex inserts at the end of the target list.
const AppendIndex = -1

// BlockUpdate carries the non-attribute fields UPDATE_BLOCK may change,
// plus an optional attribute patch.
type BlockUpdate struct {
	Name       *string
	IsValid    *bool
	Attributes ir.Object
}

// Action is one reducer transition. Which fields are meaningful depends on
// Type; the rest stay zero.
type Action struct {
	Type ActionType

	ClientID  string
	ClientIDs []string
	Blocks    []*ir.Block

	RootClientID     string
	FromRootClientID string
	ToRootClientID   string
	Index            int

	// Selection placement for inserts and replacements.
	UpdateSelection bool
	IndexToSelect   *int
	InitialPosition *int

	// Attributes is the patch for UPDATE_BLOCK_ATTRIBUTES. With
	// UniqueByBlock set, AttributesByID holds one patch per block instead.
	Attributes     ir.Object
	UniqueByBlock  bool
	AttributesByID map[string]ir.Object

	Update BlockUpdate

	HasControlledInnerBlocks bool

	// Start and End are the selection endpoints for SELECTION_CHANGE,
	// RESET_SELECTION, and MULTI_SELECT.
	Start ir.SelectionPoint
	End   ir.SelectionPoint

	Persistent *bool

	Settings          *Settings
	BlockListSettings *BlockListSettings
	IsValid           bool
	EditingMode       EditingMode
	EditorMode        EditorMode

	// keepControlled lists controllers whose children survive a removal.
	// Set internally when REPLACE_INNER_BLOCKS clears a list.
	keepControlled map[string]bool
}

// LogValue implements slog.LogValuer with the fields worth tracing.
func (a Action) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", string(a.Type))}
	if a.ClientID != "" {
		attrs = append(attrs, slog.String("client_id", a.ClientID))
	}
	if len(a.ClientIDs) > 0 {
		attrs = append(attrs, slog.Any("client_ids", a.ClientIDs))
	}
	if a.RootClientID != "" {
		attrs = append(attrs, slog.String("root_client_id", a.RootClientID))
	}
	if a.Blocks != nil {
		attrs = append(attrs, slog.Any("blocks", ir.ClientIDs(a.Blocks)))
	}
	return slog.GroupValue(attrs...)
}
