package editor

import (
	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/ir"
)

// Registry is the block-type collaborator the store consults for policy
// checks, block creation, and merges. *blocks.Registry implements it.
type Registry interface {
	BlockType(name string) (*blocks.BlockType, bool)
	DefaultBlockName() string
	Generation() uint64

	CreateBlock(name string, attrs ir.Object, inner []*ir.Block) *ir.Block
	CloneBlock(block *ir.Block, mergeAttrs ir.Object, inner []*ir.Block) *ir.Block
	SwitchToBlockType(block *ir.Block, target string, caret *blocks.Caret) ([]*ir.Block, *blocks.Caret)
	IsUnmodifiedDefaultBlock(block *ir.Block) bool

	HasContentRoleAttribute(name string) bool
	HasBlockSupport(name string, flag func(blocks.Supports) bool, def bool) bool
}

// TemplateValidator checks and repairs block lists against templates.
// blocks.TemplateValidator implements it.
type TemplateValidator interface {
	DoBlocksMatchTemplate(blocks []*ir.Block, template blocks.Template) bool
	SynchronizeBlocksWithTemplate(blocks []*ir.Block, template blocks.Template) []*ir.Block
}

var _ Registry = (*blocks.Registry)(nil)
