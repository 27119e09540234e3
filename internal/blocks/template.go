package blocks

import (
	"github.com/roach88/blocksync/internal/ir"
)

// TemplateEntry describes one block in a template.
type TemplateEntry struct {
	Name        string          `yaml:"name"`
	Attributes  ir.Object       `yaml:"attributes,omitempty"`
	InnerBlocks []TemplateEntry `yaml:"inner_blocks,omitempty"`
}

// Template is an ordered block layout a document is expected to follow.
// A nil Template means "no template"; an empty one means "no blocks".
type Template []TemplateEntry

// TemplateValidator checks and repairs block lists against templates.
type TemplateValidator struct {
	Registry *Registry
}

// DoBlocksMatchTemplate reports whether blocks follow template by type,
// recursively. A template entry without inner entries requires the block
// to have no children.
func (TemplateValidator) DoBlocksMatchTemplate(blocks []*ir.Block, template Template) bool {
	return blocksMatch(blocks, template)
}

func blocksMatch(blocks []*ir.Block, template Template) bool {
	if len(blocks) != len(template) {
		return false
	}
	for i, entry := range template {
		if blocks[i].Name != entry.Name || !blocksMatch(blocks[i].InnerBlocks, entry.InnerBlocks) {
			return false
		}
	}
	return true
}

// SynchronizeBlocksWithTemplate returns a block list shaped like template.
// Blocks whose type already matches their template slot are kept, with their
// children synchronized; every other slot gets a freshly created block.
// Unregistered template types become MissingBlockName placeholders.
func (v TemplateValidator) SynchronizeBlocksWithTemplate(blocks []*ir.Block, template Template) []*ir.Block {
	if template == nil {
		return blocks
	}

	out := make([]*ir.Block, len(template))
	for i, entry := range template {
		if i < len(blocks) && blocks[i].Name == entry.Name {
			existing := blocks[i]
			inner := existing.InnerBlocks
			if entry.InnerBlocks != nil {
				inner = v.SynchronizeBlocksWithTemplate(existing.InnerBlocks, entry.InnerBlocks)
			}
			out[i] = &ir.Block{
				ClientID:    existing.ClientID,
				Name:        existing.Name,
				IsValid:     existing.IsValid,
				Attributes:  existing.Attributes,
				InnerBlocks: inner,
			}
			continue
		}

		name, attrs := entry.Name, entry.Attributes
		if _, ok := v.Registry.BlockType(name); !ok {
			name = MissingBlockName
			attrs = ir.Object{"originalName": ir.String(entry.Name)}
		}
		inner := v.SynchronizeBlocksWithTemplate(nil, entry.InnerBlocks)
		if inner == nil {
			inner = []*ir.Block{}
		}
		out[i] = v.Registry.CreateBlock(name, attrs, inner)
	}
	return out
}
