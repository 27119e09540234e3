package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/blocksync/internal/ir"
)

// marshalBlocks converts a block list to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so the stored text hashes like the revision ID.
func marshalBlocks(blocks []*ir.Block) (string, error) {
	if blocks == nil {
		blocks = []*ir.Block{}
	}
	data, err := ir.MarshalCanonical(blocks)
	if err != nil {
		return "", fmt.Errorf("marshal blocks: %w", err)
	}
	return string(data), nil
}

// marshalSelection converts a selection to canonical JSON TEXT.
func marshalSelection(sel ir.Selection) (string, error) {
	data, err := ir.MarshalCanonical(sel)
	if err != nil {
		return "", fmt.Errorf("marshal selection: %w", err)
	}
	return string(data), nil
}

// unmarshalBlocks parses stored block JSON. Attribute numbers go through
// ir.Object's json.Number handling, so large integers survive.
func unmarshalBlocks(data string) ([]*ir.Block, error) {
	blocks := []*ir.Block{}
	if data == "" || data == "[]" {
		return blocks, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&blocks); err != nil {
		return nil, fmt.Errorf("unmarshal blocks: %w", err)
	}
	fillEmpty(blocks)
	return blocks, nil
}

// fillEmpty restores {} and [] for fields the decoder left nil.
func fillEmpty(blocks []*ir.Block) {
	ir.Walk(blocks, func(b *ir.Block) bool {
		if b.Attributes == nil {
			b.Attributes = ir.Object{}
		}
		if b.InnerBlocks == nil {
			b.InnerBlocks = []*ir.Block{}
		}
		return true
	})
}

// unmarshalSelection parses stored selection JSON.
func unmarshalSelection(data string) (ir.Selection, error) {
	var sel ir.Selection
	if data == "" || data == "{}" {
		return sel, nil
	}
	if err := json.Unmarshal([]byte(data), &sel); err != nil {
		return ir.Selection{}, fmt.Errorf("unmarshal selection: %w", err)
	}
	return sel, nil
}
