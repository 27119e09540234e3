package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/blocksync/internal/blocks"
)

// MergeStrategyConcat joins the rich-text attribute of two blocks.
const MergeStrategyConcat = "concat"

// attributeTypes are the accepted attribute "type" values.
var attributeTypes = []string{"string", "integer", "boolean", "array", "object", "null"}

// CompileBlockType parses a CUE value into a BlockType.
//
// The CUE value should be the block type struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`blockTypes: "core/paragraph": { ... }`)
//	bt, err := CompileBlockType(v.LookupPath(cue.ParsePath(`blockTypes."core/paragraph"`)))
func CompileBlockType(v cue.Value) (*blocks.BlockType, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	bt := &blocks.BlockType{
		Attributes: make(map[string]blocks.AttributeSchema),
		Supports:   blocks.DefaultSupports(),
	}

	// Name comes from the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		bt.Name = labels[len(labels)-1].Unquoted()
	}
	if bt.Name == "" {
		return nil, fieldError("name", v.Pos(), "block type must be declared under a name")
	}

	title, _, err := lookupString(v, "title")
	if err != nil {
		return nil, err
	}
	bt.Title = title

	bt.Attributes, err = parseAttributes(v)
	if err != nil {
		return nil, err
	}

	if bt.Parent, err = lookupStrings(v, "parent"); err != nil {
		return nil, err
	}
	if bt.Ancestor, err = lookupStrings(v, "ancestor"); err != nil {
		return nil, err
	}
	if bt.AllowedBlocks, err = lookupStrings(v, "allowedBlocks"); err != nil {
		return nil, err
	}

	bt.Supports, err = parseSupports(v)
	if err != nil {
		return nil, err
	}

	bt.Merge, err = parseMerge(v, bt)
	if err != nil {
		return nil, err
	}

	bt.Transforms.To, err = parseTransforms(v, "transforms.to")
	if err != nil {
		return nil, err
	}
	bt.Transforms.From, err = parseTransforms(v, "transforms.from")
	if err != nil {
		return nil, err
	}

	return bt, nil
}

// parseAttributes extracts attribute schemas.
func parseAttributes(v cue.Value) (map[string]blocks.AttributeSchema, error) {
	attrs := make(map[string]blocks.AttributeSchema)

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return attrs, nil
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		attrVal := iter.Value()
		field := "attributes." + name

		var schema blocks.AttributeSchema
		typ, ok, err := lookupString(attrVal, "type")
		if err != nil {
			return nil, err
		}
		if !ok {
			// An attribute declared by kind alone: content: string
			typ, err = extractTypeName(attrVal)
			if err != nil {
				return nil, err
			}
		} else if !slices.Contains(attributeTypes, typ) {
			return nil, fieldError(field+".type", attrVal.Pos(), "unknown attribute type %q", typ)
		}
		schema.Type = typ

		if schema.Source, _, err = lookupString(attrVal, "source"); err != nil {
			return nil, err
		}
		if schema.Role, _, err = lookupString(attrVal, "role"); err != nil {
			return nil, err
		}

		defVal := attrVal.LookupPath(cue.ParsePath("default"))
		if defVal.Exists() {
			schema.Default, err = compileValue(defVal)
			if err != nil {
				return nil, fmt.Errorf("%s.default: %w", field, err)
			}
		}

		attrs[name] = schema
	}

	return attrs, nil
}

// parseSupports reads the capability flags. Unset flags keep their defaults.
func parseSupports(v cue.Value) (blocks.Supports, error) {
	s := blocks.DefaultSupports()

	supportsVal := v.LookupPath(cue.ParsePath("supports"))
	if !supportsVal.Exists() {
		return s, nil
	}

	var err error
	if s.Multiple, err = lookupBool(supportsVal, "multiple", s.Multiple); err != nil {
		return s, err
	}
	if s.Inserter, err = lookupBool(supportsVal, "inserter", s.Inserter); err != nil {
		return s, err
	}
	if s.Lock, err = lookupBool(supportsVal, "lock", s.Lock); err != nil {
		return s, err
	}
	if s.OnMerge, err = lookupBool(supportsVal, "onMerge", s.OnMerge); err != nil {
		return s, err
	}
	return s, nil
}

// parseMerge builds the type's merge function. A type without a merge
// block cannot be merged.
func parseMerge(v cue.Value, bt *blocks.BlockType) (blocks.MergeFunc, error) {
	mergeVal := v.LookupPath(cue.ParsePath("merge"))
	if !mergeVal.Exists() {
		return nil, nil
	}

	strategy, _, err := lookupString(mergeVal, "strategy")
	if err != nil {
		return nil, err
	}
	if strategy == "" {
		strategy = MergeStrategyConcat
	}
	if strategy != MergeStrategyConcat {
		return nil, fieldError("merge.strategy", mergeVal.Pos(), "unknown merge strategy %q", strategy)
	}

	attribute, ok, err := lookupString(mergeVal, "attribute")
	if err != nil {
		return nil, err
	}
	if !ok {
		attribute = bt.RichTextAttributeKey()
	}
	if attribute == "" {
		return nil, fieldError("merge.attribute", mergeVal.Pos(), "concat merge needs a rich-text attribute")
	}

	separator, _, err := lookupString(mergeVal, "separator")
	if err != nil {
		return nil, err
	}

	return blocks.ConcatMerge(attribute, separator), nil
}

// parseTransforms reads a transforms.to or transforms.from list.
func parseTransforms(v cue.Value, path string) ([]blocks.Transform, error) {
	listVal := v.LookupPath(cue.ParsePath(path))
	if !listVal.Exists() {
		return nil, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []blocks.Transform
	for iter.Next() {
		tv := iter.Value()

		names, err := lookupStrings(tv, "blocks")
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fieldError(path+".blocks", tv.Pos(), "transform must name at least one block type")
		}
		t := blocks.Transform{Blocks: names}

		mapVal := tv.LookupPath(cue.ParsePath("attributes"))
		if mapVal.Exists() {
			fields, err := mapVal.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			t.Attributes = make(map[string]string)
			for fields.Next() {
				source, err := fields.Value().String()
				if err != nil {
					return nil, fieldError(path+".attributes."+fields.Label(), fields.Value().Pos(),
						"must name a source attribute")
				}
				t.Attributes[fields.Label()] = source
			}
		}

		fixedVal := tv.LookupPath(cue.ParsePath("fixed"))
		if fixedVal.Exists() {
			t.Fixed, err = compileObject(fixedVal)
			if err != nil {
				return nil, err
			}
		}

		out = append(out, t)
	}
	return out, nil
}
