package compiler

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrNoDefaultBlock = "E100" // no default block type

	// Block type reference errors (E101-E104)
	ErrUnknownParentType    = "E101" // parent/ancestor names an unregistered type
	ErrUnknownAllowedType   = "E102" // allowedBlocks names an unregistered type
	ErrUnknownTransformType = "E103" // transform names an unregistered type
	ErrTransformAttribute   = "E104" // transform maps an undeclared attribute

	// Attribute errors (E105-E106)
	ErrDefaultTypeMismatch = "E105" // default does not match the declared type
	ErrRichTextNotString   = "E106" // rich-text attribute is not a string

	// Template and settings errors (E107-E109)
	ErrUnknownTemplateType = "E107" // template entry names an unregistered type
	ErrUnknownSettingsType = "E108" // allowedBlockTypes names an unregistered type
	ErrUnplaceableType     = "E109" // no parent chain reaches the root
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate cross-checks a compiled project: every type name it mentions
// must be registered, defaults must match their declared types, and every
// type must be placeable somewhere.
//
// All problems are collected into a *multierror.Error (does not
// fail-fast). It returns nil when the project is valid.
func Validate(p *Project) error {
	var result *multierror.Error
	add := func(errs ...ValidationError) {
		for _, e := range errs {
			result = multierror.Append(result, e)
		}
	}

	types := p.Registry.BlockTypes()
	known := func(name string) bool {
		_, ok := p.Registry.BlockType(name)
		return ok
	}

	if p.Registry.DefaultBlockName() == "" && !p.Settings.HasCustomAppender {
		add(ValidationError{
			Field:   "defaultBlock",
			Message: "no default block type: empty documents cannot get a placeholder block",
			Code:    ErrNoDefaultBlock,
		})
	}

	for _, bt := range types {
		add(validateBlockType(bt, p.Registry, known)...)
	}

	for _, name := range UnplaceableTypes(types) {
		add(ValidationError{
			Field:   "blockTypes." + name + ".parent",
			Message: "no allowed parent chain reaches the document root",
			Code:    ErrUnplaceableType,
		})
	}

	names := sortedKeys(p.Templates)
	for _, name := range names {
		add(validateTemplate("templates."+name, p.Templates[name], known)...)
	}
	add(validateTemplate("settings.template", p.Settings.Template, known)...)

	for _, name := range p.Settings.AllowedBlockTypes.Names() {
		if !known(name) {
			add(ValidationError{
				Field:   "settings.allowedBlockTypes",
				Message: fmt.Sprintf("unknown block type %q", name),
				Code:    ErrUnknownSettingsType,
			})
		}
	}

	return result.ErrorOrNil()
}

// ValidationErrors flattens an error returned by Validate.
func ValidationErrors(err error) []ValidationError {
	if err == nil {
		return nil
	}
	var out []ValidationError
	if merr, ok := err.(*multierror.Error); ok {
		for _, e := range merr.Errors {
			if ve, ok := e.(ValidationError); ok {
				out = append(out, ve)
			}
		}
	}
	return out
}

// validateBlockType checks one type's references and attributes.
func validateBlockType(bt *blocks.BlockType, r *blocks.Registry, known func(string) bool) []ValidationError {
	var errs []ValidationError
	prefix := "blockTypes." + bt.Name

	for _, ref := range []struct {
		field string
		names []string
		code  string
	}{
		{"parent", bt.Parent, ErrUnknownParentType},
		{"ancestor", bt.Ancestor, ErrUnknownParentType},
		{"allowedBlocks", bt.AllowedBlocks, ErrUnknownAllowedType},
	} {
		for _, name := range ref.names {
			if !known(name) {
				errs = append(errs, ValidationError{
					Field:   prefix + "." + ref.field,
					Message: fmt.Sprintf("unknown block type %q", name),
					Code:    ref.code,
				})
			}
		}
	}

	for _, key := range sortedKeys(bt.Attributes) {
		attr := bt.Attributes[key]
		field := prefix + ".attributes." + key
		if attr.IsRichText() && attr.Type != "string" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("rich-text attribute must have type string, not %s", attr.Type),
				Code:    ErrRichTextNotString,
			})
		}
		if attr.Default != nil && !valueHasType(attr.Default, attr.Type) {
			errs = append(errs, ValidationError{
				Field:   field + ".default",
				Message: fmt.Sprintf("default does not match type %s", attr.Type),
				Code:    ErrDefaultTypeMismatch,
			})
		}
	}

	errs = append(errs, validateTransforms(prefix+".transforms.to", bt, bt.Transforms.To, true, r, known)...)
	errs = append(errs, validateTransforms(prefix+".transforms.from", bt, bt.Transforms.From, false, r, known)...)
	return errs
}

// validateTransforms checks transform targets and attribute mappings.
// Mappings go target attribute <- source attribute; for outgoing transforms
// bt is the source, for incoming ones it is the target.
func validateTransforms(field string, bt *blocks.BlockType, ts []blocks.Transform, outgoing bool, r *blocks.Registry, known func(string) bool) []ValidationError {
	var errs []ValidationError
	for i, t := range ts {
		tfield := fmt.Sprintf("%s[%d]", field, i)
		for _, other := range t.Blocks {
			if !known(other) {
				errs = append(errs, ValidationError{
					Field:   tfield + ".blocks",
					Message: fmt.Sprintf("unknown block type %q", other),
					Code:    ErrUnknownTransformType,
				})
				continue
			}
			otherType, _ := r.BlockType(other)
			source, target := bt, otherType
			if !outgoing {
				source, target = otherType, bt
			}
			for _, targetKey := range sortedKeys(t.Attributes) {
				sourceKey := t.Attributes[targetKey]
				if _, ok := target.Attributes[targetKey]; !ok {
					errs = append(errs, ValidationError{
						Field:   tfield + ".attributes." + targetKey,
						Message: fmt.Sprintf("%s has no attribute %q", target.Name, targetKey),
						Code:    ErrTransformAttribute,
					})
				}
				if _, ok := source.Attributes[sourceKey]; !ok {
					errs = append(errs, ValidationError{
						Field:   tfield + ".attributes." + targetKey,
						Message: fmt.Sprintf("%s has no attribute %q", source.Name, sourceKey),
						Code:    ErrTransformAttribute,
					})
				}
			}
		}
	}
	return errs
}

// validateTemplate checks that every entry names a registered type.
func validateTemplate(field string, tmpl blocks.Template, known func(string) bool) []ValidationError {
	var errs []ValidationError
	for i, entry := range tmpl {
		efield := fmt.Sprintf("%s[%d]", field, i)
		if !known(entry.Name) {
			errs = append(errs, ValidationError{
				Field:   efield + ".name",
				Message: fmt.Sprintf("unknown block type %q", entry.Name),
				Code:    ErrUnknownTemplateType,
			})
		}
		errs = append(errs, validateTemplate(efield+".innerBlocks", entry.InnerBlocks, known)...)
	}
	return errs
}

// valueHasType reports whether v is a value of the attribute type typ.
// Null matches every type.
func valueHasType(v ir.Value, typ string) bool {
	switch v.(type) {
	case ir.Null:
		return true
	case ir.String:
		return typ == "string"
	case ir.Int:
		return typ == "integer"
	case ir.Bool:
		return typ == "boolean"
	case ir.Array:
		return typ == "array"
	case ir.Object:
		return typ == "object"
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
