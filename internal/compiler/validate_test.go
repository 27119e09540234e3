package compiler

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/editor"
	"github.com/roach88/blocksync/internal/ir"
)

func projectWith(t *testing.T, defaultBlock string, types ...*blocks.BlockType) *Project {
	t.Helper()
	r := blocks.NewRegistry()
	for _, bt := range types {
		require.NoError(t, r.Register(bt))
	}
	if defaultBlock != "" {
		require.NoError(t, r.SetDefaultBlockName(defaultBlock))
	}
	return &Project{Registry: r, Templates: map[string]blocks.Template{}}
}

func paragraphType() *blocks.BlockType {
	return &blocks.BlockType{
		Name: "core/paragraph",
		Attributes: map[string]blocks.AttributeSchema{
			"content": {Type: "string", Source: blocks.SourceRichText, Default: ir.String("")},
		},
		Supports: blocks.DefaultSupports(),
	}
}

func codes(err error) []string {
	var out []string
	for _, ve := range ValidationErrors(err) {
		out = append(out, ve.Code)
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	p := projectWith(t, "core/paragraph", paragraphType())
	assert.NoError(t, Validate(p))
}

func TestValidate_NoDefaultBlock(t *testing.T) {
	p := projectWith(t, "", paragraphType())
	assert.Equal(t, []string{ErrNoDefaultBlock}, codes(Validate(p)))

	p.Settings.HasCustomAppender = true
	assert.NoError(t, Validate(p), "a custom appender needs no default block")
}

func TestValidate_UnknownReferences(t *testing.T) {
	child := &blocks.BlockType{
		Name:          "core/child",
		Parent:        []string{"core/paragraph", "core/nowhere"},
		Ancestor:      []string{"core/gone"},
		AllowedBlocks: []string{"core/ghost"},
	}
	p := projectWith(t, "core/paragraph", paragraphType(), child)

	assert.Equal(t, []string{ErrUnknownParentType, ErrUnknownParentType, ErrUnknownAllowedType}, codes(Validate(p)))
}

func TestValidate_Attributes(t *testing.T) {
	bt := &blocks.BlockType{
		Name: "core/bad",
		Attributes: map[string]blocks.AttributeSchema{
			"a": {Type: "integer", Default: ir.String("one")},
			"b": {Type: "array", Source: blocks.SourceHTML},
			"c": {Type: "object", Default: ir.Null{}},
		},
	}
	p := projectWith(t, "core/paragraph", paragraphType(), bt)

	errs := ValidationErrors(Validate(p))
	require.Len(t, errs, 2)
	assert.Equal(t, ErrDefaultTypeMismatch, errs[0].Code)
	assert.Equal(t, "blockTypes.core/bad.attributes.a.default", errs[0].Field)
	assert.Equal(t, ErrRichTextNotString, errs[1].Code)
}

func TestValidate_Transforms(t *testing.T) {
	heading := &blocks.BlockType{
		Name: "core/heading",
		Attributes: map[string]blocks.AttributeSchema{
			"content": {Type: "string", Source: blocks.SourceRichText},
		},
		Transforms: blocks.Transforms{
			To: []blocks.Transform{
				{Blocks: []string{"core/paragraph"}, Attributes: map[string]string{"content": "text"}},
				{Blocks: []string{"core/unknown"}},
			},
			From: []blocks.Transform{
				{Blocks: []string{"core/paragraph"}, Attributes: map[string]string{"title": "content"}},
			},
		},
	}
	p := projectWith(t, "core/paragraph", paragraphType(), heading)

	errs := ValidationErrors(Validate(p))
	require.Len(t, errs, 3)
	assert.Equal(t, ErrTransformAttribute, errs[0].Code)
	assert.Contains(t, errs[0].Message, `core/heading has no attribute "text"`)
	assert.Equal(t, ErrUnknownTransformType, errs[1].Code)
	assert.Equal(t, ErrTransformAttribute, errs[2].Code)
	assert.Contains(t, errs[2].Message, `core/heading has no attribute "title"`)
}

func TestValidate_TemplatesAndSettings(t *testing.T) {
	p := projectWith(t, "core/paragraph", paragraphType())
	p.Templates["post"] = blocks.Template{
		{Name: "core/paragraph", InnerBlocks: blocks.Template{{Name: "core/nested-missing"}}},
	}
	p.Settings = editor.Settings{
		Template:          blocks.Template{{Name: "core/top-missing"}},
		AllowedBlockTypes: editor.AllowOnly("core/paragraph", "core/embed"),
	}

	errs := ValidationErrors(Validate(p))
	require.Len(t, errs, 3)
	assert.Equal(t, "templates.post[0].innerBlocks[0].name", errs[0].Field)
	assert.Equal(t, ErrUnknownTemplateType, errs[0].Code)
	assert.Equal(t, "settings.template[0].name", errs[1].Field)
	assert.Equal(t, ErrUnknownSettingsType, errs[2].Code)
}

func TestValidate_Unplaceable(t *testing.T) {
	a := &blocks.BlockType{Name: "core/a", Parent: []string{"core/b"}}
	b := &blocks.BlockType{Name: "core/b", Parent: []string{"core/a"}}
	p := projectWith(t, "core/paragraph", paragraphType(), a, b)

	errs := ValidationErrors(Validate(p))
	require.Len(t, errs, 2)
	assert.Equal(t, ErrUnplaceableType, errs[0].Code)
	assert.Equal(t, "blockTypes.core/a.parent", errs[0].Field)
	assert.Equal(t, "blockTypes.core/b.parent", errs[1].Field)
}

func TestValidate_AggregatesMultiError(t *testing.T) {
	p := projectWith(t, "", &blocks.BlockType{Name: "core/x", AllowedBlocks: []string{"core/y"}})

	err := Validate(p)
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "[E100]")
	assert.Contains(t, err.Error(), "[E102]")
}

func TestValidationError_Format(t *testing.T) {
	err := ValidationError{Field: "defaultBlock", Message: "missing", Code: ErrNoDefaultBlock}
	assert.Equal(t, "[E100] defaultBlock: missing", err.Error())

	err.Line = 7
	assert.Equal(t, "[E100] line 7: defaultBlock: missing", err.Error())
}
