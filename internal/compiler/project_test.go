package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/editor"
	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/testutil"
)

func loadTestProject(t *testing.T) cue.Value {
	t.Helper()
	path := filepath.Join("testdata", "blocks", "blocks.cue")
	src, err := os.ReadFile(path)
	require.NoError(t, err)

	v := cuecontext.New().CompileBytes(src, cue.Filename(path))
	require.NoError(t, v.Err())
	return v
}

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileProject_Testdata(t *testing.T) {
	p, err := CompileProject(loadTestProject(t), blocks.WithIDGenerator(testutil.NewSequentialIDs("")))
	require.NoError(t, err)

	names := make([]string, 0)
	for _, bt := range p.Registry.BlockTypes() {
		names = append(names, bt.Name)
	}
	assert.Equal(t, []string{
		"core/column", "core/columns", "core/group", "core/heading",
		"core/list", "core/list-item", "core/more", "core/paragraph",
	}, names)
	assert.Equal(t, "core/paragraph", p.Registry.DefaultBlockName())

	require.Contains(t, p.Templates, "post")
	require.Contains(t, p.Templates, "columns")
	assert.Len(t, p.Templates["columns"][0].InnerBlocks, 2)

	assert.Equal(t, p.Templates["post"], p.Settings.Template, "settings.template resolves by name")
	assert.Equal(t, editor.TemplateLockNone, p.Settings.TemplateLock)
	assert.True(t, p.Settings.CanLockBlocks)
	assert.True(t, p.Settings.AllowedBlockTypes.IsSet())

	assert.NoError(t, Validate(p), "the sample project is valid")
}

func TestCompileProject_RegistryDrivesEditor(t *testing.T) {
	p, err := CompileProject(loadTestProject(t), blocks.WithIDGenerator(testutil.NewSequentialIDs("")))
	require.NoError(t, err)

	s := editor.New(p.Registry, editor.WithSettings(p.Settings))
	assert.True(t, s.CanInsertBlockType("core/paragraph", ""))
	assert.False(t, s.CanInsertBlockType("core/column", ""), "column only goes inside columns")

	block := &ir.Block{
		ClientID:    "p1",
		Name:        "core/paragraph",
		IsValid:     true,
		Attributes:  ir.Object{"content": ir.String("Title")},
		InnerBlocks: []*ir.Block{},
	}
	switched, _ := p.Registry.SwitchToBlockType(block, "core/heading", nil)
	require.Len(t, switched, 1)
	assert.Equal(t, "core/heading", switched[0].Name)
	assert.Equal(t, "Title", switched[0].Attributes.String("content"))
	assert.Equal(t, ir.Int(2), switched[0].Attributes["level"])
}

func TestCompileRegistry_UnknownDefaultBlock(t *testing.T) {
	v := compileString(t, `
blockTypes: "core/paragraph": {}
defaultBlock: "core/missing-type"
`)
	_, err := CompileRegistry(v)
	require.Error(t, err)

	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "defaultBlock", compileErr.Field)
}

func TestCompileRegistry_WrapsTypeErrors(t *testing.T) {
	v := compileString(t, `blockTypes: "core/a": merge: strategy: "splice"`)
	_, err := CompileRegistry(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block type core/a")
}

func TestCompileTemplate(t *testing.T) {
	v := compileString(t, `
tmpl: [
	{name: "core/heading", attributes: {level: 1, content: "Hello"}},
	{name: "core/group", innerBlocks: [{name: "core/paragraph"}]},
	{name: "core/separator", innerBlocks: []},
]
`)
	tmpl, err := CompileTemplate(v.LookupPath(cue.ParsePath("tmpl")))
	require.NoError(t, err)

	require.Len(t, tmpl, 3)
	assert.Equal(t, ir.Object{"level": ir.Int(1), "content": ir.String("Hello")}, tmpl[0].Attributes)
	require.Len(t, tmpl[1].InnerBlocks, 1)
	assert.Equal(t, "core/paragraph", tmpl[1].InnerBlocks[0].Name)
	assert.Nil(t, tmpl[2].InnerBlocks)
}

func TestCompileTemplate_Empty(t *testing.T) {
	v := compileString(t, `tmpl: []`)
	tmpl, err := CompileTemplate(v.LookupPath(cue.ParsePath("tmpl")))
	require.NoError(t, err)
	assert.NotNil(t, tmpl, "an empty template is not the absence of one")
	assert.Empty(t, tmpl)
}

func TestCompileTemplate_MissingName(t *testing.T) {
	v := compileString(t, `tmpl: [{attributes: {}}]`)
	_, err := CompileTemplate(v.LookupPath(cue.ParsePath("tmpl")))

	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "name", compileErr.Field)
}

func TestCompileSettings(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		check func(t *testing.T, s editor.Settings)
	}{
		{
			name: "absent",
			src:  `other: 1`,
			check: func(t *testing.T, s editor.Settings) {
				assert.Equal(t, editor.Settings{}, s)
			},
		},
		{
			name: "allow list",
			src:  `settings: allowedBlockTypes: ["core/paragraph"]`,
			check: func(t *testing.T, s editor.Settings) {
				assert.Equal(t, []string{"core/paragraph"}, s.AllowedBlockTypes.Names())
			},
		},
		{
			name: "allow none",
			src:  `settings: allowedBlockTypes: false`,
			check: func(t *testing.T, s editor.Settings) {
				assert.Equal(t, editor.AllowNone(), s.AllowedBlockTypes)
			},
		},
		{
			name: "inline template with lock",
			src:  `settings: { template: [{name: "core/paragraph"}], templateLock: "contentOnly", hasCustomAppender: true, sectionRootClientId: "root" }`,
			check: func(t *testing.T, s editor.Settings) {
				require.Len(t, s.Template, 1)
				assert.Equal(t, editor.TemplateLockContentOnly, s.TemplateLock)
				assert.True(t, s.HasCustomAppender)
				assert.Equal(t, "root", s.SectionRootClientID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileString(t, tt.src)
			s, err := CompileSettings(v.LookupPath(cue.ParsePath("settings")), nil)
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestCompileSettings_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"unknown template", `settings: template: "missing"`, "template"},
		{"lock true", `settings: templateLock: true`, "templateLock"},
		{"unknown lock", `settings: templateLock: "everything"`, "templateLock"},
		{"allow list of ints", `settings: allowedBlockTypes: [1]`, "allowedBlockTypes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileString(t, tt.src)
			_, err := CompileSettings(v.LookupPath(cue.ParsePath("settings")), map[string]blocks.Template{})

			var compileErr *CompileError
			require.True(t, errors.As(err, &compileErr), "got %v", err)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}
