package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/editor"
)

// Project is everything a CUE declaration file configures: the block type
// registry, named templates, and editor settings.
type Project struct {
	Registry  *blocks.Registry
	Templates map[string]blocks.Template
	Settings  editor.Settings
}

// CompileProject compiles the top-level blockTypes, defaultBlock,
// templates, and settings fields of v.
func CompileProject(v cue.Value, opts ...blocks.RegistryOption) (*Project, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	registry, err := CompileRegistry(v, opts...)
	if err != nil {
		return nil, err
	}

	templates, err := CompileTemplates(v.LookupPath(cue.ParsePath("templates")))
	if err != nil {
		return nil, err
	}

	settings, err := CompileSettings(v.LookupPath(cue.ParsePath("settings")), templates)
	if err != nil {
		return nil, err
	}

	return &Project{Registry: registry, Templates: templates, Settings: settings}, nil
}

// CompileRegistry registers every type under blockTypes and sets
// defaultBlock when present.
func CompileRegistry(v cue.Value, opts ...blocks.RegistryOption) (*blocks.Registry, error) {
	registry := blocks.NewRegistry(opts...)

	typesVal := v.LookupPath(cue.ParsePath("blockTypes"))
	if typesVal.Exists() {
		iter, err := typesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			bt, err := CompileBlockType(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("block type %s: %w", iter.Label(), err)
			}
			if err := registry.Register(bt); err != nil {
				return nil, err
			}
		}
	}

	name, ok, err := lookupString(v, "defaultBlock")
	if err != nil {
		return nil, err
	}
	if ok {
		if err := registry.SetDefaultBlockName(name); err != nil {
			return nil, fieldError("defaultBlock", v.LookupPath(cue.ParsePath("defaultBlock")).Pos(), "%v", err)
		}
	}

	return registry, nil
}

// CompileTemplates compiles a struct of named templates. An absent value
// yields an empty map.
func CompileTemplates(v cue.Value) (map[string]blocks.Template, error) {
	templates := make(map[string]blocks.Template)
	if !v.Exists() {
		return templates, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		tmpl, err := CompileTemplate(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", iter.Label(), err)
		}
		templates[iter.Label()] = tmpl
	}
	return templates, nil
}

// CompileTemplate compiles a list of template entries. The result is never
// nil: an empty list is an empty template, not "no template".
func CompileTemplate(v cue.Value) (blocks.Template, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	tmpl := blocks.Template{}
	for iter.Next() {
		ev := iter.Value()

		name, ok, err := lookupString(ev, "name")
		if err != nil {
			return nil, err
		}
		if !ok || name == "" {
			return nil, fieldError("name", ev.Pos(), "template entry must name a block type")
		}
		entry := blocks.TemplateEntry{Name: name}

		attrsVal := ev.LookupPath(cue.ParsePath("attributes"))
		if attrsVal.Exists() {
			if entry.Attributes, err = compileObject(attrsVal); err != nil {
				return nil, err
			}
		}

		innerVal := ev.LookupPath(cue.ParsePath("innerBlocks"))
		if innerVal.Exists() {
			inner, err := CompileTemplate(innerVal)
			if err != nil {
				return nil, err
			}
			if len(inner) > 0 {
				entry.InnerBlocks = inner
			}
		}

		tmpl = append(tmpl, entry)
	}
	return tmpl, nil
}

// CompileSettings compiles the settings struct. settings.template may name
// one of templates or spell a template inline. An absent value yields the
// zero Settings.
func CompileSettings(v cue.Value, templates map[string]blocks.Template) (editor.Settings, error) {
	var s editor.Settings
	if !v.Exists() {
		return s, nil
	}
	if err := v.Err(); err != nil {
		return s, formatCUEError(err)
	}

	allowedVal := v.LookupPath(cue.ParsePath("allowedBlockTypes"))
	if allowedVal.Exists() {
		list, err := compileAllowList(allowedVal, "allowedBlockTypes")
		if err != nil {
			return s, err
		}
		s.AllowedBlockTypes = list
	}

	tmplVal := v.LookupPath(cue.ParsePath("template"))
	if tmplVal.Exists() {
		if name, err := tmplVal.String(); err == nil {
			tmpl, ok := templates[name]
			if !ok {
				return s, fieldError("template", tmplVal.Pos(), "unknown template %q", name)
			}
			s.Template = tmpl
		} else {
			tmpl, err := CompileTemplate(tmplVal)
			if err != nil {
				return s, err
			}
			s.Template = tmpl
		}
	}

	lockVal := v.LookupPath(cue.ParsePath("templateLock"))
	if lockVal.Exists() {
		lock, err := compileTemplateLock(lockVal)
		if err != nil {
			return s, err
		}
		s.TemplateLock = lock
	}

	var err error
	if s.CanLockBlocks, err = lookupBool(v, "canLockBlocks", false); err != nil {
		return s, err
	}
	if s.HasCustomAppender, err = lookupBool(v, "hasCustomAppender", false); err != nil {
		return s, err
	}
	if s.SectionRootClientID, _, err = lookupString(v, "sectionRootClientId"); err != nil {
		return s, err
	}
	return s, nil
}

// compileAllowList accepts a bool or a list of type names.
func compileAllowList(v cue.Value, field string) (editor.AllowList, error) {
	if all, err := v.Bool(); err == nil {
		if all {
			return editor.AllowAll(), nil
		}
		return editor.AllowNone(), nil
	}
	names, err := compileStrings(v, field)
	if err != nil {
		return editor.AllowList{}, fieldError(field, v.Pos(), "must be a bool or a list of block type names")
	}
	return editor.AllowOnly(names...), nil
}

// compileTemplateLock accepts false or one of the lock names.
func compileTemplateLock(v cue.Value) (editor.TemplateLock, error) {
	if locked, err := v.Bool(); err == nil {
		if locked {
			return "", fieldError("templateLock", v.Pos(), "templateLock may be false or a lock name, not true")
		}
		return editor.TemplateLockNone, nil
	}
	name, err := v.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	switch lock := editor.TemplateLock(name); lock {
	case editor.TemplateLockAll, editor.TemplateLockInsert, editor.TemplateLockContentOnly:
		return lock, nil
	default:
		return "", fieldError("templateLock", v.Pos(), "unknown template lock %q", name)
	}
}
