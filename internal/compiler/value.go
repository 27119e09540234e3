package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/blocksync/internal/ir"
)

// compileValue converts a concrete CUE value into an attribute value.
// Floats are forbidden: attribute snapshots must hash deterministically.
func compileValue(v cue.Value) (ir.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for iter.Next() {
			elem, err := compileValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		return compileObject(v)
	case cue.FloatKind, cue.NumberKind:
		return nil, fieldError("value", v.Pos(), "float values are forbidden, use int instead")
	case cue.BottomKind:
		return nil, fieldError("value", v.Pos(), "value is not concrete")
	default:
		return nil, fieldError("value", v.Pos(), "unsupported value kind: %v", v.Kind())
	}
}

// compileObject converts a CUE struct into an Object.
func compileObject(v cue.Value) (ir.Object, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	obj := ir.Object{}
	for iter.Next() {
		elem, err := compileValue(iter.Value())
		if err != nil {
			return nil, err
		}
		obj[iter.Label()] = elem
	}
	return obj, nil
}

// extractTypeName converts a CUE type to an attribute type string.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "integer", nil
	case cue.BoolKind:
		return "boolean", nil
	case cue.ListKind:
		return "array", nil
	case cue.StructKind:
		return "object", nil
	case cue.FloatKind, cue.NumberKind:
		return "", fieldError("type", v.Pos(), "float types are forbidden, use int instead")
	default:
		return "", fieldError("type", v.Pos(), "unsupported type kind: %v", v.IncompleteKind())
	}
}

// lookupString returns the string at field, and whether it exists.
func lookupString(v cue.Value, field string) (string, bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", false, nil
	}
	s, err := f.String()
	if err != nil {
		return "", true, formatCUEError(err)
	}
	return s, true, nil
}

// lookupBool returns the bool at field, or def when it is absent.
func lookupBool(v cue.Value, field string, def bool) (bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return def, nil
	}
	b, err := f.Bool()
	if err != nil {
		return def, formatCUEError(err)
	}
	return b, nil
}

// lookupStrings returns the string list at field. An absent field yields
// nil; a present empty list yields an empty, non-nil slice.
func lookupStrings(v cue.Value, field string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return nil, nil
	}
	return compileStrings(f, field)
}

func compileStrings(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, fieldError(field, v.Pos(), "must be a list of strings")
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, fieldError(field, iter.Value().Pos(), "must be a list of strings: %v", err)
		}
		out = append(out, s)
	}
	return out, nil
}
