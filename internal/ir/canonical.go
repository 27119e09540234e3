package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON. It is the only
// serialization used for content-addressed revision identity.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Floats are rejected
//
// Accepted inputs are Values, *Block, []*Block, Selection, and plain Go data
// that FromAny understands.
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case *Block:
		return marshalCanonical(BlockObject(val))
	case []*Block:
		return marshalCanonical(BlocksArray(val))
	case Selection:
		return marshalCanonical(SelectionObject(val))
	case Value:
		return marshalCanonical(val)
	default:
		converted, err := FromAny(v)
		if err != nil {
			return nil, err
		}
		return marshalCanonical(converted)
	}
}

// BlockObject converts a block into its Object form, recursively.
func BlockObject(b *Block) Object {
	attrs := b.Attributes
	if attrs == nil {
		attrs = Object{}
	}
	return Object{
		"clientId":    String(b.ClientID),
		"name":        String(b.Name),
		"isValid":     Bool(b.IsValid),
		"attributes":  attrs,
		"innerBlocks": BlocksArray(b.InnerBlocks),
	}
}

// BlocksArray converts a block list into an Array of block Objects.
func BlocksArray(blocks []*Block) Array {
	arr := make(Array, len(blocks))
	for i, b := range blocks {
		arr[i] = BlockObject(b)
	}
	return arr
}

// SelectionObject converts a selection into an Object. Unset optional
// fields are omitted.
func SelectionObject(s Selection) Object {
	obj := Object{
		"selectionStart": pointObject(s.Start),
		"selectionEnd":   pointObject(s.End),
	}
	if s.InitialPosition != nil {
		obj["initialPosition"] = Int(*s.InitialPosition)
	}
	return obj
}

func pointObject(p SelectionPoint) Object {
	obj := Object{}
	if p.ClientID != "" {
		obj["clientId"] = String(p.ClientID)
	}
	if p.AttributeKey != "" {
		obj["attributeKey"] = String(p.AttributeKey)
	}
	if p.Offset != nil {
		obj["offset"] = Int(*p.Offset)
	}
	return obj
}

func marshalCanonical(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return marshalCanonicalString(string(val))
	case Int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			elemBytes, err := marshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(elemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Object:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := marshalCanonicalString(k)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')

			valBytes, err := marshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("value for key %q: %w", k, err)
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString encodes s after NFC normalization. Only control
// characters, backslash, and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	result := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// run of backslashes is literal text and stays as is.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) &&
			data[i+1] == 'u' && data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			run := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				run++
			}
			if run%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}
