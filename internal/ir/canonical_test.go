package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"bool", Bool(false), "false"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"sorted keys", Object{"zebra": Int(1), "alpha": Int(2)}, `{"alpha":2,"zebra":1}`},
		{"plain go data", map[string]any{"b": 1, "a": []any{"x"}}, `{"a":["x"],"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<strong>a & b</strong>"))
	require.NoError(t, err)
	assert.Equal(t, `"<strong>a & b</strong>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute normalizes to the precomposed form.
	decomposed, err := MarshalCanonical(String("cafe\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(String("caf\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(result))

	// A literal backslash followed by the text "u2028" stays escaped.
	result, err = MarshalCanonical(String(`a\u2028b`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(result))
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.25})
	assert.Error(t, err)
}

func TestMarshalCanonicalBlocks(t *testing.T) {
	blocks := []*Block{{
		ClientID:   "a",
		Name:       "core/paragraph",
		IsValid:    true,
		Attributes: Object{"content": String("hi")},
		InnerBlocks: []*Block{{
			ClientID: "b",
			Name:     "core/paragraph",
		}},
	}}

	result, err := MarshalCanonical(blocks)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"attributes":{"content":"hi"},"clientId":"a","innerBlocks":[{"attributes":{},"clientId":"b","innerBlocks":[],"isValid":false,"name":"core/paragraph"}],"isValid":true,"name":"core/paragraph"}]`,
		string(result))
}

func TestMarshalCanonicalSelection(t *testing.T) {
	sel := Selection{
		Start:           SelectionPoint{ClientID: "a", AttributeKey: "content", Offset: Offset(3)},
		End:             SelectionPoint{ClientID: "a", AttributeKey: "content", Offset: Offset(3)},
		InitialPosition: Offset(CaretEnd),
	}
	result, err := MarshalCanonical(sel)
	require.NoError(t, err)
	assert.Equal(t,
		`{"initialPosition":-1,"selectionEnd":{"attributeKey":"content","clientId":"a","offset":3},"selectionStart":{"attributeKey":"content","clientId":"a","offset":3}}`,
		string(result))
}
