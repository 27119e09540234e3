// Package richtext is the minimal rich-text model the merge and split
// algorithms operate on.
//
// A Value is NFC-normalized text addressed by rune offsets. Line breaks are
// "\n". Formatting is out of scope; attributes carry the text verbatim.
package richtext

import (
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// LineBreak is the line separator inside a multi-line value.
const LineBreak = "\n"

// Value is an immutable rich-text value.
type Value struct {
	text []rune
}

// New creates a Value from attribute text. The text is NFC-normalized so
// offsets agree with the canonical form the revision journal hashes.
func New(s string) Value {
	return Value{text: []rune(norm.NFC.String(s))}
}

// String returns the value's text.
func (v Value) String() string {
	return string(v.text)
}

// Len returns the length in runes.
func (v Value) Len() int {
	return len(v.text)
}

// IsEmpty reports whether the value holds no text.
func (v Value) IsEmpty() bool {
	return len(v.text) == 0
}

// Insert replaces the range [start, end) with s. Offsets are clamped to the
// value's bounds.
func (v Value) Insert(s string, start, end int) Value {
	start, end = v.clampRange(start, end)
	inserted := []rune(s)
	out := make([]rune, 0, len(v.text)-(end-start)+len(inserted))
	out = append(out, v.text[:start]...)
	out = append(out, inserted...)
	out = append(out, v.text[end:]...)
	return Value{text: out}
}

// Remove deletes the range [start, end).
func (v Value) Remove(start, end int) Value {
	return v.Insert("", start, end)
}

// Split divides the value at offset into the text before and after it.
func (v Value) Split(offset int) (Value, Value) {
	offset, _ = v.clampRange(offset, offset)
	before := append([]rune(nil), v.text[:offset]...)
	after := append([]rune(nil), v.text[offset:]...)
	return Value{text: before}, Value{text: after}
}

// Index returns the rune offset of the first occurrence of s, or -1.
func (v Value) Index(s string) int {
	text := string(v.text)
	byteIdx := strings.Index(text, s)
	if byteIdx < 0 {
		return -1
	}
	return len([]rune(text[:byteIdx]))
}

// Concat joins values in order.
func Concat(values ...Value) Value {
	var out []rune
	for _, v := range values {
		out = append(out, v.text...)
	}
	return Value{text: out}
}

// SnapToGrapheme moves offset back to the nearest grapheme cluster boundary
// so a split or caret never lands inside a cluster (an emoji with a skin
// tone modifier, a base letter with combining marks).
func (v Value) SnapToGrapheme(offset int) int {
	offset, _ = v.clampRange(offset, offset)
	boundary := 0
	g := uniseg.NewGraphemes(string(v.text))
	for g.Next() {
		next := boundary + len(g.Runes())
		if next > offset {
			return boundary
		}
		boundary = next
	}
	return boundary
}

// IsDoubleLineEnd reports whether the caret sits at the very end of a value
// that already ends in two line breaks. Pressing Enter there would add a
// third, which is the trigger for leaving the block instead.
func (v Value) IsDoubleLineEnd(caret int) bool {
	if caret != len(v.text) || len(v.text) < 2 {
		return false
	}
	return string(v.text[len(v.text)-2:]) == LineBreak+LineBreak
}

// TrimTrailingLineBreaks removes every line break at the end of the value.
func (v Value) TrimTrailingLineBreaks() Value {
	end := len(v.text)
	for end > 0 && string(v.text[end-1]) == LineBreak {
		end--
	}
	return Value{text: append([]rune(nil), v.text[:end]...)}
}

func (v Value) clampRange(start, end int) (int, int) {
	n := len(v.text)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	if end > n {
		end = n
	}
	return start, end
}
