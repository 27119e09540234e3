package blocks

import (
	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/richtext"
)

// StartOfSelectedArea is the in-band caret marker used by SentinelMerge.
// It is a C1 control character that never appears in user text.
const StartOfSelectedArea = "\u0086"

// MergeCaret is the caret handed to a merge function, tagged with the side
// it sits on.
type MergeCaret struct {
	Caret

	// InSource is true when the caret is in the block being merged in,
	// false when it is in the target.
	InSource bool
}

// MergeFunc combines the attributes of a target block with those of the
// block merged into it. It returns the attributes to overlay on the target.
//
// If caret is non-nil the function reports where that caret lands in the
// merged attributes, or nil if it cannot tell.
type MergeFunc func(target, source ir.Object, caret *MergeCaret) (ir.Object, *Caret)

// LegacyMergeFunc is a merge function that knows nothing about carets.
type LegacyMergeFunc func(target, source ir.Object) ir.Object

// ConcatMerge joins one text attribute of both blocks with separator.
// A caret on that attribute keeps its position relative to the text it was
// in.
func ConcatMerge(attribute, separator string) MergeFunc {
	return func(target, source ir.Object, caret *MergeCaret) (ir.Object, *Caret) {
		head := richtext.New(target.String(attribute))
		sep := richtext.New(separator)
		tail := richtext.New(source.String(attribute))

		merged := ir.Object{
			attribute: ir.String(richtext.Concat(head, sep, tail).String()),
		}

		if caret == nil || caret.Key != attribute {
			return merged, nil
		}
		offset := caret.Offset
		if caret.InSource {
			offset += head.Len() + sep.Len()
		}
		return merged, &Caret{Key: attribute, Offset: offset}
	}
}

// SentinelMerge adapts a merge function that cannot take a caret. The caret
// is encoded in-band: StartOfSelectedArea is inserted at the caret before the
// merge and searched for (then stripped) in the result.
func SentinelMerge(legacy LegacyMergeFunc) MergeFunc {
	return func(target, source ir.Object, caret *MergeCaret) (ir.Object, *Caret) {
		if caret == nil {
			return legacy(target, source), nil
		}

		marked := target
		if caret.InSource {
			marked = source
		}
		text := richtext.New(marked.String(caret.Key))
		marked = marked.Merge(ir.Object{
			caret.Key: ir.String(text.Insert(StartOfSelectedArea, caret.Offset, caret.Offset).String()),
		})
		if caret.InSource {
			source = marked
		} else {
			target = marked
		}

		merged := legacy(target, source)
		return stripSentinel(merged)
	}
}

// stripSentinel finds the marker in the merged attributes, removes it, and
// reports its position.
func stripSentinel(attrs ir.Object) (ir.Object, *Caret) {
	for _, key := range attrs.SortedKeys() {
		s, ok := attrs[key].(ir.String)
		if !ok {
			continue
		}
		value := richtext.New(string(s))
		idx := value.Index(StartOfSelectedArea)
		if idx < 0 {
			continue
		}
		cleaned := attrs.Merge(ir.Object{
			key: ir.String(value.Remove(idx, idx+1).String()),
		})
		return cleaned, &Caret{Key: key, Offset: idx}
	}
	return attrs, nil
}
