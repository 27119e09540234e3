package ir

// Caret positions used for the initial position of a newly selected block.
const (
	CaretStart = 0
	CaretEnd   = -1
)

// SelectionPoint locates one end of the selection. A point with an empty
// ClientID means nothing is selected. AttributeKey and Offset are set only
// when the point sits inside a rich-text attribute.
type SelectionPoint struct {
	ClientID     string `json:"clientId,omitempty" yaml:"client_id,omitempty"`
	AttributeKey string `json:"attributeKey,omitempty" yaml:"attribute_key,omitempty"`
	Offset       *int   `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// HasCaret reports whether the point carries a text caret.
func (p SelectionPoint) HasCaret() bool {
	return p.AttributeKey != "" && p.Offset != nil
}

// Equal compares two points by value.
func (p SelectionPoint) Equal(o SelectionPoint) bool {
	return p.ClientID == o.ClientID &&
		p.AttributeKey == o.AttributeKey &&
		intPtrEqual(p.Offset, o.Offset)
}

// Selection is the pair of selection endpoints plus the caret placement hint
// for a block that was just selected (CaretStart, CaretEnd, or nil).
type Selection struct {
	Start           SelectionPoint `json:"selectionStart" yaml:"start"`
	End             SelectionPoint `json:"selectionEnd" yaml:"end"`
	InitialPosition *int           `json:"initialPosition" yaml:"initial_position,omitempty"`
}

// Equal compares two selections by value.
func (s Selection) Equal(o Selection) bool {
	return s.Start.Equal(o.Start) && s.End.Equal(o.End) &&
		intPtrEqual(s.InitialPosition, o.InitialPosition)
}

// Offset returns a pointer to n, for optional offsets and caret positions.
func Offset(n int) *int {
	return &n
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
