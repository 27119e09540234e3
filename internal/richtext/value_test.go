package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_InsertAndRemove(t *testing.T) {
	v := New("chicken")

	assert.Equal(t, "chick|en", v.Insert("|", 5, 5).String())
	assert.Equal(t, "chi", v.Remove(3, v.Len()).String())
	assert.Equal(t, "chicken!", v.Insert("!", 100, 100).String(), "offsets are clamped")
	assert.Equal(t, "chicken", v.String(), "values are immutable")
}

func TestValue_Split(t *testing.T) {
	before, after := New("héllo world").Split(5)
	assert.Equal(t, "héllo", before.String())
	assert.Equal(t, " world", after.String())

	before, after = New("abc").Split(0)
	assert.True(t, before.IsEmpty())
	assert.Equal(t, "abc", after.String())
}

func TestValue_IndexCountsRunes(t *testing.T) {
	v := New("日本語\u0086x")
	assert.Equal(t, 3, v.Index("\u0086"))
	assert.Equal(t, -1, v.Index("zz"))
}

func TestConcat(t *testing.T) {
	assert.Equal(t, "chicken ribs", Concat(New("chicken"), New(" "), New("ribs")).String())
	assert.True(t, Concat().IsEmpty())
}

func TestValue_NewNormalizesNFC(t *testing.T) {
	assert.Equal(t, 4, New("cafe\u0301").Len())
}

func TestValue_SnapToGrapheme(t *testing.T) {
	// Thumbs up + skin tone modifier is one cluster of two runes.
	v := New("a\U0001F44D\U0001F3FDb")

	assert.Equal(t, 1, v.SnapToGrapheme(2))
	assert.Equal(t, 3, v.SnapToGrapheme(3))
	assert.Equal(t, 4, v.SnapToGrapheme(99))
	assert.Equal(t, 0, v.SnapToGrapheme(-4))
}

func TestValue_IsDoubleLineEnd(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		caret int
		want  bool
	}{
		{"two trailing breaks at end", "line\n\n", 6, true},
		{"caret not at end", "line\n\n", 5, false},
		{"single trailing break", "line\n", 5, false},
		{"no breaks", "line", 4, false},
		{"only breaks", "\n\n", 2, true},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.text).IsDoubleLineEnd(tt.caret))
		})
	}
}

func TestValue_TrimTrailingLineBreaks(t *testing.T) {
	assert.Equal(t, "a\nb", New("a\nb\n\n").TrimTrailingLineBreaks().String())
	assert.Equal(t, "", New("\n\n").TrimTrailingLineBreaks().String())
}
