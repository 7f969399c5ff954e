package text

import (
	"testing"

	"taleweaver/assert"
)

func pairContents(p LinePair) (string, string) {
	oldContent, newContent := "<nil>", "<nil>"
	if p.Old != nil {
		oldContent = p.Old.Content
	}
	if p.New != nil {
		newContent = p.New.Content
	}
	return oldContent, newContent
}

func TestSplitPairs_ZipsSubstitutions(t *testing.T) {
	diff := ComputeLineDiff("a\nb\nc", "a\nx\ny\nc")
	pairs := SplitPairs(diff)

	expected := [][2]string{
		{"a", "a"},
		{"b", "x"},
		{"<nil>", "y"},
		{"c", "c"},
	}

	assert.Len(t, len(expected), pairs, "number of rows")
	for i := 0; i < len(expected) && i < len(pairs); i++ {
		oldContent, newContent := pairContents(pairs[i])
		assert.Equal(t, expected[i][0], oldContent, "old cell")
		assert.Equal(t, expected[i][1], newContent, "new cell")
	}
}

func TestSplitPairs_RemovalOnly(t *testing.T) {
	pairs := SplitPairs(ComputeLineDiff("a\nb", "a"))

	assert.Len(t, 2, pairs, "number of rows")
	assert.NotNil(t, pairs[1].Old, "removed line on the left")
	assert.Nil(t, pairs[1].New, "nothing on the right")
	assert.Equal(t, 2, pairs[1].Old.OldLineNumber, "old line number")
}

func TestSplitPairs_CoversEveryOperation(t *testing.T) {
	diff := ComputeLineDiff("one\ntwo\nthree\nfour", "zero\none\n2\nthree\n4\nfive")
	pairs := SplitPairs(diff)

	seen := 0
	for _, p := range pairs {
		assert.True(t, p.Old != nil || p.New != nil, "row has a cell")
		if p.Old != nil && p.Old == p.New {
			seen++
			continue
		}
		if p.Old != nil {
			seen++
		}
		if p.New != nil {
			seen++
		}
	}
	assert.Equal(t, len(diff), seen, "every operation placed once")
}

func TestSplitPairs_Empty(t *testing.T) {
	assert.Len(t, 0, SplitPairs(nil), "no rows")
}
