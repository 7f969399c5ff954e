package text

import (
	"testing"

	"taleweaver/assert"
)

func TestSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""), "empty texts")
	assert.Equal(t, 1.0, Similarity("same story", "same story"), "identical texts")
}

func TestSimilarity_Disjoint(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("abc", ""), "everything removed")
	assert.Equal(t, 0.0, Similarity("", "abc"), "everything added")
}

func TestSimilarity_Partial(t *testing.T) {
	small := Similarity("The cat sat on the mat.", "The cat sat on the hat.")
	large := Similarity("The cat sat on the mat.", "A dog ran through the park!")

	assert.True(t, small > 0 && small < 1, "small edit in range")
	assert.True(t, large >= 0 && large < 1, "large edit in range")
	assert.True(t, small > large, "small edit scores higher")
}
