package text

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Similarity returns a score in [0, 1] describing how close newText is to
// oldText, computed as 1 - levenshtein/maxLen over a character diff.
// Two empty texts are identical.
func Similarity(oldText, newText string) float64 {
	maxLen := max(utf8.RuneCountInString(oldText), utf8.RuneCountInString(newText))
	if maxLen == 0 {
		return 1.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, true)
	distance := dmp.DiffLevenshtein(diffs)

	score := 1.0 - float64(distance)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}
