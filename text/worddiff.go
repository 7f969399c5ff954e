package text

import "unicode"

// isSpace reports whether r is whitespace in the sense of the \s class of
// ECMAScript regular expressions: unicode.IsSpace without U+0085, plus U+FEFF.
func isSpace(r rune) bool {
	switch r {
	case '\u0085':
		return false
	case '\ufeff':
		return true
	}
	return unicode.IsSpace(r)
}

// splitWords splits a line into alternating word and whitespace tokens.
// The first and last tokens are always words, which may be empty when the line
// starts or ends with whitespace, so joining the tokens gives back the line.
func splitWords(line string) []string {
	var tokens []string
	start := 0
	inSpace := false

	for i, r := range line {
		space := isSpace(r)
		if space != inSpace {
			tokens = append(tokens, line[start:i])
			start = i
			inSpace = space
		}
	}
	tokens = append(tokens, line[start:])
	if inSpace {
		tokens = append(tokens, "")
	}

	return tokens
}

// ComputeWordDiff computes a token-level diff between two lines for inline
// highlighting. Whitespace runs are kept as their own tokens. Unlike
// ComputeLineDiff there is no look-ahead: unequal tokens at the cursors are
// always emitted as a removed/added pair. Word operations carry no line numbers.
func ComputeWordDiff(oldLine, newLine string) []Operation {
	oldWords := splitWords(oldLine)
	newWords := splitWords(newLine)

	diff := make([]Operation, 0, max(len(oldWords), len(newWords)))
	i, j := 0, 0

	for i < len(oldWords) || j < len(newWords) {
		switch {
		case i >= len(oldWords):
			diff = append(diff, Operation{Kind: OpAdded, Content: newWords[j]})
			j++
		case j >= len(newWords):
			diff = append(diff, Operation{Kind: OpRemoved, Content: oldWords[i]})
			i++
		case oldWords[i] == newWords[j]:
			diff = append(diff, Operation{Kind: OpUnchanged, Content: oldWords[i]})
			i++
			j++
		default:
			diff = append(diff,
				Operation{Kind: OpRemoved, Content: oldWords[i]},
				Operation{Kind: OpAdded, Content: newWords[j]},
			)
			i++
			j++
		}
	}

	return diff
}
