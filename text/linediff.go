package text

import "strings"

// OpKind is the kind of a diff operation
type OpKind int

const (
	OpUnchanged OpKind = iota
	OpAdded
	OpRemoved
)

// String returns the name used by renderers for the kind
func (k OpKind) String() string {
	switch k {
	case OpUnchanged:
		return "unchanged"
	case OpAdded:
		return "added"
	case OpRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Marker returns the unified-view gutter marker for the kind
func (k OpKind) Marker() string {
	switch k {
	case OpAdded:
		return "+"
	case OpRemoved:
		return "-"
	default:
		return " "
	}
}

// Operation is one unit of a diff: a line (or a word token for word diffs)
// that is unchanged, added or removed.
//
// Line numbers are 1-based. Zero means absent: added operations have no
// OldLineNumber, removed operations have no NewLineNumber, and word-level
// operations carry neither.
type Operation struct {
	Kind          OpKind
	Content       string
	OldLineNumber int
	NewLineNumber int
}

func unchangedLine(content string, oldIdx, newIdx int) Operation {
	return Operation{Kind: OpUnchanged, Content: content, OldLineNumber: oldIdx + 1, NewLineNumber: newIdx + 1}
}

func addedLine(content string, newIdx int) Operation {
	return Operation{Kind: OpAdded, Content: content, NewLineNumber: newIdx + 1}
}

func removedLine(content string, oldIdx int) Operation {
	return Operation{Kind: OpRemoved, Content: content, OldLineNumber: oldIdx + 1}
}

// ComputeLineDiff computes a line-level diff from oldText to newText.
//
// Both texts are split on "\n" without dropping a trailing empty line, so ""
// is a single empty line. The matcher walks both sequences with two cursors.
// On a mismatch it looks up to LookaheadWindow lines ahead on each side for the
// closest equal pair (smallest di+dj, first found wins) and emits the skipped
// lines as removed then added. Without a match the two lines are emitted as a
// removed/added substitution. This is not a minimal diff.
func ComputeLineDiff(oldText, newText string) []Operation {
	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")
	m, n := len(oldLines), len(newLines)

	diff := make([]Operation, 0, max(m, n))
	i, j := 0, 0

	for i < m || j < n {
		switch {
		case i >= m:
			// Only new lines left
			for ; j < n; j++ {
				diff = append(diff, addedLine(newLines[j], j))
			}
		case j >= n:
			// Only old lines left
			for ; i < m; i++ {
				diff = append(diff, removedLine(oldLines[i], i))
			}
		case oldLines[i] == newLines[j]:
			diff = append(diff, unchangedLine(oldLines[i], i, j))
			i++
			j++
		default:
			di, dj, found := findResync(oldLines, newLines, i, j)
			if !found {
				diff = append(diff, removedLine(oldLines[i], i), addedLine(newLines[j], j))
				i++
				j++
				continue
			}

			for k := 0; k < di; k++ {
				diff = append(diff, removedLine(oldLines[i+k], i+k))
			}
			for k := 0; k < dj; k++ {
				diff = append(diff, addedLine(newLines[j+k], j+k))
			}
			// The matching pair itself is emitted as unchanged on the next pass
			i += di
			j += dj
		}
	}

	return diff
}

// findResync returns the offsets of the nearest equal line pair within the
// look-ahead window starting at (i, j). Ties keep the first pair found,
// scanning di then dj in increasing order.
func findResync(oldLines, newLines []string, i, j int) (int, int, bool) {
	bestDI, bestDJ := -1, -1
	bestDistance := -1

	for di := 0; di <= LookaheadWindow && i+di < len(oldLines); di++ {
		for dj := 0; dj <= LookaheadWindow && j+dj < len(newLines); dj++ {
			if oldLines[i+di] != newLines[j+dj] {
				continue
			}
			if bestDistance < 0 || di+dj < bestDistance {
				bestDI, bestDJ = di, dj
				bestDistance = di + dj
			}
		}
	}

	return bestDI, bestDJ, bestDistance >= 0
}
