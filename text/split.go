package text

// LinePair is one row of a side-by-side view. Old is nil on rows that only
// exist in the new text and New is nil on rows that only exist in the old text.
type LinePair struct {
	Old *Operation
	New *Operation
}

// SplitPairs aligns a line diff into side-by-side rows.
// Unchanged operations fill both columns. A run of removed lines followed by a
// run of added lines is zipped row by row so substitutions sit next to each
// other; whichever run is longer leaves rows with an empty opposite cell.
func SplitPairs(diff []Operation) []LinePair {
	var pairs []LinePair
	i := 0

	for i < len(diff) {
		op := &diff[i]
		if op.Kind != OpRemoved && op.Kind != OpAdded {
			pairs = append(pairs, LinePair{Old: op, New: op})
			i++
			continue
		}

		removedStart := i
		for i < len(diff) && diff[i].Kind == OpRemoved {
			i++
		}
		removed := diff[removedStart:i]

		addedStart := i
		for i < len(diff) && diff[i].Kind == OpAdded {
			i++
		}
		added := diff[addedStart:i]

		for k := 0; k < max(len(removed), len(added)); k++ {
			var pair LinePair
			if k < len(removed) {
				pair.Old = &removed[k]
			}
			if k < len(added) {
				pair.New = &added[k]
			}
			pairs = append(pairs, pair)
		}
	}

	return pairs
}
