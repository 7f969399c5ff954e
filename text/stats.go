package text

// DiffStats summarizes a diff. Total is always Added+Removed+Unchanged and
// equal to the number of operations.
type DiffStats struct {
	Added     int
	Removed   int
	Unchanged int
	Total     int
}

// GetDiffStats counts the operations of each kind in diff
func GetDiffStats(diff []Operation) DiffStats {
	stats := DiffStats{Total: len(diff)}

	for _, op := range diff {
		switch op.Kind {
		case OpAdded:
			stats.Added++
		case OpRemoved:
			stats.Removed++
		default:
			stats.Unchanged++
		}
	}

	return stats
}

// HasChanges reports whether anything was added or removed
func (s DiffStats) HasChanges() bool {
	return s.Added+s.Removed > 0
}
