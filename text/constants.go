package text

const (
	// LookaheadWindow is how many lines past the cursors the line matcher scans
	// on each side to resynchronize after a mismatch.
	LookaheadWindow = 3
)
