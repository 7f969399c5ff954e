package utils

// Token estimation constants
const (
	AvgCharsPerToken = 4 // Rough estimate for English prose
)

// EstimateCharsFromTokens estimates the number of characters for a given token count
func EstimateCharsFromTokens(tokens int) int {
	return tokens * AvgCharsPerToken
}

// Entry is anything whose text counts against a prompt budget
type Entry interface {
	GetContent() string
}

// TrimEntries trims entries to fit within maxTokens.
// Keeps the most recent entries and drops older ones; the newest entry is
// always kept even when it alone exceeds the limit. maxTokens <= 0 disables trimming.
func TrimEntries[T Entry](entries []T, maxTokens int) []T {
	if len(entries) == 0 || maxTokens <= 0 {
		return entries
	}

	maxChars := EstimateCharsFromTokens(maxTokens)

	// Iterate from newest (end) to oldest (start), keeping entries within limit
	totalChars := 0
	cutoffIndex := 0

	for i := len(entries) - 1; i >= 0; i-- {
		entryChars := len(entries[i].GetContent())
		if totalChars+entryChars > maxChars && i < len(entries)-1 {
			cutoffIndex = i + 1
			break
		}
		totalChars += entryChars
	}

	if cutoffIndex > 0 {
		return entries[cutoffIndex:]
	}
	return entries
}

// LastN returns the final n elements of items, or all of them if there are fewer
func LastN[T any](items []T, n int) []T {
	if n <= 0 {
		return nil
	}
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
