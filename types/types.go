package types

import (
	"time"

	"taleweaver/text"
)

// Character is a named participant in the story
type Character struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// StoryData holds the story setup that every prompt is built from
type StoryData struct {
	Genres     []string    `json:"genres"`
	Themes     []string    `json:"themes"`
	Setting    string      `json:"setting"`
	Characters []Character `json:"characters"`
}

type HistoryKind string

const (
	HistoryStory       HistoryKind = "story"
	HistoryChoice      HistoryKind = "choice"
	HistoryImprovement HistoryKind = "improvement"
)

// HistoryEntry is one item of the story log: a generated segment, a reader
// choice, or an improvement request.
type HistoryEntry struct {
	Kind      HistoryKind `json:"kind"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// GetContent implements utils.Entry
func (h HistoryEntry) GetContent() string {
	return h.Content
}

// Revision is a proposed rewrite of the document that has not been accepted
// or rejected yet.
type Revision struct {
	ID         string
	Request    string
	OldContent string
	NewContent string
	Stats      text.DiffStats
	Similarity float64
	CreatedAt  time.Time
}

// AppState is the whole application state. It is treated as a value: the
// update functions below return a new state and never modify their input.
// Loading, Error and Pending are transient and are not persisted.
type AppState struct {
	Story    StoryData      `json:"story"`
	Content  string         `json:"content"`
	History  []HistoryEntry `json:"history"`
	DarkMode bool           `json:"dark_mode"`

	Loading bool      `json:"-"`
	Error   string    `json:"-"`
	Pending *Revision `json:"-"`
}

// WithContent replaces the document content
func WithContent(s AppState, content string) AppState {
	s.History = cloneHistory(s.History)
	s.Content = content
	return s
}

// WithStory replaces the story setup
func WithStory(s AppState, story StoryData) AppState {
	s.History = cloneHistory(s.History)
	s.Story = story
	return s
}

// AppendHistory adds an entry at the end of the history
func AppendHistory(s AppState, entry HistoryEntry) AppState {
	history := make([]HistoryEntry, len(s.History), len(s.History)+1)
	copy(history, s.History)
	s.History = append(history, entry)
	return s
}

// WithPending stores a revision awaiting a decision and clears loading/error
func WithPending(s AppState, rev *Revision) AppState {
	s.History = cloneHistory(s.History)
	s.Pending = rev
	s.Loading = false
	s.Error = ""
	return s
}

// AcceptPending makes the pending revision the document content and records
// the improvement in the history. It is a no-op without a pending revision.
func AcceptPending(s AppState, now time.Time) AppState {
	if s.Pending == nil {
		return s
	}
	rev := s.Pending
	s = AppendHistory(s, HistoryEntry{Kind: HistoryImprovement, Content: rev.Request, CreatedAt: now})
	s.Content = rev.NewContent
	s.Pending = nil
	return s
}

// RejectPending drops the pending revision
func RejectPending(s AppState) AppState {
	s.History = cloneHistory(s.History)
	s.Pending = nil
	return s
}

func ToggleTheme(s AppState) AppState {
	s.History = cloneHistory(s.History)
	s.DarkMode = !s.DarkMode
	return s
}

func WithLoading(s AppState, loading bool) AppState {
	s.History = cloneHistory(s.History)
	s.Loading = loading
	if loading {
		s.Error = ""
	}
	return s
}

// WithError records a failure and ends loading
func WithError(s AppState, err error) AppState {
	s.History = cloneHistory(s.History)
	s.Loading = false
	if err != nil {
		s.Error = err.Error()
	} else {
		s.Error = ""
	}
	return s
}

func cloneHistory(history []HistoryEntry) []HistoryEntry {
	if history == nil {
		return nil
	}
	out := make([]HistoryEntry, len(history))
	copy(out, history)
	return out
}
