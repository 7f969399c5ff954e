package engine

import "taleweaver/text"

// OperationView is a diff operation as sent to the editor
type OperationView struct {
	Kind          string `msgpack:"kind"`
	Marker        string `msgpack:"marker"`
	Content       string `msgpack:"content"`
	OldLineNumber int    `msgpack:"old_line_number,omitempty"`
	NewLineNumber int    `msgpack:"new_line_number,omitempty"`
}

type GroupView struct {
	Kind       string          `msgpack:"kind"`
	Operations []OperationView `msgpack:"operations"`
}

// PairView is one side-by-side row. Words holds the word diff of the two
// cells when both are present and differ.
type PairView struct {
	Old   *OperationView  `msgpack:"old"`
	New   *OperationView  `msgpack:"new"`
	Words []OperationView `msgpack:"words,omitempty"`
}

type StatsView struct {
	Added      int  `msgpack:"added"`
	Removed    int  `msgpack:"removed"`
	Unchanged  int  `msgpack:"unchanged"`
	Total      int  `msgpack:"total"`
	HasChanges bool `msgpack:"has_changes"`
}

// DiffView is everything a renderer needs for the unified and split layouts
type DiffView struct {
	Operations []OperationView `msgpack:"operations"`
	Groups     []GroupView     `msgpack:"groups"`
	Pairs      []PairView      `msgpack:"pairs"`
	Stats      StatsView       `msgpack:"stats"`
}

func toOperationView(op text.Operation) OperationView {
	return OperationView{
		Kind:          op.Kind.String(),
		Marker:        op.Kind.Marker(),
		Content:       op.Content,
		OldLineNumber: op.OldLineNumber,
		NewLineNumber: op.NewLineNumber,
	}
}

func toOperationViews(ops []text.Operation) []OperationView {
	views := make([]OperationView, len(ops))
	for i, op := range ops {
		views[i] = toOperationView(op)
	}
	return views
}

// Diff computes the line diff of two texts along with its groups, side-by-side
// rows and stats
func Diff(oldText, newText string) DiffView {
	ops := text.ComputeLineDiff(oldText, newText)
	stats := text.GetDiffStats(ops)

	groups := text.GroupDiffLines(ops)
	groupViews := make([]GroupView, len(groups))
	for i, g := range groups {
		groupViews[i] = GroupView{Kind: g.Kind.String(), Operations: toOperationViews(g.Operations)}
	}

	pairs := text.SplitPairs(ops)
	pairViews := make([]PairView, len(pairs))
	for i, p := range pairs {
		var pv PairView
		if p.Old != nil {
			v := toOperationView(*p.Old)
			pv.Old = &v
		}
		if p.New != nil {
			v := toOperationView(*p.New)
			pv.New = &v
		}
		if p.Old != nil && p.New != nil && p.Old.Content != p.New.Content {
			pv.Words = WordDiff(p.Old.Content, p.New.Content)
		}
		pairViews[i] = pv
	}

	return DiffView{
		Operations: toOperationViews(ops),
		Groups:     groupViews,
		Pairs:      pairViews,
		Stats: StatsView{
			Added:      stats.Added,
			Removed:    stats.Removed,
			Unchanged:  stats.Unchanged,
			Total:      stats.Total,
			HasChanges: stats.HasChanges(),
		},
	}
}

// WordDiff computes the word diff of a single line pair
func WordDiff(oldLine, newLine string) []OperationView {
	return toOperationViews(text.ComputeWordDiff(oldLine, newLine))
}
