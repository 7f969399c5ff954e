package engine

import (
	"fmt"

	"taleweaver/logger"
	"taleweaver/text"
)

// Editor is the document buffer of a connected editor
type Editor interface {
	Sync() error
	Content() string
	HasChanges(content string) bool
	ShowDiff(groups []text.Group, stats text.DiffStats) error
	Apply(content string) error
	ClearUI() error
}

// SyncFrom reads the editor buffer and makes it the document
func (e *Engine) SyncFrom(ed Editor) error {
	if err := ed.Sync(); err != nil {
		return fmt.Errorf("failed to sync buffer: %w", err)
	}
	content := ed.Content()
	if content == e.State().Content {
		return nil
	}
	return e.SetContent(content)
}

// ShowPending renders the pending revision in the editor
func (e *Engine) ShowPending(ed Editor) error {
	rev := e.State().Pending
	if rev == nil {
		return ErrNoPending
	}
	diff := text.ComputeLineDiff(rev.OldContent, rev.NewContent)
	if err := ed.ShowDiff(text.GroupDiffLines(diff), rev.Stats); err != nil {
		return fmt.Errorf("failed to show revision: %w", err)
	}
	return nil
}

// AcceptInto accepts the pending revision and writes the document back to the editor
func (e *Engine) AcceptInto(ed Editor) error {
	if err := e.Accept(); err != nil {
		return err
	}
	content := e.State().Content
	if !ed.HasChanges(content) {
		return ed.ClearUI()
	}
	return ed.Apply(content)
}

// RejectIn rejects the pending revision and clears the editor's diff display.
// The revision stays rejected when clearing the display fails.
func (e *Engine) RejectIn(ed Editor) error {
	if err := e.Reject(); err != nil {
		return err
	}
	if err := ed.ClearUI(); err != nil {
		logger.Warn("engine: failed to clear diff: %v", err)
		return fmt.Errorf("failed to clear diff: %w", err)
	}
	return nil
}
