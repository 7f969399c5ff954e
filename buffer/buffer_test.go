package buffer

import (
	"net"
	"testing"

	"taleweaver/assert"
	"taleweaver/text"

	"github.com/neovim/go-client/nvim"
)

func TestContent_JoinsLines(t *testing.T) {
	buf := New(Config{NsID: 1})
	buf.lines = []string{"line 1", "", "line 3"}

	assert.Equal(t, "line 1\n\nline 3", buf.Content(), "joined content")
}

func TestHasChanges_NoChanges(t *testing.T) {
	buf := New(Config{NsID: 1})
	buf.lines = []string{"line 1", "line 2"}

	assert.False(t, buf.HasChanges("line 1\nline 2"), "same content")
}

func TestHasChanges_ContentDiffers(t *testing.T) {
	buf := New(Config{NsID: 1})
	buf.lines = []string{"line 1", "line 2"}

	assert.True(t, buf.HasChanges("line 1\nmodified"), "line differs")
}

func TestHasChanges_LineCountChange(t *testing.T) {
	buf := New(Config{NsID: 1})
	buf.lines = []string{"line 1", "line 2"}

	assert.True(t, buf.HasChanges("line 1\nline 2\n"), "trailing newline adds a line")
	assert.True(t, buf.HasChanges("line 1"), "fewer lines")
}

func TestNoClient_ReturnsErrors(t *testing.T) {
	buf := New(Config{NsID: 1})

	assert.Error(t, buf.Sync(), "Sync without client")
	assert.Error(t, buf.Apply("x"), "Apply without client")
	assert.Error(t, buf.ClearUI(), "ClearUI without client")
	assert.Error(t, buf.ShowDiff(nil, text.DiffStats{}), "ShowDiff without client")
}

func TestGroupsToLuaFormat(t *testing.T) {
	diff := text.ComputeLineDiff("a\nb\nc", "a\nB\nc")
	groups := text.GroupDiffLines(diff)

	result := groupsToLuaFormat(groups, text.GetDiffStats(diff))

	luaGroups := result["groups"].([]map[string]any)
	assert.Len(t, 4, luaGroups, "groups")
	assert.Equal(t, "unchanged", luaGroups[0]["kind"], "first kind")
	assert.Equal(t, "removed", luaGroups[1]["kind"], "second kind")
	assert.Equal(t, 2, luaGroups[1]["old_start"], "removed old line")
	assert.Equal(t, 0, luaGroups[1]["new_start"], "removed has no new line")
	assert.Equal(t, "added", luaGroups[2]["kind"], "third kind")
	assert.Equal(t, []string{"B"}, luaGroups[2]["lines"], "added lines")
	assert.Equal(t, 1, result["added"], "added count")
	assert.Equal(t, true, result["has_changes"], "has changes")
}

func TestLuaFailure_ReturnsErrors(t *testing.T) {
	conn, editor := net.Pipe()
	editor.Close()

	n, err := nvim.New(conn, conn, conn, func(string, ...any) {})
	assert.NoError(t, err, "nvim.New")
	go n.Serve()
	defer n.Close()

	buf := New(Config{NsID: 1})
	buf.SetClient(n)
	diff := text.ComputeLineDiff("a", "b")

	assert.Error(t, buf.ShowDiff(text.GroupDiffLines(diff), text.GetDiffStats(diff)), "ShowDiff reports the failed call")
	assert.Error(t, buf.ClearUI(), "ClearUI reports the failed call")
}
