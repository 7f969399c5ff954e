package buffer

import (
	"encoding/json"
	"fmt"
	"strings"

	"taleweaver/logger"
	"taleweaver/text"

	"github.com/neovim/go-client/nvim"
)

type Config struct {
	NsID int
}

// NvimBuffer mirrors the story buffer of a connected editor
type NvimBuffer struct {
	client *nvim.Nvim // stored internally, set via SetClient

	lines []string
	id    nvim.Buffer

	config Config
}

func New(config Config) *NvimBuffer {
	return &NvimBuffer{
		lines:  []string{},
		id:     nvim.Buffer(0),
		config: config,
	}
}

// SetClient stores the nvim client for all buffer operations
func (b *NvimBuffer) SetClient(n *nvim.Nvim) {
	b.client = n
}

// Content joins the synced lines back into document text
func (b *NvimBuffer) Content() string {
	return strings.Join(b.lines, "\n")
}

// Sync reads the current buffer from the editor
func (b *NvimBuffer) Sync() error {
	defer logger.Trace("buffer.Sync")()
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}

	// Use batch API to make all calls in a single round-trip
	batch := b.client.NewBatch()

	var currentBuf nvim.Buffer
	var path string
	var lines [][]byte

	batch.CurrentBuffer(&currentBuf)
	batch.BufferName(nvim.Buffer(0), &path) // Use 0 for current buffer
	batch.BufferLines(nvim.Buffer(0), 0, -1, false, &lines)

	if err := batch.Execute(); err != nil {
		logger.Error("error executing sync batch: %v", err)
		return err
	}

	if b.id != currentBuf {
		logger.Debug("story buffer changed: %s", path)
	}

	b.id = currentBuf
	b.lines = make([]string, len(lines))
	for i, line := range lines {
		b.lines[i] = string(line)
	}
	return nil
}

// HasChanges reports whether content differs from the synced lines
func (b *NvimBuffer) HasChanges(content string) bool {
	lines := strings.Split(content, "\n")
	if len(lines) != len(b.lines) {
		return true
	}
	for i := range lines {
		if lines[i] != b.lines[i] {
			return true
		}
	}
	return false
}

// ShowDiff hands the grouped diff of a pending revision to the editor for rendering
func (b *NvimBuffer) ShowDiff(groups []text.Group, stats text.DiffStats) error {
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}

	luaDiff := groupsToLuaFormat(groups, stats)

	if jsonData, err := json.Marshal(luaDiff); err == nil {
		logger.Debug("sending to lua on_diff_ready: %s", string(jsonData))
	}

	return b.executeLuaFunction("require('taleweaver').on_diff_ready(...)", luaDiff)
}

// Apply replaces the whole buffer with content and clears the diff UI
func (b *NvimBuffer) Apply(content string) error {
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}

	lines := strings.Split(content, "\n")
	placeBytes := make([][]byte, len(lines))
	for i, line := range lines {
		placeBytes[i] = []byte(line)
	}

	batch := b.client.NewBatch()
	b.clearNamespace(batch, b.config.NsID)
	batch.SetBufferLines(b.id, 0, -1, false, placeBytes)
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("failed to apply content: %w", err)
	}

	b.lines = lines
	return nil
}

// ClearUI clears the diff UI
func (b *NvimBuffer) ClearUI() error {
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}

	logger.Debug("sending to lua on_reject")
	return b.executeLuaFunction("require('taleweaver').on_reject()")
}

func (b *NvimBuffer) executeLuaFunction(luaCode string, args ...any) error {
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}
	batch := b.client.NewBatch()
	b.clearNamespace(batch, b.config.NsID)
	if len(args) > 0 {
		batch.ExecLua(luaCode, nil, args...)
	} else {
		batch.ExecLua(luaCode, nil, nil)
	}
	if err := batch.Execute(); err != nil {
		logger.Error("error executing lua function: %v", err)
		return fmt.Errorf("failed to run %s: %w", luaCode, err)
	}
	return nil
}

func (b *NvimBuffer) clearNamespace(batch *nvim.Batch, nsID int) {
	batch.ClearBufferNamespace(b.id, nsID, 0, -1)
}

// groupsToLuaFormat converts groups to a format suitable for Lua rendering.
// Line numbers are 1-based; 0 means the group has no line on that side.
func groupsToLuaFormat(groups []text.Group, stats text.DiffStats) map[string]any {
	luaGroups := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		lines := make([]string, len(g.Operations))
		for i, op := range g.Operations {
			lines[i] = op.Content
		}

		first := g.Operations[0]
		luaGroups = append(luaGroups, map[string]any{
			"kind":      g.Kind.String(),
			"old_start": first.OldLineNumber,
			"new_start": first.NewLineNumber,
			"lines":     lines,
		})
	}

	return map[string]any{
		"groups":      luaGroups,
		"added":       stats.Added,
		"removed":     stats.Removed,
		"unchanged":   stats.Unchanged,
		"has_changes": stats.HasChanges(),
	}
}
