package engine

import (
	"taleweaver/buffer"
	"taleweaver/logger"
	"taleweaver/types"

	"github.com/neovim/go-client/nvim"
)

// StateView is the state summary returned to the editor
type StateView struct {
	Content      string `msgpack:"content"`
	DarkMode     bool   `msgpack:"dark_mode"`
	Loading      bool   `msgpack:"loading"`
	Error        string `msgpack:"error"`
	HistoryCount int    `msgpack:"history_count"`
	HasPending   bool   `msgpack:"has_pending"`
}

// StoryView is the story setup as sent by the editor
type StoryView struct {
	Genres     []string `msgpack:"genres"`
	Themes     []string `msgpack:"themes"`
	Setting    string   `msgpack:"setting"`
	Characters []struct {
		Name string `msgpack:"name"`
		Role string `msgpack:"role"`
	} `msgpack:"characters"`
}

func (v StoryView) toStoryData() types.StoryData {
	data := types.StoryData{Genres: v.Genres, Themes: v.Themes, Setting: v.Setting}
	for _, c := range v.Characters {
		data.Characters = append(data.Characters, types.Character{Name: c.Name, Role: c.Role})
	}
	return data
}

func toStateView(s types.AppState) StateView {
	return StateView{
		Content:      s.Content,
		DarkMode:     s.DarkMode,
		Loading:      s.Loading,
		Error:        s.Error,
		HistoryCount: len(s.History),
		HasPending:   s.Pending != nil,
	}
}

// Register installs the RPC handlers for a connected editor. nsID is the
// editor namespace used for diff highlights.
func (e *Engine) Register(n *nvim.Nvim, nsID int) error {
	buf := buffer.New(buffer.Config{NsID: nsID})
	buf.SetClient(n)

	handlers := []struct {
		method string
		fn     any
	}{
		{"taleweaver_diff", func(_ *nvim.Nvim, oldText, newText string) (*DiffView, error) {
			defer logger.Trace("rpc diff")()
			view := Diff(oldText, newText)
			return &view, nil
		}},
		{"taleweaver_word_diff", func(_ *nvim.Nvim, oldLine, newLine string) ([]OperationView, error) {
			return WordDiff(oldLine, newLine), nil
		}},
		{"taleweaver_state", func(_ *nvim.Nvim) (*StateView, error) {
			view := toStateView(e.State())
			return &view, nil
		}},
		{"taleweaver_set_content", func(_ *nvim.Nvim, content string) error {
			return e.SetContent(content)
		}},
		{"taleweaver_set_story", func(_ *nvim.Nvim, story StoryView) error {
			return e.SetStory(story.toStoryData())
		}},
		{"taleweaver_begin", func(_ *nvim.Nvim, openingScene string) (string, error) {
			return e.Begin(e.Context(), openingScene)
		}},
		{"taleweaver_continue", func(_ *nvim.Nvim, choice string) (string, error) {
			return e.Continue(e.Context(), choice)
		}},
		{"taleweaver_improve", func(_ *nvim.Nvim, request string) (*DiffView, error) {
			view, err := e.Improve(e.Context(), request)
			if err != nil {
				return nil, err
			}
			return &view, nil
		}},
		{"taleweaver_pending", func(_ *nvim.Nvim) (*DiffView, error) {
			view, ok := e.Pending()
			if !ok {
				return nil, nil
			}
			return &view, nil
		}},
		{"taleweaver_accept", func(_ *nvim.Nvim) error {
			return e.Accept()
		}},
		{"taleweaver_reject", func(_ *nvim.Nvim) error {
			return e.Reject()
		}},
		{"taleweaver_sync_buffer", func(_ *nvim.Nvim) (*StateView, error) {
			if err := e.SyncFrom(buf); err != nil {
				return nil, err
			}
			view := toStateView(e.State())
			return &view, nil
		}},
		{"taleweaver_show_pending", func(_ *nvim.Nvim) error {
			return e.ShowPending(buf)
		}},
		{"taleweaver_apply", func(_ *nvim.Nvim) error {
			return e.AcceptInto(buf)
		}},
		{"taleweaver_dismiss", func(_ *nvim.Nvim) error {
			return e.RejectIn(buf)
		}},
		{"taleweaver_toggle_theme", func(_ *nvim.Nvim) (bool, error) {
			return e.ToggleTheme()
		}},
	}

	for _, h := range handlers {
		if err := n.RegisterHandler(h.method, h.fn); err != nil {
			logger.Error("error registering handler %s: %v", h.method, err)
			return err
		}
	}
	return nil
}
