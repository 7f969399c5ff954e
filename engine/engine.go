package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"taleweaver/logger"
	"taleweaver/metrics"
	"taleweaver/story"
	"taleweaver/types"
)

var (
	// ErrNoPending is returned by Accept and Reject when there is nothing to decide on
	ErrNoPending = errors.New("no pending revision")
	// ErrStaleRevision is returned by Accept when the document changed after the revision was generated
	ErrStaleRevision = errors.New("document changed since the revision was generated")
	// ErrStopped is returned when a generation request starts after Stop
	ErrStopped = errors.New("engine stopped")
)

// Store persists the application state
type Store interface {
	Load() (types.AppState, error)
	Save(types.AppState) error
}

// Engine owns the application state and applies every change through the
// pure update functions in package types, persisting after each one.
type Engine struct {
	service *story.Service
	store   Store
	tracker *metrics.Tracker

	mu      sync.Mutex
	state   types.AppState
	shownAt time.Time
	stopped bool

	mainCtx    context.Context
	mainCancel context.CancelFunc
	stopOnce   sync.Once

	now func() time.Time
}

// NewEngine loads the saved state from store, starting from the zero state
// when it cannot be read. tracker may be nil.
func NewEngine(service *story.Service, store Store, tracker *metrics.Tracker) *Engine {
	state, err := store.Load()
	if err != nil {
		logger.Warn("engine: failed to load state, starting fresh: %v", err)
		state = types.AppState{}
	}

	mainCtx, mainCancel := context.WithCancel(context.Background())
	return &Engine{
		service:    service,
		store:      store,
		tracker:    tracker,
		state:      state,
		mainCtx:    mainCtx,
		mainCancel: mainCancel,
		now:        time.Now,
	}
}

// Start ties the engine lifecycle to ctx
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	e.mainCancel()
	e.mainCtx, e.mainCancel = context.WithCancel(ctx)
	logger.Info("engine started (%d history entries)", len(e.state.History))
}

// Stop cancels any in-flight generation and waits for queued metrics
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		logger.Info("stopping engine...")

		e.mu.Lock()
		e.stopped = true
		e.mainCancel()
		e.mu.Unlock()

		e.service.Cancel()
		e.tracker.Wait()

		logger.Info("engine stopped")
	})
}

// Context is the engine lifecycle context used by RPC handlers
func (e *Engine) Context() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mainCtx
}

// State returns a snapshot of the current state
func (e *Engine) State() types.AppState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// update applies fn to the state and persists the result.
// The in-memory state changes even if saving fails.
func (e *Engine) update(fn func(types.AppState) types.AppState) (types.AppState, error) {
	return e.tryUpdate(func(s types.AppState) (types.AppState, error) {
		return fn(s), nil
	})
}

// tryUpdate is update for changes that may be refused. When fn returns an
// error the state is left untouched and nothing is saved.
func (e *Engine) tryUpdate(fn func(types.AppState) (types.AppState, error)) (types.AppState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.state)
	if err != nil {
		return e.state, err
	}
	e.state = next
	if err := e.store.Save(e.state); err != nil {
		logger.Error("engine: failed to save state: %v", err)
		return e.state, err
	}
	return e.state, nil
}

func (e *Engine) SetContent(content string) error {
	_, err := e.update(func(s types.AppState) types.AppState {
		return types.WithContent(s, content)
	})
	return err
}

func (e *Engine) SetStory(data types.StoryData) error {
	_, err := e.update(func(s types.AppState) types.AppState {
		return types.WithStory(s, data)
	})
	return err
}

// ToggleTheme flips dark mode and returns the new setting
func (e *Engine) ToggleTheme() (bool, error) {
	s, err := e.update(types.ToggleTheme)
	return s.DarkMode, err
}

// startRequest marks the state as loading and returns a snapshot to build the request from
func (e *Engine) startRequest() (types.AppState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return e.state, ErrStopped
	}
	e.state = types.WithLoading(e.state, true)
	return e.state, nil
}

func (e *Engine) failRequest(err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A superseded request leaves the loading flag to the request that replaced it
	if !errors.Is(err, story.ErrSuperseded) {
		e.state = types.WithError(e.state, err)
	}
	logger.Warn("engine: request failed: %v", err)
	return err
}

// Begin generates a story opening and makes it the document
func (e *Engine) Begin(ctx context.Context, openingScene string) (string, error) {
	snapshot, err := e.startRequest()
	if err != nil {
		return "", err
	}

	segment, err := e.service.Begin(ctx, snapshot.Story, openingScene)
	if err != nil {
		return "", e.failRequest(err)
	}

	now := e.now()
	_, err = e.update(func(s types.AppState) types.AppState {
		s = types.WithContent(s, segment)
		s = types.AppendHistory(s, types.HistoryEntry{Kind: types.HistoryStory, Content: segment, CreatedAt: now})
		return types.WithLoading(s, false)
	})
	return segment, err
}

// Continue records the reader's choice, generates the next segment and
// appends it to the document
func (e *Engine) Continue(ctx context.Context, choice string) (string, error) {
	snapshot, err := e.startRequest()
	if err != nil {
		return "", err
	}

	snapshot = types.AppendHistory(snapshot, types.HistoryEntry{Kind: types.HistoryChoice, Content: choice, CreatedAt: e.now()})
	segment, err := e.service.Continue(ctx, snapshot, choice)
	if err != nil {
		return "", e.failRequest(err)
	}

	now := e.now()
	_, err = e.update(func(s types.AppState) types.AppState {
		s = types.AppendHistory(s, types.HistoryEntry{Kind: types.HistoryChoice, Content: choice, CreatedAt: now})
		s = types.AppendHistory(s, types.HistoryEntry{Kind: types.HistoryStory, Content: segment, CreatedAt: now})
		content := segment
		if s.Content != "" {
			content = s.Content + "\n\n" + segment
		}
		s = types.WithContent(s, content)
		return types.WithLoading(s, false)
	})
	return segment, err
}

// Improve requests a rewrite of the document. The rewrite becomes the pending
// revision and its diff is returned for display.
func (e *Engine) Improve(ctx context.Context, request string) (DiffView, error) {
	snapshot, err := e.startRequest()
	if err != nil {
		return DiffView{}, err
	}

	rev, err := e.service.Improve(ctx, snapshot, request)
	if err != nil {
		return DiffView{}, e.failRequest(err)
	}
	rev.ID = metrics.GenerateUUID()

	e.mu.Lock()
	e.state = types.WithPending(e.state, rev)
	e.shownAt = e.now()
	e.mu.Unlock()

	e.tracker.TrackShown(e.revisionMetrics(rev))
	return Diff(rev.OldContent, rev.NewContent), nil
}

// Pending returns the diff of the pending revision, if any
func (e *Engine) Pending() (DiffView, bool) {
	e.mu.Lock()
	rev := e.state.Pending
	e.mu.Unlock()

	if rev == nil {
		return DiffView{}, false
	}
	return Diff(rev.OldContent, rev.NewContent), true
}

// Accept replaces the document with the pending revision
func (e *Engine) Accept() error {
	now := e.now()

	var rev *types.Revision
	_, err := e.tryUpdate(func(s types.AppState) (types.AppState, error) {
		switch {
		case s.Pending == nil:
			return s, ErrNoPending
		case s.Pending.OldContent != s.Content:
			return s, ErrStaleRevision
		}
		rev = s.Pending
		return types.AcceptPending(s, now), nil
	})
	if rev == nil {
		return err
	}

	e.tracker.TrackAccepted(e.revisionMetrics(rev))
	logger.Info("engine: accepted revision %s", rev.ID)
	return err
}

// Reject drops the pending revision
func (e *Engine) Reject() error {
	e.mu.Lock()
	rev := e.state.Pending
	if rev == nil {
		e.mu.Unlock()
		return ErrNoPending
	}
	e.state = types.RejectPending(e.state)
	e.mu.Unlock()

	e.tracker.TrackRejected(e.revisionMetrics(rev))
	logger.Info("engine: rejected revision %s", rev.ID)
	return nil
}

func (e *Engine) revisionMetrics(rev *types.Revision) *metrics.RevisionMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &metrics.RevisionMetrics{
		ID:         rev.ID,
		Stats:      rev.Stats,
		Similarity: rev.Similarity,
		ShownAt:    e.shownAt,
	}
}
