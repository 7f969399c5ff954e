package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"taleweaver/logger"
	"taleweaver/text"
	"taleweaver/types"
	"taleweaver/utils"
)

var (
	// ErrSuperseded is the cause of a request cancelled by a newer one
	ErrSuperseded = errors.New("request superseded by a newer request")
	// ErrEmptyResponse is returned when the generator produced only whitespace
	ErrEmptyResponse = errors.New("no story content received")
)

// Generator turns a prompt into generated text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Retries          int           // attempts per request (default 3)
	BackoffBase      time.Duration // delay after attempt n is 2^n * BackoffBase (default 500ms)
	MaxContextTokens int           // budget for history sent with continue prompts (0 = no limit)
}

// Service sends generation requests with at most one request in flight.
// Starting a request cancels the previous one, which then fails with ErrSuperseded.
type Service struct {
	gen    Generator
	config Config

	mu       sync.Mutex
	seq      uint64
	inflight context.CancelCauseFunc
}

func NewService(gen Generator, config Config) *Service {
	if config.Retries <= 0 {
		config.Retries = 3
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = 500 * time.Millisecond
	}
	return &Service{gen: gen, config: config}
}

// Begin generates a story opening
func (s *Service) Begin(ctx context.Context, story types.StoryData, openingScene string) (string, error) {
	return s.Generate(ctx, InitPayload(story, openingScene))
}

// Continue generates the next story segment following the reader's choice
func (s *Service) Continue(ctx context.Context, state types.AppState, choice string) (string, error) {
	history := utils.TrimEntries(state.History, s.config.MaxContextTokens)
	return s.Generate(ctx, ContinuePayload(state.Story, history, choice))
}

// Improve asks for a rewrite of the current document and returns it as a
// revision, with the line diff stats of the change filled in.
func (s *Service) Improve(ctx context.Context, state types.AppState, request string) (*types.Revision, error) {
	newContent, err := s.Generate(ctx, ImprovementPayload(state.Story, state.Content, request))
	if err != nil {
		return nil, err
	}

	diff := text.ComputeLineDiff(state.Content, newContent)
	rev := &types.Revision{
		Request:    request,
		OldContent: state.Content,
		NewContent: newContent,
		Stats:      text.GetDiffStats(diff),
		Similarity: text.Similarity(state.Content, newContent),
		CreatedAt:  time.Now(),
	}
	logger.Info("story: revision +%d -%d =%d (similarity %.2f)",
		rev.Stats.Added, rev.Stats.Removed, rev.Stats.Unchanged, rev.Similarity)
	return rev, nil
}

// Generate builds the prompt for p and runs it with retries.
// Cancellation, by ctx or by a newer request, is never retried.
func (s *Service) Generate(ctx context.Context, p Payload) (string, error) {
	prompt, err := BuildPrompt(p)
	if err != nil {
		return "", err
	}

	ctx, id := s.begin(ctx)
	defer s.end(id)

	var lastErr error
	for attempt := 1; attempt <= s.config.Retries; attempt++ {
		out, err := s.gen.Generate(ctx, prompt)
		if err == nil {
			out = strings.TrimSpace(out)
			if out != "" {
				logger.Debug("story: %s request succeeded on attempt %d", p.Mode, attempt)
				return out, nil
			}
			err = ErrEmptyResponse
		}

		if ctx.Err() != nil {
			return "", context.Cause(ctx)
		}

		lastErr = err
		logger.Warn("story: %s attempt %d/%d failed: %v", p.Mode, attempt, s.config.Retries, err)
		if attempt == s.config.Retries {
			break
		}

		delay := time.Duration(1<<attempt) * s.config.BackoffBase
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", context.Cause(ctx)
		}
	}

	return "", fmt.Errorf("%s request failed after %d attempts: %w", p.Mode, s.config.Retries, lastErr)
}

// Cancel aborts the in-flight request, if any
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight != nil {
		s.inflight(context.Canceled)
		s.inflight = nil
	}
}

// begin registers a new in-flight request, superseding the previous one
func (s *Service) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancelCause(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight != nil {
		logger.Debug("story: superseding in-flight request %d", s.seq)
		s.inflight(ErrSuperseded)
	}
	s.seq++
	s.inflight = cancel
	return ctx, s.seq
}

func (s *Service) end(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq == id && s.inflight != nil {
		s.inflight(nil)
		s.inflight = nil
	}
}
