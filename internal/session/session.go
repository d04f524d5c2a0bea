// Package session orchestrates one editing session: a loaded piece of media,
// its linear edit history, and the generate-execute-validate loop that turns
// natural-language instructions into new artifacts.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"clipforge/internal/command"
	"clipforge/internal/config"
	"clipforge/internal/history"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/perception"
	"clipforge/internal/pipeline"
	"clipforge/internal/runner"
)

var (
	// ErrBusy is returned when Submit is called while another submission
	// is still running.
	ErrBusy = errors.New("an edit is already in progress")

	// ErrNoMedia is returned for operations that need a loaded file.
	ErrNoMedia = errors.New("no media loaded; open a file first")

	// ErrEmptyPrompt rejects blank instructions before any generation.
	ErrEmptyPrompt = errors.New("instruction is empty")

	// ErrAlreadyOpen rejects loading a second file into the same session.
	ErrAlreadyOpen = errors.New("session already has media loaded")
)

// Session owns the store, history, and pipeline for one loaded media file.
// It is single-flight: concurrent Submit calls are rejected with ErrBusy
// rather than queued.
type Session struct {
	mu   sync.Mutex
	busy bool

	cfg    *config.Config
	client perception.Client
	store  *media.Store
	hist   *history.History
	loop   *pipeline.Loop
	sink   Sink
}

// New builds a session from configuration and injected collaborators.
func New(cfg *config.Config, client perception.Client, r runner.Runner, sink Sink) (*Session, error) {
	if sink == nil {
		sink = NopSink{}
	}

	store, err := media.NewStore(cfg.Execution.ScratchDir)
	if err != nil {
		return nil, err
	}

	loop := pipeline.New(client, r, store, pipeline.Config{
		Budget:      cfg.Execution.Retries,
		ExecTimeout: cfg.GetExecutionTimeout(),
	})
	loop.SetReporter(sink)

	logging.Session("Session created: provider=%s model=%s retries=%d",
		cfg.LLM.Provider, cfg.LLM.Model, cfg.Execution.Retries)

	return &Session{
		cfg:    cfg,
		client: client,
		store:  store,
		hist:   history.New(),
		loop:   loop,
		sink:   sink,
	}, nil
}

// Open loads a media file and seeds the history origin. The origin record
// is permanent: undo and reset can never remove it.
func (s *Session) Open(path string) (history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hist.Len() > 0 {
		return history.Record{}, ErrAlreadyOpen
	}

	art, err := s.store.Import(path)
	if err != nil {
		return history.Record{}, err
	}

	origin := history.Record{Artifact: art}
	s.hist.Push(origin)
	logging.Session("Opened %s (%s)", art.Filename, art.Kind)
	return origin, nil
}

// Submit runs one instruction through the pipeline against the current
// artifact. On success the produced artifact is pushed onto the history and
// a best-effort explanation of the output is reported through the sink.
// Probe commands (no output file) report their stdout and leave the history
// unchanged.
func (s *Session) Submit(ctx context.Context, prompt string) (history.Record, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return history.Record{}, ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return history.Record{}, ErrBusy
	}
	cur, err := s.hist.Current()
	if err != nil {
		s.mu.Unlock()
		return history.Record{}, ErrNoMedia
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	outcome, err := s.loop.Run(ctx, prompt, cur.Artifact)
	if err != nil {
		return history.Record{}, err
	}

	s.explain(ctx, prompt, outcome)

	if outcome.OutputPath == "" {
		// Probe: nothing produced, surface the captured output.
		if out := strings.TrimSpace(outcome.Result.Stdout); out != "" {
			s.sink.Info("%s", out)
		}
		return cur, nil
	}

	art, err := s.store.Adopt(outcome.OutputPath, deriveName(cur.Artifact.Filename, outcome.Descriptor.OutputExt, s.hist.Len()))
	if err != nil {
		return history.Record{}, fmt.Errorf("produced file could not be adopted: %w", err)
	}

	rec := history.Record{Artifact: art, Prompt: prompt}
	s.mu.Lock()
	s.hist.Push(rec)
	s.mu.Unlock()

	s.sink.Artifact(art)
	return rec, nil
}

// explain runs the best-effort explanation step. Its failures are logged
// and swallowed, never surfaced to the caller.
func (s *Session) explain(ctx context.Context, prompt string, outcome *pipeline.Outcome) {
	expl, err := perception.GenerateExplanation(ctx, s.client, perception.ExplainRequest{
		Prompt:      prompt,
		CommandLine: command.Line(outcome.Argv),
		Stdout:      outcome.Result.Stdout,
		Stderr:      outcome.Result.Stderr,
	})
	if err != nil {
		logging.SessionWarn("Explanation step failed: %v", err)
		return
	}
	s.sink.Info("%s (confidence %.1f/10)", expl.Explanation, expl.Confidence)
}

// Undo steps back one edit. It is a no-op at the origin.
func (s *Session) Undo() (history.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Undo()
}

// Reset truncates the history back to the origin record.
func (s *Session) Reset() (history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Reset()
}

// Current returns the latest record.
func (s *Session) Current() (history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Current()
}

// Previous returns the record before the current one, if any.
func (s *Session) Previous() (history.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Previous()
}

// Original returns the origin record.
func (s *Session) Original() (history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Original()
}

// deriveName builds a display name for the nth edit of a file:
// clip.mp4 -> clip_v2.mp3 for the first edit producing mp3.
func deriveName(base string, ext command.OutputExt, priorLen int) string {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_v%d.%s", stem, priorLen+1, ext)
}
