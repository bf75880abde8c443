package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teemow/meetingscheduler/internal/logging"
)

// ErrEmptyRequest is returned for a blank user turn.
var ErrEmptyRequest = errors.New("empty request")

// SessionConfig configures a Session.
type SessionConfig struct {
	// Model is the agent model (e.g. "gpt-4o").
	Model   string
	Profile Profile

	Logger *slog.Logger
	// Now overrides the clock used for run instructions.
	Now func() time.Time
}

// Session owns the agent and the conversation thread for the lifetime of the
// process. Both are created on first use.
type Session struct {
	backend Backend
	model   string
	profile Profile
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	conv *Conversation
}

// NewSession creates a session backed by backend. Nothing is created at the
// provider until EnsureSession or SubmitUserTurn is called.
func NewSession(backend Backend, cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		backend: backend,
		model:   cfg.Model,
		profile: cfg.Profile,
		logger:  logging.WithService(cfg.Logger, "assistant"),
		now:     cfg.Now,
	}
}

// EnsureSession returns the conversation, creating the agent and the thread
// on the first successful call. A failed attempt caches nothing.
func (s *Session) EnsureSession(ctx context.Context) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conv != nil {
		return *s.conv, nil
	}

	assistantID, err := s.backend.CreateAssistant(ctx, AssistantSpec{
		Name:         AssistantName,
		Model:        s.model,
		Instructions: Persona,
		Tools:        []FunctionTool{CalendarTool()},
	})
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to create assistant: %w", err)
	}

	threadID, err := s.backend.CreateThread(ctx)
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to create thread: %w", err)
	}

	s.conv = &Conversation{AssistantID: assistantID, ThreadID: threadID}
	s.logger.Info("conversation started",
		slog.String("assistant_id", assistantID),
		slog.String(logging.KeyThreadID, threadID))
	return *s.conv, nil
}

// SubmitUserTurn appends text to the conversation and starts a run for it.
func (s *Session) SubmitUserTurn(ctx context.Context, text string) (Run, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Run{}, ErrEmptyRequest
	}

	conv, err := s.EnsureSession(ctx)
	if err != nil {
		return Run{}, err
	}

	if err := s.backend.AddUserMessage(ctx, conv.ThreadID, text); err != nil {
		return Run{}, fmt.Errorf("failed to add message: %w", err)
	}

	run, err := s.backend.CreateRun(ctx, conv.ThreadID, conv.AssistantID, RunInstructions(s.profile, s.now()))
	if err != nil {
		return Run{}, fmt.Errorf("failed to start run: %w", err)
	}
	if run.ThreadID == "" {
		run.ThreadID = conv.ThreadID
	}

	logging.WithRun(s.logger, run.ThreadID, run.ID).Debug("run started", logging.Status(string(run.Status)))
	return run, nil
}
