package scheduler

import (
	"context"
	"fmt"

	"github.com/teemow/meetingscheduler/internal/assistant"
)

// TurnSubmitter starts a run for one user turn. *assistant.Session implements it.
type TurnSubmitter interface {
	SubmitUserTurn(ctx context.Context, text string) (assistant.Run, error)
}

// Scheduler answers scheduling requests end to end.
type Scheduler struct {
	session  TurnSubmitter
	mediator *Mediator
}

// New creates a Scheduler.
func New(session TurnSubmitter, mediator *Mediator) *Scheduler {
	return &Scheduler{session: session, mediator: mediator}
}

// Ask submits text as a new turn and waits for the agent's answer.
func (s *Scheduler) Ask(ctx context.Context, text string) (string, error) {
	run, err := s.session.SubmitUserTurn(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to submit request: %w", err)
	}
	return s.mediator.Resolve(ctx, run)
}
