package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/meetingscheduler/internal/assistant"
	"github.com/teemow/meetingscheduler/internal/calendar"
	"github.com/teemow/meetingscheduler/internal/instrumentation"
	"github.com/teemow/meetingscheduler/internal/logging"
)

const (
	// DefaultRunTimeout bounds how long a single run is driven.
	DefaultRunTimeout = 2 * time.Minute

	// DefaultPollInterval is the first wait between status polls.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultMaxPollInterval caps the wait between status polls.
	DefaultMaxPollInterval = 5 * time.Second

	cancelTimeout = 10 * time.Second
)

// CalendarAccessor reads busy intervals. *calendar.Client implements it.
type CalendarAccessor interface {
	BusyIntervals(ctx context.Context, participant string, start, end time.Time) (calendar.BusyResult, error)
}

// RunBackend is the part of assistant.Backend the mediator drives.
type RunBackend interface {
	GetRun(ctx context.Context, threadID, runID string) (assistant.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (assistant.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	LatestAssistantMessage(ctx context.Context, threadID, runID string) (string, error)
}

// Config tunes a Mediator. Zero values take the defaults.
type Config struct {
	RunTimeout      time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration

	// Location is used for tool call times given without an offset.
	Location *time.Location

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Mediator drives runs and services their tool calls.
type Mediator struct {
	backend  RunBackend
	calendar CalendarAccessor
	cfg      Config
	logger   *slog.Logger
}

// NewMediator creates a mediator answering tool calls from cal.
func NewMediator(backend RunBackend, cal CalendarAccessor, cfg Config) *Mediator {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = max(DefaultMaxPollInterval, cfg.PollInterval)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Mediator{
		backend:  backend,
		calendar: cal,
		cfg:      cfg,
		logger:   logging.WithService(cfg.Logger, "scheduler"),
	}
}

func (m *Mediator) newPollBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.PollInterval
	b.MaxInterval = m.cfg.MaxPollInterval
	b.Multiplier = 1.5
	b.RandomizationFactor = 0.2
	b.Reset()
	return b
}

// Resolve polls run until it is terminal and returns the agent's final
// message verbatim. Failed, cancelled, expired and incomplete runs return a
// *RunError; running out of time returns the context error.
func (m *Mediator) Resolve(ctx context.Context, run assistant.Run) (answer string, err error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RunTimeout)
	defer cancel()

	ctx, span := instrumentation.StartRunSpan(ctx, run.ThreadID, run.ID)
	defer span.End()

	logger := logging.WithRun(m.logger, run.ThreadID, run.ID)
	began := time.Now()
	defer func() {
		status := string(run.Status)
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.SetAttributes(attribute.String(instrumentation.SpanAttrRunStatus, status))
		m.cfg.Metrics.RecordRun(ctx, status, time.Since(began))
		logger.Info("run finished",
			logging.Status(status),
			slog.Duration(logging.KeyDuration, time.Since(began)),
			logging.Err(err))
	}()

	poll := m.newPollBackOff()
	for {
		switch {
		case run.Status == assistant.RunStatusCompleted:
			text, err := m.backend.LatestAssistantMessage(ctx, run.ThreadID, run.ID)
			if err != nil {
				return "", fmt.Errorf("failed to read answer of run %s: %w", run.ID, err)
			}
			return text, nil

		case run.Status.Failed():
			return "", &RunError{RunID: run.ID, Status: run.Status, Cause: run.LastError}

		case run.Status == assistant.RunStatusRequiresAction:
			if len(run.ToolCalls) == 0 {
				return "", m.abandon(ctx, run, &RunError{
					RunID:  run.ID,
					Status: run.Status,
					Cause:  &assistant.RunError{Code: "no_tool_calls", Message: "run requires action but carries no tool calls"},
				})
			}
			outputs := m.serviceToolCalls(ctx, logger, run.ToolCalls)
			next, err := m.backend.SubmitToolOutputs(ctx, run.ThreadID, run.ID, outputs)
			if err != nil {
				return "", m.abandon(ctx, run, fmt.Errorf("failed to submit tool outputs: %w", err))
			}
			run = withThread(next, run)
			poll.Reset()
			continue

		case !run.Status.Pending():
			return "", &RunError{RunID: run.ID, Status: run.Status, Cause: run.LastError}
		}

		if err := wait(ctx, poll.NextBackOff()); err != nil {
			return "", m.abandon(ctx, run, err)
		}

		next, err := m.backend.GetRun(ctx, run.ThreadID, run.ID)
		m.cfg.Metrics.RecordPoll(ctx)
		if err != nil {
			return "", m.abandon(ctx, run, fmt.Errorf("failed to poll run %s: %w", run.ID, err))
		}
		if next.Status != run.Status {
			logger.Debug("run status changed", slog.String("from", string(run.Status)), logging.Status(string(next.Status)))
		}
		run = withThread(next, run)
	}
}

// abandon cancels a run that is still active at the provider so the thread
// accepts new messages, then returns err. Cancellation is best effort and
// survives an expired ctx.
func (m *Mediator) abandon(ctx context.Context, run assistant.Run, err error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if cerr := m.backend.CancelRun(cctx, run.ThreadID, run.ID); cerr != nil {
		logging.WithRun(m.logger, run.ThreadID, run.ID).Warn("failed to cancel run", logging.Err(cerr))
	}

	if ctx.Err() != nil {
		return fmt.Errorf("run %s did not finish: %w", run.ID, err)
	}
	return err
}

// serviceToolCalls answers every pending call, keyed by call id.
func (m *Mediator) serviceToolCalls(ctx context.Context, logger *slog.Logger, calls []assistant.ToolCall) []assistant.ToolOutput {
	outputs := make([]assistant.ToolOutput, 0, len(calls))
	for _, call := range calls {
		output, status := m.serviceToolCall(ctx, call)
		m.cfg.Metrics.RecordToolCall(ctx, call.Name, status)
		logger.Debug("serviced tool call",
			logging.Tool(call.Name),
			logging.ToolCallID(call.ID),
			logging.Status(status))
		outputs = append(outputs, assistant.ToolOutput{ToolCallID: call.ID, Output: output})
	}
	return outputs
}

func (m *Mediator) serviceToolCall(ctx context.Context, call assistant.ToolCall) (string, string) {
	if call.Name != assistant.CalendarToolName {
		return fmt.Sprintf("error: unknown tool %s", call.Name), instrumentation.StatusError
	}

	query, err := assistant.ParseCalendarQuery(call.Arguments, m.cfg.Location)
	if err != nil {
		return fmt.Sprintf("error: %v", err), instrumentation.StatusError
	}
	return BusySchedule(ctx, m.calendar, query), instrumentation.StatusSuccess
}

// BusySchedule renders one block per participant, in query order. A failed
// lookup is reported inline as "unavailable"; after an authorization failure
// the remaining participants are not queried.
func BusySchedule(ctx context.Context, cal CalendarAccessor, query assistant.CalendarQuery) string {
	var b strings.Builder
	var authErr error

	for _, participant := range query.Participants {
		fmt.Fprintf(&b, "\n%s busy schedule is as follows\n", participant)

		if authErr != nil {
			fmt.Fprintf(&b, "unavailable: %v\n", authErr)
			continue
		}

		result, err := cal.BusyIntervals(ctx, participant, query.Start, query.End)
		switch {
		case err != nil:
			if errors.Is(err, calendar.ErrAuthorization) {
				authErr = err
			}
			fmt.Fprintf(&b, "unavailable: %v\n", err)
		case result.Empty():
			b.WriteString("no events found\n")
		default:
			for _, line := range result.Lines() {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func withThread(next, prev assistant.Run) assistant.Run {
	if next.ID == "" {
		next.ID = prev.ID
	}
	if next.ThreadID == "" {
		next.ThreadID = prev.ThreadID
	}
	return next
}

func wait(ctx context.Context, d time.Duration) error {
	if d == backoff.Stop {
		return fmt.Errorf("polling stopped")
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
