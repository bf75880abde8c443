package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teemow/meetingscheduler/internal/assistant"
	"github.com/teemow/meetingscheduler/internal/calendar"
)

// fakeBackend plays back a scripted sequence of run states. GetRun returns
// the next state; the last one repeats. SubmitToolOutputs records outputs and
// returns the next state as well.
type fakeBackend struct {
	mu sync.Mutex

	script   []assistant.Run
	answer   string
	getErr   error
	subErr   error
	submits  [][]assistant.ToolOutput
	polls    int
	cancels  int
	messages []string
	instr    []string
}

func (f *fakeBackend) next() assistant.Run {
	if len(f.script) == 0 {
		return assistant.Run{Status: assistant.RunStatusInProgress}
	}
	run := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	return run
}

func (f *fakeBackend) CreateAssistant(context.Context, assistant.AssistantSpec) (string, error) {
	return "asst_1", nil
}

func (f *fakeBackend) CreateThread(context.Context) (string, error) {
	return "thread_1", nil
}

func (f *fakeBackend) AddUserMessage(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeBackend) CreateRun(_ context.Context, threadID, _ string, instructions string) (assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instr = append(f.instr, instructions)
	return assistant.Run{ID: "run_1", ThreadID: threadID, Status: assistant.RunStatusQueued}, nil
}

func (f *fakeBackend) GetRun(context.Context, string, string) (assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.getErr != nil {
		return assistant.Run{}, f.getErr
	}
	return f.next(), nil
}

func (f *fakeBackend) SubmitToolOutputs(_ context.Context, _, _ string, outputs []assistant.ToolOutput) (assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, outputs)
	if f.subErr != nil {
		return assistant.Run{}, f.subErr
	}
	return assistant.Run{Status: assistant.RunStatusInProgress}, nil
}

func (f *fakeBackend) CancelRun(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeBackend) LatestAssistantMessage(context.Context, string, string) (string, error) {
	if f.answer == "" {
		return "", errors.New("no assistant message")
	}
	return f.answer, nil
}

type busyCall struct {
	Participant string
	Start, End  time.Time
}

// fakeCalendar answers from busy; participants in errs fail with that error.
type fakeCalendar struct {
	mu    sync.Mutex
	busy  map[string][]calendar.TimeRange
	errs  map[string]error
	calls []busyCall
}

func (f *fakeCalendar) BusyIntervals(_ context.Context, participant string, start, end time.Time) (calendar.BusyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, busyCall{Participant: participant, Start: start, End: end})

	if _, err := calendar.ValidateParticipant(participant); err != nil {
		return calendar.BusyResult{}, err
	}
	if err := f.errs[participant]; err != nil {
		return calendar.BusyResult{}, err
	}
	return calendar.BusyResult{Participant: participant, From: start, To: end, Intervals: f.busy[participant]}, nil
}

func (f *fakeCalendar) participants() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Participant)
	}
	return out
}
