package assistant

import (
	"context"
	"errors"
	"sync"
)

// fakeBackend records calls and returns scripted results.
type fakeBackend struct {
	mu sync.Mutex

	assistantErr error
	threadErr    error
	runErr       error

	specs        []AssistantSpec
	threads      int
	messages     []string
	instructions []string
}

func (f *fakeBackend) CreateAssistant(_ context.Context, spec AssistantSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assistantErr != nil {
		return "", f.assistantErr
	}
	f.specs = append(f.specs, spec)
	return "asst_1", nil
}

func (f *fakeBackend) CreateThread(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return "", f.threadErr
	}
	f.threads++
	return "thread_1", nil
}

func (f *fakeBackend) AddUserMessage(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeBackend) CreateRun(_ context.Context, _, _ string, instructions string) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return Run{}, f.runErr
	}
	f.instructions = append(f.instructions, instructions)
	return Run{ID: "run_1", Status: RunStatusQueued}, nil
}

func (f *fakeBackend) GetRun(context.Context, string, string) (Run, error) {
	return Run{}, errors.New("not scripted")
}

func (f *fakeBackend) SubmitToolOutputs(context.Context, string, string, []ToolOutput) (Run, error) {
	return Run{}, errors.New("not scripted")
}

func (f *fakeBackend) CancelRun(context.Context, string, string) error {
	return nil
}

func (f *fakeBackend) LatestAssistantMessage(context.Context, string, string) (string, error) {
	return "", errors.New("not scripted")
}
