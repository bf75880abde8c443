package assistant

import (
	"context"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// Pending reports whether the agent is still working and the run must be
// polled again.
func (s RunStatus) Pending() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusCancelling:
		return true
	}
	return false
}

// Failed reports whether the run ended without an answer.
func (s RunStatus) Failed() bool {
	switch s {
	case RunStatusCancelled, RunStatusFailed, RunStatusIncomplete, RunStatusExpired:
		return true
	}
	return false
}

// Conversation identifies the agent and the thread holding the turns.
type Conversation struct {
	AssistantID string
	ThreadID    string
}

// ToolCall is a function call the agent is waiting on.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolOutput answers one ToolCall.
type ToolOutput struct {
	ToolCallID string
	Output     string
}

// RunError is the provider's explanation of a failed run.
type RunError struct {
	Code    string
	Message string
}

// Run is one processing attempt of the agent against the thread.
type Run struct {
	ID        string
	ThreadID  string
	Status    RunStatus
	ToolCalls []ToolCall
	LastError *RunError
}

// FunctionTool declares a function the agent may call. Parameters is a JSON
// schema object.
type FunctionTool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// AssistantSpec describes the agent to create.
type AssistantSpec struct {
	Name         string
	Model        string
	Instructions string
	Tools        []FunctionTool
}

// Backend is the agent provider boundary.
type Backend interface {
	CreateAssistant(ctx context.Context, spec AssistantSpec) (string, error)
	CreateThread(ctx context.Context) (string, error)
	AddUserMessage(ctx context.Context, threadID, text string) error
	CreateRun(ctx context.Context, threadID, assistantID, instructions string) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	// LatestAssistantMessage returns the text of the newest agent message
	// written by the run.
	LatestAssistantMessage(ctx context.Context, threadID, runID string) (string, error)
}
