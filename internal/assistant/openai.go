package assistant

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// messageScanLimit bounds how many recent messages are searched for the reply.
const messageScanLimit = 20

// OpenAIBackend implements Backend with the OpenAI Assistants API.
type OpenAIBackend struct {
	client openai.Client
}

// NewOpenAIBackend creates a backend authenticated with apiKey. Extra request
// options (base URL, HTTP client, retries) are applied after the key.
func NewOpenAIBackend(apiKey string, opts ...option.RequestOption) *OpenAIBackend {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIBackend{client: openai.NewClient(opts...)}
}

func (b *OpenAIBackend) CreateAssistant(ctx context.Context, spec AssistantSpec) (string, error) {
	params := openai.BetaAssistantNewParams{
		Model:        openai.ChatModel(spec.Model),
		Name:         openai.String(spec.Name),
		Instructions: openai.String(spec.Instructions),
	}
	for _, tool := range spec.Tools {
		params.Tools = append(params.Tools, openai.AssistantToolUnionParam{
			OfFunction: &openai.FunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  openai.FunctionParameters(tool.Parameters),
				},
			},
		})
	}

	assistant, err := b.client.Beta.Assistants.New(ctx, params)
	if err != nil {
		return "", err
	}
	return assistant.ID, nil
}

func (b *OpenAIBackend) CreateThread(ctx context.Context) (string, error) {
	thread, err := b.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (b *OpenAIBackend) AddUserMessage(ctx context.Context, threadID, text string) error {
	_, err := b.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(text),
		},
	})
	return err
}

// CreateRun starts a run. The per-run instructions are appended to the
// agent's standing instructions rather than replacing them.
func (b *OpenAIBackend) CreateRun(ctx context.Context, threadID, assistantID, instructions string) (Run, error) {
	params := openai.BetaThreadRunNewParams{AssistantID: assistantID}
	if instructions != "" {
		params.AdditionalInstructions = openai.String(instructions)
	}

	run, err := b.client.Beta.Threads.Runs.New(ctx, threadID, params)
	if err != nil {
		return Run{}, err
	}
	return toRun(run), nil
}

func (b *OpenAIBackend) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := b.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return Run{}, err
	}
	return toRun(run), nil
}

func (b *OpenAIBackend) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	params := openai.BetaThreadRunSubmitToolOutputsParams{}
	for _, out := range outputs {
		params.ToolOutputs = append(params.ToolOutputs, openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(out.ToolCallID),
			Output:     openai.String(out.Output),
		})
	}

	run, err := b.client.Beta.Threads.Runs.SubmitToolOutputs(ctx, threadID, runID, params)
	if err != nil {
		return Run{}, err
	}
	return toRun(run), nil
}

func (b *OpenAIBackend) CancelRun(ctx context.Context, threadID, runID string) error {
	_, err := b.client.Beta.Threads.Runs.Cancel(ctx, threadID, runID)
	return err
}

func (b *OpenAIBackend) LatestAssistantMessage(ctx context.Context, threadID, runID string) (string, error) {
	page, err := b.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderDesc,
		RunID: openai.String(runID),
		Limit: openai.Int(messageScanLimit),
	})
	if err != nil {
		return "", err
	}

	for _, msg := range page.Data {
		if msg.Role != openai.MessageRoleAssistant {
			continue
		}
		for _, content := range msg.Content {
			if content.Type == "text" {
				return content.Text.Value, nil
			}
		}
	}
	return "", fmt.Errorf("run %s produced no assistant message", runID)
}

func toRun(r *openai.Run) Run {
	run := Run{
		ID:       r.ID,
		ThreadID: r.ThreadID,
		Status:   RunStatus(r.Status),
	}
	for _, call := range r.RequiredAction.SubmitToolOutputs.ToolCalls {
		run.ToolCalls = append(run.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	if r.LastError.Message != "" {
		run.LastError = &RunError{Code: string(r.LastError.Code), Message: r.LastError.Message}
	}
	return run
}

var _ Backend = (*OpenAIBackend)(nil)
