package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/answer-api/internal/domain/llm"
)

type scriptedProvider struct {
	responses []*llm.ChatCompletionResponse
	errs      []error
	requests  []llm.ChatCompletionRequest
}

func (p *scriptedProvider) CreateChatCompletion(_ context.Context, req llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	i := len(p.requests)
	p.requests = append(p.requests, req)
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return p.responses[i], nil
}

func (p *scriptedProvider) CreateChatCompletionStream(context.Context, llm.ChatCompletionRequest) (llm.Stream, error) {
	return nil, errors.New("not used")
}

type fakeExecutor struct {
	name  string
	calls []Call
	out   string
	err   error
}

func (f *fakeExecutor) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{Type: "function", Function: llm.ToolFunctionSchema{Name: f.name}}
}

func (f *fakeExecutor) Execute(_ context.Context, call Call) (string, error) {
	f.calls = append(f.calls, call)
	return f.out, f.err
}

type recordingObserver struct {
	executions []Execution
}

func (r *recordingObserver) OnToolResult(e Execution) {
	r.executions = append(r.executions, e)
}

func toolCallResponse(id, name, args string) *llm.ChatCompletionResponse {
	return &llm.ChatCompletionResponse{Choices: []llm.ChatCompletionChoice{{
		Message: llm.ChatMessage{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{
			ID: id, Type: "function",
			Function: llm.ToolFunction{Name: name, Arguments: json.RawMessage(args)},
		}}},
	}}}
}

func textResponse(text string) *llm.ChatCompletionResponse {
	return &llm.ChatCompletionResponse{Choices: []llm.ChatCompletionChoice{{
		Message: llm.ChatMessage{Role: llm.RoleAssistant, Content: text},
	}}}
}

func TestOrchestrator_RunsToolsUntilModelStops(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.ChatCompletionResponse{
		toolCallResponse("call_1", "web_search", `{"query":"france capital"}`),
		textResponse("done"),
	}}
	executor := &fakeExecutor{name: "web_search", out: "[1] France"}
	observer := &recordingObserver{}
	o := NewOrchestrator(provider, 5, 0, observer, zerolog.Nop())

	result, err := o.Execute(context.Background(), ExecuteParams{
		Profile:  llm.Profile{Model: "m"},
		Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "capital of france?"}},
		Tools:    []Executor{executor},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Iterations)
	assert.False(t, result.Exhausted)
	assert.Equal(t, "done", result.FinalMessage.Content)
	require.Len(t, executor.calls, 1)
	assert.Equal(t, "france capital", executor.calls[0].Arguments["query"])

	require.Len(t, result.Messages, 4)
	toolMsg := result.Messages[2]
	assert.Equal(t, llm.RoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, "[1] France", toolMsg.Content)

	require.Len(t, provider.requests, 2)
	assert.Equal(t, "auto", provider.requests[0].ToolChoice)
	assert.Len(t, provider.requests[0].Tools, 1)
	assert.Len(t, provider.requests[1].Messages, 3)

	require.Len(t, observer.executions, 1)
	assert.Equal(t, ExecutionStatusCompleted, observer.executions[0].Status)
}

func TestOrchestrator_NoToolCallFinishesImmediately(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.ChatCompletionResponse{textResponse("hello!")}}
	executor := &fakeExecutor{name: "web_search"}
	o := NewOrchestrator(provider, 5, 0, nil, zerolog.Nop())

	result, err := o.Execute(context.Background(), ExecuteParams{
		Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}},
		Tools:    []Executor{executor},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, executor.calls)
	assert.Empty(t, result.Executions)
}

func TestOrchestrator_IterationBound(t *testing.T) {
	responses := make([]*llm.ChatCompletionResponse, 3)
	for i := range responses {
		responses[i] = toolCallResponse("call", "web_search", `{}`)
	}
	provider := &scriptedProvider{responses: responses}
	executor := &fakeExecutor{name: "web_search", out: "results"}
	o := NewOrchestrator(provider, 3, 0, nil, zerolog.Nop())

	result, err := o.Execute(context.Background(), ExecuteParams{Tools: []Executor{executor}})

	require.NoError(t, err)
	assert.True(t, result.Exhausted)
	assert.Equal(t, 3, result.Iterations)
	assert.Len(t, executor.calls, 3)
	assert.Len(t, provider.requests, 3)
}

func TestOrchestrator_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *scriptedProvider
		executor *fakeExecutor
		wantErr  error
	}{
		{
			name:     "model error",
			provider: &scriptedProvider{errs: []error{errors.New("connection refused")}},
			executor: &fakeExecutor{name: "web_search"},
		},
		{
			name:     "no choices",
			provider: &scriptedProvider{responses: []*llm.ChatCompletionResponse{{}}},
			executor: &fakeExecutor{name: "web_search"},
			wantErr:  ErrNoChoices,
		},
		{
			name:     "tool error",
			provider: &scriptedProvider{responses: []*llm.ChatCompletionResponse{toolCallResponse("c", "web_search", `{}`)}},
			executor: &fakeExecutor{name: "web_search", err: errors.New("search backend down")},
		},
		{
			name:     "unknown tool",
			provider: &scriptedProvider{responses: []*llm.ChatCompletionResponse{toolCallResponse("c", "run_code", `{}`)}},
			executor: &fakeExecutor{name: "web_search"},
			wantErr:  ErrUnknownTool,
		},
		{
			name:     "malformed arguments",
			provider: &scriptedProvider{responses: []*llm.ChatCompletionResponse{toolCallResponse("c", "web_search", `{"query":`)}},
			executor: &fakeExecutor{name: "web_search"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(tt.provider, 5, 0, nil, zerolog.Nop())
			result, err := o.Execute(context.Background(), ExecuteParams{Tools: []Executor{tt.executor}})
			require.Error(t, err)
			assert.Nil(t, result)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
