package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/llm"
)

const defaultMaxIterations = 5

var (
	// ErrNoChoices is returned when the model response carries no choice.
	ErrNoChoices = errors.New("llm returned no choices")
	// ErrUnknownTool is returned when the model requests a tool that was not bound.
	ErrUnknownTool = errors.New("unknown tool requested")
)

// Orchestrator lets the model call tools, non-streaming, until it stops asking or the
// iteration bound is reached.
type Orchestrator struct {
	llmProvider     llm.Provider
	maxIterations   int
	toolCallTimeout time.Duration
	observer        Observer
	log             zerolog.Logger
}

// NewOrchestrator constructs a tool orchestrator instance. observer may be nil.
func NewOrchestrator(llmProvider llm.Provider, maxIterations int, toolCallTimeout time.Duration, observer Observer, log zerolog.Logger) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Orchestrator{
		llmProvider:     llmProvider,
		maxIterations:   maxIterations,
		toolCallTimeout: toolCallTimeout,
		observer:        observer,
		log:             log.With().Str("component", "tool-orchestrator").Logger(),
	}
}

// ExecuteParams contains the data needed to start the loop.
type ExecuteParams struct {
	Profile  llm.Profile
	Messages []llm.ChatMessage
	Tools    []Executor
}

// ExecuteResult captures the running message list and every tool execution.
type ExecuteResult struct {
	FinalMessage llm.ChatMessage
	Messages     []llm.ChatMessage
	Executions   []Execution
	Iterations   int
	// Exhausted is set when the bound was hit while the model still requested tools.
	Exhausted bool
}

// Execute drives the loop. Any model or tool failure aborts it with an error so the
// caller can fall back to a tool-free path.
func (o *Orchestrator) Execute(ctx context.Context, params ExecuteParams) (*ExecuteResult, error) {
	messages := append([]llm.ChatMessage(nil), params.Messages...)
	executors := make(map[string]Executor, len(params.Tools))
	definitions := make([]llm.ToolDefinition, 0, len(params.Tools))
	for _, executor := range params.Tools {
		def := executor.Definition()
		executors[def.Function.Name] = executor
		definitions = append(definitions, def)
	}

	result := &ExecuteResult{}
	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		req := llm.NewRequest(params.Profile, messages)
		req.Tools = definitions
		req.ToolChoice = "auto"

		resp, err := o.llmProvider.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iteration, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("iteration %d: %w", iteration, ErrNoChoices)
		}
		choice := resp.Choices[0]
		if choice.Message.Role == "" {
			choice.Message.Role = llm.RoleAssistant
		}
		messages = append(messages, choice.Message)
		result.Iterations = iteration

		if len(choice.Message.ToolCalls) == 0 {
			result.FinalMessage = choice.Message
			result.Messages = messages
			return result, nil
		}

		o.log.Debug().Int("iteration", iteration).Int("tool_calls", len(choice.Message.ToolCalls)).Msg("model requested tools")

		for _, call := range choice.Message.ToolCalls {
			parsedCall, err := ParseToolCall(call)
			if err != nil {
				return nil, fmt.Errorf("parse tool call %s: %w", call.Function.Name, err)
			}
			executor, ok := executors[parsedCall.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownTool, parsedCall.Name)
			}

			execution := o.run(ctx, executor, parsedCall, iteration)
			result.Executions = append(result.Executions, execution)
			if o.observer != nil {
				o.observer.OnToolResult(execution)
			}
			if execution.Status == ExecutionStatusFailed {
				return nil, fmt.Errorf("tool %s: %s", parsedCall.Name, execution.Error)
			}

			messages = append(messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				Content:    execution.Output,
				ToolCallID: parsedCall.ID,
			})
		}
	}

	o.log.Warn().Int("max_iterations", o.maxIterations).Msg("tool loop reached its iteration bound")
	result.Messages = messages
	result.Exhausted = true
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, executor Executor, call Call, iteration int) Execution {
	callCtx := ctx
	var cancel context.CancelFunc
	if o.toolCallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.toolCallTimeout)
	}
	startTime := time.Now()
	output, err := executor.Execute(callCtx, call)
	if cancel != nil {
		cancel()
	}

	execution := Execution{
		Call:      call,
		Iteration: iteration,
		Status:    ExecutionStatusCompleted,
		Output:    output,
		Duration:  time.Since(startTime),
	}
	if err != nil {
		execution.Status = ExecutionStatusFailed
		execution.Error = err.Error()
	} else if execution.Output == "" {
		execution.Output = "[tool execution completed]"
	}
	return execution
}
