package tool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/janhq/answer-api/internal/domain/llm"
)

// ExecutionStatus represents the outcome of one tool execution.
type ExecutionStatus string

const (
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Call encapsulates one tool call requested by the model.
type Call struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Execution records a finished tool call.
type Execution struct {
	Call      Call            `json:"call"`
	Iteration int             `json:"iteration"`
	Status    ExecutionStatus `json:"status"`
	Output    string          `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	Duration  time.Duration   `json:"duration"`
}

// Executor runs one named tool. The returned text becomes the tool message content.
type Executor interface {
	Definition() llm.ToolDefinition
	Execute(ctx context.Context, call Call) (string, error)
}

// Observer is notified after each tool execution.
type Observer interface {
	OnToolResult(execution Execution)
}

// ParseToolCall converts a model tool call into the domain Call struct.
func ParseToolCall(call llm.ToolCall) (Call, error) {
	var args map[string]any
	if len(call.Function.Arguments) > 0 {
		if err := json.Unmarshal(call.Function.Arguments, &args); err != nil {
			return Call{}, err
		}
	}
	return Call{
		ID:        call.ID,
		Name:      call.Function.Name,
		Arguments: args,
	}, nil
}
