package metrics

import (
	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/tool"
)

// ToolObserver records tool loop executions as metrics and debug logs.
type ToolObserver struct {
	log zerolog.Logger
}

// NewToolObserver constructs the observer.
func NewToolObserver(log zerolog.Logger) *ToolObserver {
	return &ToolObserver{log: log.With().Str("component", "tool-observer").Logger()}
}

// OnToolResult implements tool.Observer.
func (o *ToolObserver) OnToolResult(execution tool.Execution) {
	RecordToolCall(execution.Call.Name, string(execution.Status), execution.Duration.Seconds())

	event := o.log.Debug()
	if execution.Status == tool.ExecutionStatusFailed {
		event = o.log.Warn().Str("error", execution.Error)
	}
	event.
		Str("tool", execution.Call.Name).
		Int("iteration", execution.Iteration).
		Dur("duration", execution.Duration).
		Msg("tool executed")
}

var _ tool.Observer = (*ToolObserver)(nil)
