package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Answer-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Search lookups by path (cache, primary, direct) and outcome
	SearchLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "search_lookups_total",
			Help:      "Total search lookups by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "search_duration_seconds",
			Help:      "Search backend latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"path"},
	)

	// Classifier decisions by stage (heuristic, model) and decision
	ClassifierDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "classifier_decisions_total",
			Help:      "Search decisions by stage and outcome",
		},
		[]string{"stage", "decision"},
	)

	// Tool call counters
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations in the agentic loop",
		},
		[]string{"tool_name", "status"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "tool_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool_name"},
	)

	// Answer turns by mode and status
	AnswerTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "answer_turns_total",
			Help:      "Answer turns by orchestration mode and status",
		},
		[]string{"mode", "status"},
	)

	// Background tasks counter
	BackgroundTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "background_tasks_total",
			Help:      "Total best-effort background tasks processed",
		},
		[]string{"task", "status"},
	)

	// DB query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"query_type"},
	)
)

// RegisterTaskQueueDepth exposes the background task backlog reported by depth.
func RegisterTaskQueueDepth(depth func() int) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "jan",
			Subsystem: "answer_api",
			Name:      "background_task_queue_depth",
			Help:      "Background tasks waiting for a worker",
		},
		func() float64 { return float64(depth()) },
	)
}

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordSearch records a search lookup on one path
func RecordSearch(path, outcome string, durationSec float64) {
	SearchLookupsTotal.WithLabelValues(path, outcome).Inc()
	if durationSec > 0 {
		SearchDuration.WithLabelValues(path).Observe(durationSec)
	}
}

// RecordClassification records a search decision
func RecordClassification(stage, decision string) {
	ClassifierDecisionsTotal.WithLabelValues(stage, decision).Inc()
}

// RecordToolCall records a tool invocation
func RecordToolCall(toolName, status string, durationSec float64) {
	ToolCallsTotal.WithLabelValues(toolName, status).Inc()
	ToolDuration.WithLabelValues(toolName).Observe(durationSec)
}

// RecordAnswerTurn records the outcome of an answer turn
func RecordAnswerTurn(mode, status string) {
	AnswerTurnsTotal.WithLabelValues(mode, status).Inc()
}

// RecordBackgroundTask records a background task execution
func RecordBackgroundTask(task, status string) {
	BackgroundTasksTotal.WithLabelValues(task, status).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(queryType string, durationSec float64) {
	DBQueryDuration.WithLabelValues(queryType).Observe(durationSec)
}
