package answer

import (
	"context"
	"errors"

	"github.com/janhq/answer-api/internal/domain/classifier"
	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/domain/tool"
)

// Orchestration modes.
const (
	ModeAgentic = "agentic"
	ModeClassic = "classic"
)

// ErrStreamInterrupted is returned when the model stream fails after tokens were
// delivered. The partial answer is not persisted.
var ErrStreamInterrupted = errors.New("answer stream interrupted")

// Request is one chat turn submitted by a client.
type Request struct {
	ConversationID string
	Messages       []conversation.Turn
	Mode           string
}

// Outcome summarizes a completed answer.
type Outcome struct {
	ConversationID string
	MessageID      string
	Mode           string
	Content        string
	Sources        []search.Source
	Classification *classifier.Result
	RewrittenQuery string
	ToolFallback   bool
	Persisted      bool
}

// Observer receives the streamed answer. OnConversation is called before anything else,
// OnSources at most once and strictly before the first OnDelta. An error returned by
// the observer stops the stream as if the client disconnected.
type Observer interface {
	OnConversation(conversationID string) error
	OnSources(sources []search.Source) error
	OnDelta(text string) error
}

// ConversationStore is the part of the conversation service the pipeline writes to.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, publicID string) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, publicID string, role conversation.Role, content string, sources []search.Source) (*conversation.Message, error)
	EnsureTitle(ctx context.Context, publicID, firstUserText string) (bool, error)
}

// TaskRunner runs best-effort side effects detached from the request. The returned
// channel reports the task's error once.
type TaskRunner interface {
	Submit(ctx context.Context, name string, fn func(ctx context.Context) error) <-chan error
}

// Searcher returns normalized web results and never fails.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []search.Result
}

// QueryClassifier decides whether a query needs retrieval.
type QueryClassifier interface {
	Classify(ctx context.Context, query string, history []conversation.Turn) classifier.Result
}

// QueryRewriter resolves a follow-up into a standalone query.
type QueryRewriter interface {
	Rewrite(ctx context.Context, query string, history []conversation.Turn) string
}

// ToolLoop runs the model with tools bound until it stops calling them.
type ToolLoop interface {
	Execute(ctx context.Context, params tool.ExecuteParams) (*tool.ExecuteResult, error)
}

// pendingTask is a submitted task whose result several stages wait on. The task
// channel delivers once, so the result is kept for every later waiter.
type pendingTask struct {
	done chan struct{}
	err  error
}

func newPendingTask(result <-chan error) *pendingTask {
	p := &pendingTask{done: make(chan struct{})}
	go func() {
		p.err = <-result
		close(p.done)
	}()
	return p
}

func (p *pendingTask) wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
