package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/answer"
	"github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/infrastructure/metrics"
	"github.com/janhq/answer-api/internal/interfaces/httpserver/dto"
	"github.com/janhq/answer-api/internal/interfaces/httpserver/responses"
	"github.com/janhq/answer-api/internal/utils/platformerrors"
)

// ConversationIDHeader carries the resolved conversation id on chat responses.
const ConversationIDHeader = "X-Conversation-ID"

// AnswerService is the answer pipeline consumed by the chat endpoint.
type AnswerService interface {
	Answer(ctx context.Context, req answer.Request, obs answer.Observer) (*answer.Outcome, error)
}

// ChatHandler exposes the streaming chat endpoint.
type ChatHandler struct {
	service AnswerService
	log     zerolog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(service AnswerService, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		log:     log.With().Str("handler", "chat").Logger(),
	}
}

// Chat godoc
// @Summary      Answer a chat turn
// @Description  Streams the answer as server-sent events: an optional sources event, delta events, then done. Validation failures return 400 before the stream starts.
// @Tags         chat
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      dto.ChatRequest  true  "Chat request"
// @Success      200      {string}  string  "event stream"
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Router       /v1/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error(), "chat-invalid-body")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeInternal, "streaming not supported", "chat-streaming-unsupported")
		return
	}

	ctx := c.Request.Context()
	observer := newSSEObserver(ctx, c.Writer, flusher, h.log)
	outcome, err := h.service.Answer(ctx, answer.Request{
		ConversationID: req.ConversationRef(),
		Messages:       req.Turns(),
		Mode:           req.Mode,
	}, observer)
	if err != nil {
		h.recordFailure(req.Mode, err)
		if !observer.started() {
			responses.HandleError(c, err, "failed to generate answer")
			return
		}
		if ctx.Err() == nil {
			observer.sendError(err)
		}
		return
	}

	status := "completed"
	if outcome.ToolFallback {
		status = "tool_fallback"
	}
	metrics.RecordAnswerTurn(outcome.Mode, status)
	if outcome.Classification != nil {
		metrics.RecordClassification(outcome.Classification.Stage, string(outcome.Classification.Decision))
	}

	observer.sendEvent("done", dto.DoneEvent{
		ConversationID: outcome.ConversationID,
		MessageID:      outcome.MessageID,
		Persisted:      outcome.Persisted,
	})
}

func (h *ChatHandler) recordFailure(mode string, err error) {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) && platformErr.Type != platformerrors.ErrorTypeValidation {
		platformerrors.LogError(h.log, platformErr)
	}

	status := "failed"
	switch {
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation):
		status = "invalid"
	case errors.Is(err, context.Canceled):
		status = "cancelled"
	case errors.Is(err, answer.ErrStreamInterrupted):
		status = "interrupted"
	}
	if mode == "" {
		mode = "default"
	}
	metrics.RecordAnswerTurn(mode, status)
}

// sseObserver writes answer events as text/event-stream frames. Headers are committed
// on the first event so errors before it can still be reported as JSON.
type sseObserver struct {
	ctx     context.Context
	writer  gin.ResponseWriter
	flusher http.Flusher
	log     zerolog.Logger
	mu      sync.Mutex
	open    bool
}

func newSSEObserver(ctx context.Context, w gin.ResponseWriter, flusher http.Flusher, log zerolog.Logger) *sseObserver {
	return &sseObserver{
		ctx:     ctx,
		writer:  w,
		flusher: flusher,
		log:     log,
	}
}

func (o *sseObserver) OnConversation(conversationID string) error {
	o.writer.Header().Set(ConversationIDHeader, conversationID)
	return nil
}

func (o *sseObserver) OnSources(sources []search.Source) error {
	return o.sendEvent("sources", dto.SourcesEvent{Sources: dto.FromSources(sources)})
}

func (o *sseObserver) OnDelta(text string) error {
	return o.sendEvent("delta", dto.DeltaEvent{Text: text})
}

func (o *sseObserver) started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

func (o *sseObserver) sendError(err error) {
	event := dto.ErrorEvent{Message: "answer generation failed"}
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		event.Code = platformErr.UUID
	}
	if errors.Is(err, answer.ErrStreamInterrupted) {
		event.Code = "answer-stream-interrupted"
		event.Message = "answer stream interrupted"
	}
	o.sendEvent("error", event)
}

func (o *sseObserver) sendEvent(name string, payload any) error {
	if err := o.ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		o.log.Error().Err(err).Str("event", name).Msg("marshal SSE payload")
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open {
		header := o.writer.Header()
		header.Set("Content-Type", "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		header.Set("X-Accel-Buffering", "no")
		o.writer.WriteHeader(http.StatusOK)
		o.open = true
	}

	if _, err := fmt.Fprintf(o.writer, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	o.flusher.Flush()
	return nil
}

var _ answer.Observer = (*sseObserver)(nil)
