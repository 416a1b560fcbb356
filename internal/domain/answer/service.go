package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/llm"
	"github.com/janhq/answer-api/internal/domain/prompt"
	"github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/domain/tool"
	"github.com/janhq/answer-api/internal/utils/platformerrors"
)

const defaultAnswerTimeout = 60 * time.Second

var tracer = otel.Tracer("github.com/janhq/answer-api/internal/domain/answer")

// Config controls answer generation.
type Config struct {
	DefaultMode   string
	Profile       llm.Profile
	Timeout       time.Duration
	SearchLimit   int
	HistoryWindow int
}

// Dependencies groups the collaborators of the answer service.
type Dependencies struct {
	Provider   llm.Provider
	Store      ConversationStore
	Tasks      TaskRunner
	Searcher   Searcher
	Classifier QueryClassifier
	Rewriter   QueryRewriter
	ToolLoop   ToolLoop
}

// Service produces streamed, cited answers and persists the exchange.
type Service struct {
	provider   llm.Provider
	store      ConversationStore
	tasks      TaskRunner
	searcher   Searcher
	classifier QueryClassifier
	rewriter   QueryRewriter
	loop       ToolLoop
	cfg        Config
	log        zerolog.Logger
}

// NewService constructs the answer service.
func NewService(deps Dependencies, cfg Config, log zerolog.Logger) *Service {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = ModeAgentic
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAnswerTimeout
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = search.DefaultLimit
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = prompt.DefaultWindow
	}
	return &Service{
		provider:   deps.Provider,
		store:      deps.Store,
		tasks:      deps.Tasks,
		searcher:   deps.Searcher,
		classifier: deps.Classifier,
		rewriter:   deps.Rewriter,
		loop:       deps.ToolLoop,
		cfg:        cfg,
		log:        log.With().Str("component", "answer-service").Logger(),
	}
}

// Answer runs one turn. Only validation failures and a generation failure before the
// first token are returned as errors; every other stage degrades to a fallback.
func (s *Service) Answer(ctx context.Context, req Request, obs Observer) (*Outcome, error) {
	mode, question, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	history := req.Messages[:len(req.Messages)-1]

	ctx, span := tracer.Start(ctx, "answer.turn", trace.WithAttributes(attribute.String("answer.mode", mode)))
	defer span.End()

	convID := s.resolveConversation(ctx, req.ConversationID)
	span.SetAttributes(attribute.String("conversation.id", convID))
	if err := obs.OnConversation(convID); err != nil {
		return nil, err
	}
	log := s.log.With().Str("conversation_id", convID).Str("mode", mode).Logger()

	userSaved := newPendingTask(s.tasks.Submit(ctx, "persist_user_message", func(ctx context.Context) error {
		_, err := s.store.AppendMessage(ctx, convID, conversation.RoleUser, question, nil)
		return err
	}))
	titleText := firstUserText(req.Messages)
	updateTitle := func(ctx context.Context) error {
		if err := userSaved.wait(ctx); err != nil {
			log.Warn().Err(err).Msg("user message not stored, skipping title update")
			return nil
		}
		if _, err := s.store.EnsureTitle(ctx, convID, titleText); err != nil {
			log.Warn().Err(err).Msg("title update failed")
		}
		return nil
	}

	out := &Outcome{ConversationID: convID, Mode: mode}
	var sources []search.Source
	if mode == ModeClassic {
		sources = s.retrieveClassic(ctx, question, history, out, updateTitle)
	} else {
		sources = s.retrieveAgentic(ctx, question, history, out, updateTitle, log)
	}
	out.Sources = sources

	messages := prompt.Build(prompt.Params{
		History:  history,
		Question: question,
		Sources:  sources,
		Window:   s.cfg.HistoryWindow,
	})
	content, err := s.stream(ctx, messages, sources, obs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream failed")
		log.Warn().Err(err).Int("partial_length", len(content)).Msg("answer not completed, not persisting")
		return nil, err
	}
	out.Content = content

	s.persistAnswer(ctx, out, userSaved, log)
	log.Info().
		Int("sources", len(sources)).
		Bool("tool_fallback", out.ToolFallback).
		Bool("persisted", out.Persisted).
		Msg("answer completed")
	return out, nil
}

func (s *Service) validate(ctx context.Context, req Request) (string, string, error) {
	_, span := tracer.Start(ctx, "answer.validate")
	defer span.End()

	invalid := func(message, uuid string) error {
		span.SetStatus(codes.Error, message)
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, message, nil, uuid)
	}

	if len(req.Messages) == 0 {
		return "", "", invalid("messages must not be empty", "answer-messages-empty")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != conversation.RoleUser {
		return "", "", invalid("last message must come from the user", "answer-last-not-user")
	}
	question := strings.TrimSpace(last.Text)
	if question == "" {
		return "", "", invalid("last message must not be empty", "answer-question-empty")
	}

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	switch mode {
	case "":
		mode = s.cfg.DefaultMode
	case ModeAgentic, ModeClassic:
	default:
		return "", "", invalid(fmt.Sprintf("mode must be %q or %q", ModeAgentic, ModeClassic), "answer-mode-invalid")
	}
	return mode, question, nil
}

func (s *Service) resolveConversation(ctx context.Context, publicID string) string {
	conv, err := s.store.GetOrCreate(ctx, publicID)
	if err == nil {
		return conv.PublicID
	}
	if publicID = strings.TrimSpace(publicID); publicID == "" {
		publicID = conversation.NewConversationID()
	}
	s.log.Error().Err(err).Str("conversation_id", publicID).Msg("resolve conversation failed, answering without a stored conversation")
	return publicID
}

func (s *Service) retrieveClassic(ctx context.Context, question string, history []conversation.Turn, out *Outcome, updateTitle func(context.Context) error) []search.Source {
	cctx, cspan := tracer.Start(ctx, "answer.classify")
	result := s.classifier.Classify(cctx, question, history)
	cspan.SetAttributes(
		attribute.String("classifier.decision", string(result.Decision)),
		attribute.String("classifier.stage", result.Stage),
	)
	cspan.End()
	out.Classification = &result

	var results []search.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return updateTitle(gctx) })
	if result.NeedsSearch() {
		g.Go(func() error {
			rctx, rspan := tracer.Start(gctx, "answer.retrieve", trace.WithAttributes(attribute.String("search.query", result.Query)))
			defer rspan.End()
			results = s.searcher.Search(rctx, result.Query, s.cfg.SearchLimit)
			rspan.SetAttributes(attribute.Int("search.results", len(results)))
			return nil
		})
	}
	_ = g.Wait()

	if len(results) == 0 {
		return nil
	}
	return search.Number(results)
}

func (s *Service) retrieveAgentic(ctx context.Context, question string, history []conversation.Turn, out *Outcome, updateTitle func(context.Context) error, log zerolog.Logger) []search.Source {
	var sources []search.Source
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return updateTitle(gctx) })
	g.Go(func() error {
		sources = s.runToolLoop(gctx, question, history, out, log)
		return nil
	})
	_ = g.Wait()
	return sources
}

func (s *Service) runToolLoop(ctx context.Context, question string, history []conversation.Turn, out *Outcome, log zerolog.Logger) []search.Source {
	rctx, rspan := tracer.Start(ctx, "answer.rewrite")
	query := s.rewriter.Rewrite(rctx, question, history)
	rspan.SetAttributes(attribute.String("search.query", query))
	rspan.End()
	out.RewrittenQuery = query

	ctx, span := tracer.Start(ctx, "answer.tool_loop")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	webSearch := newWebSearchTool(s.searcher, query, s.cfg.SearchLimit)
	messages := []llm.ChatMessage{{Role: llm.RoleSystem, Content: prompt.ToolSystemPrompt()}}
	messages = append(messages, prompt.Messages(prompt.Window(history, s.cfg.HistoryWindow))...)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: query})

	result, err := s.loop.Execute(ctx, tool.ExecuteParams{
		Profile:  s.cfg.Profile,
		Messages: messages,
		Tools:    []tool.Executor{webSearch},
	})
	if err != nil {
		out.ToolFallback = true
		span.RecordError(err)
		span.AddEvent("fallback", trace.WithAttributes(attribute.String("reason", err.Error())))
		log.Warn().Err(err).Msg("tool loop failed, falling back to direct prompt")
		return nil
	}

	sources := webSearch.Sources()
	span.SetAttributes(
		attribute.Int("tool.iterations", result.Iterations),
		attribute.Bool("tool.exhausted", result.Exhausted),
		attribute.Int("search.sources", len(sources)),
	)
	if len(sources) == 0 {
		return nil
	}
	return sources
}

func (s *Service) stream(ctx context.Context, messages []llm.ChatMessage, sources []search.Source, obs Observer) (string, error) {
	ctx, span := tracer.Start(ctx, "answer.stream", trace.WithAttributes(attribute.Int("search.sources", len(sources))))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	stream, err := s.provider.CreateChatCompletionStream(ctx, llm.NewRequest(s.cfg.Profile, messages))
	if err != nil {
		return "", s.generationError(ctx, err)
	}
	defer stream.Close()

	sourcesSent := false
	emitSources := func() error {
		if sourcesSent {
			return nil
		}
		sourcesSent = true
		if len(sources) == 0 {
			return nil
		}
		return obs.OnSources(sources)
	}

	var sb strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if sb.Len() == 0 {
				return "", s.generationError(ctx, err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sb.String(), ctxErr
			}
			return sb.String(), fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
		}
		if delta == nil || delta.Content == "" {
			continue
		}
		if err := emitSources(); err != nil {
			return sb.String(), err
		}
		if err := obs.OnDelta(delta.Content); err != nil {
			return sb.String(), err
		}
		sb.WriteString(delta.Content)
	}

	if err := emitSources(); err != nil {
		return sb.String(), err
	}
	span.SetAttributes(attribute.Int("answer.length", sb.Len()))
	return sb.String(), nil
}

func (s *Service) generationError(ctx context.Context, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
		"answer generation failed", err, "answer-generation-failed")
}

// persistAnswer stores the assistant message only after the user message it answers,
// so a conversation never starts with an assistant message.
func (s *Service) persistAnswer(ctx context.Context, out *Outcome, userSaved *pendingTask, log zerolog.Logger) {
	ctx, span := tracer.Start(ctx, "answer.persist")
	defer span.End()

	if err := userSaved.wait(context.WithoutCancel(ctx)); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("user message not stored, skipping assistant message")
		return
	}

	var saved *conversation.Message
	result := s.tasks.Submit(ctx, "persist_assistant_message", func(ctx context.Context) error {
		msg, err := s.store.AppendMessage(ctx, out.ConversationID, conversation.RoleAssistant, out.Content, out.Sources)
		if err != nil {
			return err
		}
		saved = msg
		return nil
	})
	if err := newPendingTask(result).wait(context.WithoutCancel(ctx)); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("assistant message not stored")
		return
	}
	out.MessageID = saved.PublicID
	out.Persisted = true
}

func firstUserText(turns []conversation.Turn) string {
	for _, turn := range turns {
		if turn.Role == conversation.RoleUser && strings.TrimSpace(turn.Text) != "" {
			return turn.Text
		}
	}
	return ""
}
