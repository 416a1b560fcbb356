//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/janhq/answer-api/internal/config"
	"github.com/janhq/answer-api/internal/domain/answer"
	"github.com/janhq/answer-api/internal/domain/classifier"
	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/llm"
	"github.com/janhq/answer-api/internal/domain/rewriter"
	"github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/domain/tool"
	"github.com/janhq/answer-api/internal/infrastructure/database"
	"github.com/janhq/answer-api/internal/infrastructure/llmprovider"
	"github.com/janhq/answer-api/internal/infrastructure/logger"
	conversationrepo "github.com/janhq/answer-api/internal/infrastructure/repository/conversation"
	"github.com/janhq/answer-api/internal/interfaces/httpserver"
	"github.com/janhq/answer-api/internal/interfaces/httpserver/handlers"
	"github.com/janhq/answer-api/internal/worker"
)

var conversationSet = wire.NewSet(
	conversationrepo.NewRepository,
	wire.Bind(new(conversation.Repository), new(*conversationrepo.Repository)),
	conversationrepo.NewMessageRepository,
	wire.Bind(new(conversation.MessageRepository), new(*conversationrepo.MessageRepository)),
	conversation.NewService,
	wire.Bind(new(answer.ConversationStore), new(*conversation.Service)),
	wire.Bind(new(handlers.ConversationService), new(*conversation.Service)),
)

var answerSet = wire.NewSet(
	newLLMProvider,
	wire.Bind(new(llm.Provider), new(*llmprovider.Client)),
	newSearchCache,
	newSearchGateway,
	wire.Bind(new(answer.Searcher), new(*search.Gateway)),
	newWorkerPool,
	wire.Bind(new(answer.TaskRunner), new(*worker.Pool)),
	newClassifier,
	wire.Bind(new(answer.QueryClassifier), new(*classifier.Classifier)),
	newRewriter,
	wire.Bind(new(answer.QueryRewriter), new(*rewriter.Rewriter)),
	newOrchestrator,
	wire.Bind(new(answer.ToolLoop), new(*tool.Orchestrator)),
	newAnswerService,
	wire.Bind(new(handlers.AnswerService), new(*answer.Service)),
)

// BuildApplication assembles the answer service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		database.ConfigFrom,
		newGormDB,
		conversationSet,
		answerSet,
		handlers.NewProvider,
		newReadinessChecks,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}
