package handlers

import (
	"github.com/rs/zerolog"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Chat         *ChatHandler
	Conversation *ConversationHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(answerService AnswerService, conversationService ConversationService, log zerolog.Logger) *Provider {
	return &Provider{
		Chat:         NewChatHandler(answerService, log),
		Conversation: NewConversationHandler(conversationService, log),
	}
}
