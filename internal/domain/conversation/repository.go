package conversation

import "context"

// Repository exposes CRUD operations for conversation metadata.
type Repository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	// ListNonEmpty returns conversations with at least one message, most recently updated first.
	ListNonEmpty(ctx context.Context, limit int) ([]*Conversation, error)
	// Delete removes the conversation and its messages.
	Delete(ctx context.Context, publicID string) error
	UpdateTitle(ctx context.Context, conversationID uint, title string) error
	// SetTitleIfEmpty sets the title only when none is set yet and reports whether it did.
	SetTitleIfEmpty(ctx context.Context, conversationID uint, title string) (bool, error)
}

// MessageRepository persists individual conversation messages.
type MessageRepository interface {
	// Create inserts the message and bumps the conversation's updated_at.
	Create(ctx context.Context, message *Message) error
	ListByConversationID(ctx context.Context, conversationID uint) ([]Message, error)
	CountByConversationID(ctx context.Context, conversationID uint) (int64, error)
}
