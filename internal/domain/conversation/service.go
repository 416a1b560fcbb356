package conversation

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/utils/platformerrors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxTitleInput    = 200
)

// Service implements the conversation CRUD contract.
type Service struct {
	repo     Repository
	messages MessageRepository
	log      zerolog.Logger
}

// NewService wires the conversation service.
func NewService(repo Repository, messages MessageRepository, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		messages: messages,
		log:      log.With().Str("component", "conversation-service").Logger(),
	}
}

// List returns non-empty conversations, most recently updated first.
func (s *Service) List(ctx context.Context, limit int) ([]*Conversation, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListNonEmpty(ctx, limit)
}

// Create stores an empty conversation shell.
func (s *Service) Create(ctx context.Context) (*Conversation, error) {
	return s.create(ctx, NewConversationID())
}

func (s *Service) create(ctx context.Context, publicID string) (*Conversation, error) {
	conv := &Conversation{PublicID: publicID, Object: "conversation"}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, err
	}
	s.log.Debug().Str("conversation_id", conv.PublicID).Msg("conversation created")
	return conv, nil
}

// GetOrCreate resolves publicID, creating the conversation on first interaction.
// An empty id always creates a new conversation.
func (s *Service) GetOrCreate(ctx context.Context, publicID string) (*Conversation, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return s.Create(ctx)
	}
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err == nil {
		return conv, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}
	return s.create(ctx, publicID)
}

// Get returns a conversation with its ordered messages.
func (s *Service) Get(ctx context.Context, publicID string) (*Conversation, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByConversationID(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	conv.MessageCount = int64(len(messages))
	return conv, nil
}

// Delete removes a conversation and its messages.
func (s *Service) Delete(ctx context.Context, publicID string) error {
	return s.repo.Delete(ctx, publicID)
}

// AppendMessage adds a message to the conversation identified by publicID.
func (s *Service) AppendMessage(ctx context.Context, publicID string, role Role, content string, sources []search.Source) (*Message, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	msg := &Message{
		PublicID:       NewMessageID(),
		ConversationID: conv.ID,
		Role:           role,
		Content:        content,
		Sources:        sources,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdateTitle renames a conversation.
func (s *Service) UpdateTitle(ctx context.Context, publicID, title string) (*Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" || len([]rune(title)) > maxTitleInput {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"title must be between 1 and 200 characters", nil, "conversation-title-invalid")
	}
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTitle(ctx, conv.ID, title); err != nil {
		return nil, err
	}
	conv.Title = &title
	return conv, nil
}

// EnsureTitle sets the derived title during the first exchange (at most two stored
// messages) when no title exists yet. It reports whether the title was set.
func (s *Service) EnsureTitle(ctx context.Context, publicID, firstUserText string) (bool, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return false, err
	}
	if conv.Title != nil && *conv.Title != "" {
		return false, nil
	}
	count, err := s.messages.CountByConversationID(ctx, conv.ID)
	if err != nil {
		return false, err
	}
	if count == 0 || count > 2 {
		return false, nil
	}
	title := TitleFromText(firstUserText)
	if title == "" {
		return false, nil
	}
	return s.repo.SetTitleIfEmpty(ctx, conv.ID, title)
}
