package conversation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	domain "github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/infrastructure/database/entities"
)

// Repository persists conversation metadata.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a conversation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the conversation record.
func (r *Repository) Create(ctx context.Context, conv *domain.Conversation) error {
	entity := entities.NewSchemaConversation(conv)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return dbError(ctx, "failed to create conversation", err, "conversation-create-error")
	}

	conv.ID = entity.ID
	conv.Object = entity.Object
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByPublicID fetches a conversation by its public ID.
func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, conversationNotFound(ctx, publicID)
		}
		return nil, dbError(ctx, "failed to fetch conversation", err, "conversation-fetch-error")
	}
	return entity.EtoD(), nil
}

// ListNonEmpty returns conversations that have messages, most recently updated first.
func (r *Repository) ListNonEmpty(ctx context.Context, limit int) ([]*domain.Conversation, error) {
	var rows []entities.ConversationWithCount
	if err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Select("conversations.*, COUNT(conversation_messages.id) AS message_count").
		Joins("JOIN conversation_messages ON conversation_messages.conversation_id = conversations.id").
		Group("conversations.id").
		Order("conversations.updated_at DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, dbError(ctx, "failed to list conversations", err, "conversation-list-error")
	}

	result := make([]*domain.Conversation, 0, len(rows))
	for i := range rows {
		conv := rows[i].EtoD()
		conv.MessageCount = rows[i].MessageCount
		result = append(result, conv)
	}
	return result, nil
}

// Delete removes the conversation and its messages in one transaction.
func (r *Repository) Delete(ctx context.Context, publicID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity entities.Conversation
		if err := tx.Select("id").Where("public_id = ?", publicID).First(&entity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return conversationNotFound(ctx, publicID)
			}
			return dbError(ctx, "failed to fetch conversation", err, "conversation-delete-fetch-error")
		}
		if err := tx.Where("conversation_id = ?", entity.ID).Delete(&entities.Message{}).Error; err != nil {
			return dbError(ctx, "failed to delete messages", err, "conversation-delete-messages-error")
		}
		if err := tx.Delete(&entities.Conversation{}, entity.ID).Error; err != nil {
			return dbError(ctx, "failed to delete conversation", err, "conversation-delete-error")
		}
		return nil
	})
}

// UpdateTitle overwrites the title.
func (r *Repository) UpdateTitle(ctx context.Context, conversationID uint, title string) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", conversationID).
		Update("title", title)
	if result.Error != nil {
		return dbError(ctx, "failed to update title", result.Error, "conversation-title-error")
	}
	if result.RowsAffected == 0 {
		return conversationNotFound(ctx, conversationID)
	}
	return nil
}

// SetTitleIfEmpty sets the title with a conditional update so concurrent callers
// cannot overwrite each other.
func (r *Repository) SetTitleIfEmpty(ctx context.Context, conversationID uint, title string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ? AND (title IS NULL OR title = '')", conversationID).
		Update("title", title)
	if result.Error != nil {
		return false, dbError(ctx, "failed to set title", result.Error, "conversation-title-if-empty-error")
	}
	return result.RowsAffected > 0, nil
}
