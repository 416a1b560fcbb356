package conversation

import (
	"context"
	"time"

	"gorm.io/gorm"

	domain "github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/infrastructure/database/entities"
)

// MessageRepository persists conversation messages.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs the message repository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message and bumps the owning conversation's updated_at.
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	entity, err := entities.NewSchemaMessage(message)
	if err != nil {
		return dbError(ctx, "failed to encode message", err, "message-encode-error")
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return err
		}
		return tx.Model(&entities.Conversation{}).
			Where("id = ?", entity.ConversationID).
			UpdateColumn("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return dbError(ctx, "failed to create message", err, "message-create-error")
	}

	message.ID = entity.ID
	message.CreatedAt = entity.CreatedAt
	return nil
}

// ListByConversationID returns messages in creation order.
func (r *MessageRepository) ListByConversationID(ctx context.Context, conversationID uint) ([]domain.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, dbError(ctx, "failed to list messages", err, "message-list-error")
	}

	messages := make([]domain.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, rows[i].EtoD())
	}
	return messages, nil
}

// CountByConversationID returns the number of stored messages.
func (r *MessageRepository) CountByConversationID(ctx context.Context, conversationID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error; err != nil {
		return 0, dbError(ctx, "failed to count messages", err, "message-count-error")
	}
	return count, nil
}
