package entities

import (
	"time"

	"github.com/janhq/answer-api/internal/domain/conversation"
)

// Conversation represents the database schema for conversations
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index:idx_conversation_updated_at"`

	PublicID string  `gorm:"type:varchar(64);uniqueIndex;not null"`
	Object   string  `gorm:"type:varchar(50);not null;default:'conversation'"`
	Title    *string `gorm:"type:varchar(256)"`

	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// NewSchemaConversation converts a domain conversation to its database entity.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	object := c.Object
	if object == "" {
		object = "conversation"
	}
	return &Conversation{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		PublicID:  c.PublicID,
		Object:    object,
		Title:     c.Title,
	}
}

// EtoD converts database entity to domain model
func (c *Conversation) EtoD() *conversation.Conversation {
	return &conversation.Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		Object:    c.Object,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ConversationWithCount is the row shape of the conversation list query.
type ConversationWithCount struct {
	Conversation
	MessageCount int64
}
