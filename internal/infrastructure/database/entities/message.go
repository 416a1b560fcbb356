package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/search"
)

// Message represents one stored chat message.
type Message struct {
	ID             uint           `gorm:"primaryKey"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index:idx_message_conversation_created,priority:2"`
	ConversationID uint           `gorm:"not null;index:idx_message_conversation_created,priority:1"`
	PublicID       string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	Role           string         `gorm:"type:varchar(20);not null"`
	Content        string         `gorm:"type:text;not null"`
	Sources        datatypes.JSON `gorm:"type:jsonb"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "conversation_messages"
}

// NewSchemaMessage converts a domain message to its database entity.
func NewSchemaMessage(m *conversation.Message) (*Message, error) {
	entity := &Message{
		ID:             m.ID,
		CreatedAt:      m.CreatedAt,
		ConversationID: m.ConversationID,
		PublicID:       m.PublicID,
		Role:           string(m.Role),
		Content:        m.Content,
	}
	if len(m.Sources) > 0 {
		data, err := json.Marshal(m.Sources)
		if err != nil {
			return nil, fmt.Errorf("marshal sources: %w", err)
		}
		entity.Sources = datatypes.JSON(data)
	}
	return entity, nil
}

// EtoD converts database entity to domain model. Unreadable sources are dropped.
func (m *Message) EtoD() conversation.Message {
	msg := conversation.Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		Role:           conversation.Role(m.Role),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if len(m.Sources) > 0 {
		var sources []search.Source
		if err := json.Unmarshal(m.Sources, &sources); err == nil {
			msg.Sources = sources
		}
	}
	return msg
}
