package dto

import (
	"time"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/search"
)

// SourcePayload is one numbered citation sent to clients.
type SourcePayload struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Engine  string `json:"engine"`
}

// SourcesEvent is the payload of the "sources" SSE event.
type SourcesEvent struct {
	Sources []SourcePayload `json:"sources"`
}

// DeltaEvent is the payload of the "delta" SSE event.
type DeltaEvent struct {
	Text string `json:"text"`
}

// DoneEvent is the payload of the "done" SSE event.
type DoneEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
	Persisted      bool   `json:"persisted"`
}

// ErrorEvent is the payload of the "error" SSE event.
type ErrorEvent struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// FromSources maps numbered sources to their wire form.
func FromSources(sources []search.Source) []SourcePayload {
	out := make([]SourcePayload, 0, len(sources))
	for _, s := range sources {
		out = append(out, SourcePayload{
			Index:   s.Index,
			Title:   s.Title,
			URL:     s.URL,
			Content: s.Content,
			Engine:  s.Engine,
		})
	}
	return out
}

// MessagePayload is a stored message.
type MessagePayload struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Sources   []SourcePayload `json:"sources,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// ConversationPayload is returned by the conversation endpoints.
type ConversationPayload struct {
	ID           string           `json:"id"`
	Object       string           `json:"object"`
	Title        *string          `json:"title"`
	MessageCount int64            `json:"message_count"`
	CreatedAt    int64            `json:"created_at"`
	UpdatedAt    int64            `json:"updated_at"`
	Messages     []MessagePayload `json:"messages,omitempty"`
}

// ConversationListResponse wraps a page of conversations.
type ConversationListResponse struct {
	Object string                `json:"object"`
	Data   []ConversationPayload `json:"data"`
}

// DeletedResponse confirms a deletion.
type DeletedResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// FromConversation maps the domain conversation to DTO.
func FromConversation(c *conversation.Conversation) ConversationPayload {
	object := c.Object
	if object == "" {
		object = "conversation"
	}
	payload := ConversationPayload{
		ID:           c.PublicID,
		Object:       object,
		Title:        c.Title,
		MessageCount: c.MessageCount,
		CreatedAt:    unix(c.CreatedAt),
		UpdatedAt:    unix(c.UpdatedAt),
	}
	for _, m := range c.Messages {
		payload.Messages = append(payload.Messages, MessagePayload{
			ID:        m.PublicID,
			Role:      string(m.Role),
			Content:   m.Content,
			Sources:   FromSources(m.Sources),
			CreatedAt: unix(m.CreatedAt),
		})
	}
	return payload
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
