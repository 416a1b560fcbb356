package dto

import (
	"encoding/json"
	"strings"

	"github.com/janhq/answer-api/internal/domain/conversation"
)

// ContentPart is one element of a structured message body.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatMessage accepts the wire shapes clients send: content as a string, content as an
// array of parts, or a separate parts array.
type ChatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
	Parts   []ContentPart   `json:"parts,omitempty"`
}

// ChatRequest models POST /v1/chat input.
type ChatRequest struct {
	Messages       []ChatMessage `json:"messages" binding:"required"`
	ChatID         string        `json:"chatId,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Mode           string        `json:"mode,omitempty"`
}

// UpdateConversationRequest models PATCH /v1/conversations/:id input.
type UpdateConversationRequest struct {
	Title string `json:"title" binding:"required"`
}

// ConversationRef returns the conversation id from either accepted field.
func (r ChatRequest) ConversationRef() string {
	if id := strings.TrimSpace(r.ConversationID); id != "" {
		return id
	}
	return strings.TrimSpace(r.ChatID)
}

// Turns adapts wire messages to pipeline turns. Messages whose role is neither user
// nor assistant are dropped, except the last one, which keeps its role so a request
// not ending with a user message fails validation.
func (r ChatRequest) Turns() []conversation.Turn {
	turns := make([]conversation.Turn, 0, len(r.Messages))
	last := len(r.Messages) - 1
	for i, m := range r.Messages {
		role := conversation.Role(strings.ToLower(strings.TrimSpace(m.Role)))
		if role != conversation.RoleUser && role != conversation.RoleAssistant && i != last {
			continue
		}
		turns = append(turns, conversation.Turn{Role: role, Text: m.Text()})
	}
	return turns
}

// Text flattens the message body into plain text.
func (m ChatMessage) Text() string {
	if text := contentText(m.Content); text != "" {
		return text
	}
	return joinParts(m.Parts)
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		return joinParts(parts)
	}
	return ""
}

func joinParts(parts []ContentPart) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Type != "" && p.Type != "text" {
			continue
		}
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
