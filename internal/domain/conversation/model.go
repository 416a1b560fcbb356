package conversation

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/janhq/answer-api/internal/domain/search"
)

const (
	// MaxTitleLength is the rune length a derived title is cut to before the ellipsis.
	MaxTitleLength = 50

	conversationIDPrefix = "conv_"
	messageIDPrefix      = "msg_"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is the only message shape the answer pipeline sees; wire formats are adapted
// into it at the HTTP boundary.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Conversation is an ordered chat thread.
type Conversation struct {
	ID           uint      `json:"-"`
	PublicID     string    `json:"id"`
	Object       string    `json:"object"`
	Title        *string   `json:"title,omitempty"`
	MessageCount int64     `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Messages     []Message `json:"messages,omitempty"`
}

// Message belongs to exactly one conversation. Only assistant messages carry sources.
type Message struct {
	ID             uint            `json:"-"`
	PublicID       string          `json:"id"`
	ConversationID uint            `json:"-"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Sources        []search.Source `json:"sources,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Turns converts stored messages to pipeline turns.
func Turns(messages []Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, Turn{Role: m.Role, Text: m.Content})
	}
	return turns
}

// NewConversationID returns a fresh public conversation id.
func NewConversationID() string {
	return conversationIDPrefix + uuid.NewString()
}

// NewMessageID returns a fresh public message id.
func NewMessageID() string {
	return messageIDPrefix + uuid.NewString()
}

// TitleFromText derives a display title from the first user message.
func TitleFromText(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:MaxTitleLength])) + "..."
}
