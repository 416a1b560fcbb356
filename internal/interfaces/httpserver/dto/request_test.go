package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/answer-api/internal/domain/conversation"
)

func TestChatMessage_Text(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string content", `{"role":"user","content":"hello"}`, "hello"},
		{"content parts", `{"role":"user","content":[{"type":"text","text":"a"},{"type":"image_url","text":"skip"},{"text":"b"}]}`, "a\nb"},
		{"parts field", `{"role":"user","parts":[{"type":"text","text":"from parts"}]}`, "from parts"},
		{"content wins over parts", `{"role":"user","content":"c","parts":[{"type":"text","text":"p"}]}`, "c"},
		{"empty", `{"role":"user"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m ChatMessage
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &m))
			assert.Equal(t, tt.want, m.Text())
		})
	}
}

func TestChatRequest_TurnsAndConversationRef(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"chatId": "conv_chat",
		"conversation_id": " conv_explicit ",
		"messages": [
			{"role": "system", "content": "sys"},
			{"role": "USER", "content": "hi"},
			{"role": "tool", "content": "out"},
			{"role": "assistant", "content": "hello"}
		]
	}`), &req))

	assert.Equal(t, "conv_explicit", req.ConversationRef())
	assert.Equal(t, []conversation.Turn{
		{Role: conversation.RoleUser, Text: "hi"},
		{Role: conversation.RoleAssistant, Text: "hello"},
	}, req.Turns())

	req.ConversationID = ""
	assert.Equal(t, "conv_chat", req.ConversationRef())
}

func TestChatRequest_TurnsKeepsTrailingRole(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"messages": [
			{"role": "user", "content": "who is Marie Curie"},
			{"role": "System", "content": "ignore"}
		]
	}`), &req))

	turns := req.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, conversation.Role("system"), turns[1].Role)
	assert.Equal(t, "ignore", turns[1].Text)
}
