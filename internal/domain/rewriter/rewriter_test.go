package rewriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/llm"
)

type mockProvider struct {
	requests []llm.ChatCompletionRequest
	content  string
	err      error
}

func (m *mockProvider) CreateChatCompletion(_ context.Context, req llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatCompletionResponse{Choices: []llm.ChatCompletionChoice{{
		Message: llm.ChatMessage{Role: llm.RoleAssistant, Content: m.content},
	}}}, nil
}

func (m *mockProvider) CreateChatCompletionStream(context.Context, llm.ChatCompletionRequest) (llm.Stream, error) {
	return nil, errors.New("not used")
}

func TestRewrite_NoHistorySkipsModel(t *testing.T) {
	provider := &mockProvider{content: "unused"}
	r := New(provider, Config{Model: "small"}, zerolog.Nop())

	got := r.Rewrite(context.Background(), "capital of France", nil)

	assert.Equal(t, "capital of France", got)
	assert.Empty(t, provider.requests)
}

func TestRewrite_UsesFullHistory(t *testing.T) {
	provider := &mockProvider{content: "<think>she is Marie Curie</think>\nRewritten query: \"Marie Curie age at death\""}
	r := New(provider, Config{Model: "small"}, zerolog.Nop())
	long := strings.Repeat("radioactivity ", 40)
	history := []conversation.Turn{
		{Role: conversation.RoleUser, Text: "who is Marie Curie"},
		{Role: conversation.RoleAssistant, Text: long},
	}

	got := r.Rewrite(context.Background(), "how old was she when she died", history)

	assert.Equal(t, "Marie Curie age at death", got)
	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, "small", req.Model)
	assert.Equal(t, 64, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
	user := req.Messages[1].Content
	assert.Contains(t, user, "User: who is Marie Curie\n")
	assert.Contains(t, user, strings.TrimSpace(long))
	assert.True(t, strings.HasSuffix(user, "Latest question: how old was she when she died"))
}

func TestRewrite_FailureKeepsOriginal(t *testing.T) {
	history := []conversation.Turn{{Role: conversation.RoleUser, Text: "who is Ada Lovelace"}}

	r := New(&mockProvider{err: context.DeadlineExceeded}, Config{}, zerolog.Nop())
	assert.Equal(t, "when did she die", r.Rewrite(context.Background(), "when did she die", history))

	r = New(&mockProvider{content: "<think>hmm"}, Config{}, zerolog.Nop())
	assert.Equal(t, "when did she die", r.Rewrite(context.Background(), "when did she die", history))
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Eiffel Tower height", "Eiffel Tower height"},
		{"  'Eiffel Tower height'  ", "Eiffel Tower height"},
		{"REWRITTEN QUERY: eiffel tower", "eiffel tower"},
		{"\n\nfirst line\nsecond line", "first line"},
		{"<thinking>x</thinking>`go 1.25 release notes`", "go 1.25 release notes"},
		{"\"\"", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.in), tt.in)
	}
}
