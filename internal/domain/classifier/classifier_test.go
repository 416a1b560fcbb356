package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/llm"
)

type mockProvider struct {
	calls    int
	requests []llm.ChatCompletionRequest
	reply    func(req llm.ChatCompletionRequest) (string, error)
}

func (m *mockProvider) CreateChatCompletion(_ context.Context, req llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	m.calls++
	m.requests = append(m.requests, req)
	text, err := m.reply(req)
	if err != nil {
		return nil, err
	}
	return &llm.ChatCompletionResponse{Choices: []llm.ChatCompletionChoice{{
		Message: llm.ChatMessage{Role: llm.RoleAssistant, Content: text},
	}}}, nil
}

func (m *mockProvider) CreateChatCompletionStream(context.Context, llm.ChatCompletionRequest) (llm.Stream, error) {
	return nil, errors.New("not used")
}

func failingProvider(t *testing.T) *mockProvider {
	return &mockProvider{reply: func(llm.ChatCompletionRequest) (string, error) {
		t.Fatal("model stage must not run")
		return "", nil
	}}
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		query string
		want  Decision
	}{
		{"hi", NoSearch},
		{"hello", NoSearch},
		{"Hey there!", NoSearch},
		{"thanks!", NoSearch},
		{"Thank you so much", NoSearch},
		{"bye", NoSearch},
		{"ok", NoSearch},
		{"who are you?", NoSearch},
		{"What can you do", NoSearch},
		{"5 + 3", NoSearch},
		{"what is 12 * (4 - 1)?", NoSearch},

		{"who is the president of France", Search},
		{"What is the capital of France?", Search},
		{"latest iPhone release", Search},
		{"bitcoin price", Search},
		{"weather in tokyo tomorrow", Search},
		{"when was marie curie born", Search},
		{"how to install go on ubuntu", Search},
		{"best laptops for students", Search},
		{"olympics 2024 medal table", Search},
		{"population of brazil", Search},
		{"tell me about the Eiffel Tower", Search},

		{"tell me more", Ambiguous},
		{"explain that again", Ambiguous},
		{"I think so", Ambiguous},
		{"", Ambiguous},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, _ := Heuristic(tt.query)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_HeuristicShortCircuits(t *testing.T) {
	c := New(failingProvider(t), Config{Model: "small"}, zerolog.Nop())

	for _, q := range []string{"hello", "thanks!", "5 + 3"} {
		res := c.Classify(context.Background(), q, nil)
		assert.Equal(t, NoSearch, res.Decision, q)
		assert.Equal(t, StageHeuristic, res.Stage)
	}

	history := []conversation.Turn{{Role: conversation.RoleUser, Text: "earlier"}}
	assert.Equal(t, NoSearch, c.Classify(context.Background(), "hi", history).Decision)

	res := c.Classify(context.Background(), "who is the president of France", nil)
	assert.Equal(t, Result{Decision: Search, Query: "who is the president of France", Stage: StageHeuristic}, res)
}

func TestClassify_ModelStageResolvesPronouns(t *testing.T) {
	provider := &mockProvider{reply: func(req llm.ChatCompletionRequest) (string, error) {
		user := req.Messages[1].Content
		if strings.Contains(user, "Marie Curie") {
			return "SEARCH: Marie Curie age at death", nil
		}
		return "SEARCH:", nil
	}}
	c := New(provider, Config{Model: "small", Timeout: time.Second}, zerolog.Nop())
	history := []conversation.Turn{
		{Role: conversation.RoleUser, Text: "who is Marie Curie"},
		{Role: conversation.RoleAssistant, Text: "Marie Curie was a physicist and chemist."},
	}

	res := c.Classify(context.Background(), "how old was she when she died", history)

	assert.Equal(t, Search, res.Decision)
	assert.Contains(t, res.Query, "Marie Curie")
	assert.Equal(t, StageModel, res.Stage)
	require.Equal(t, 1, provider.calls)

	req := provider.requests[0]
	assert.Equal(t, "small", req.Model)
	assert.Equal(t, 100, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
	assert.Empty(t, req.Tools)
	assert.Contains(t, req.Messages[1].Content, "User: who is Marie Curie\nAssistant: Marie Curie was a physicist and chemist.\n")
	assert.True(t, strings.HasSuffix(req.Messages[1].Content, "Current question: how old was she when she died"))
}

func TestClassify_ModelContextIsBounded(t *testing.T) {
	provider := &mockProvider{reply: func(llm.ChatCompletionRequest) (string, error) { return "NO_SEARCH", nil }}
	c := New(provider, Config{}, zerolog.Nop())
	history := []conversation.Turn{
		{Role: conversation.RoleUser, Text: "first"},
		{Role: conversation.RoleAssistant, Text: "second"},
		{Role: conversation.RoleUser, Text: "third"},
		{Role: conversation.RoleAssistant, Text: strings.Repeat("x", 500)},
		{Role: conversation.RoleUser, Text: "fifth"},
		{Role: conversation.RoleAssistant, Text: "sixth"},
	}

	res := c.Classify(context.Background(), "tell me more", history)

	assert.Equal(t, NoSearch, res.Decision)
	content := provider.requests[0].Messages[1].Content
	assert.NotContains(t, content, "first")
	assert.NotContains(t, content, "second")
	assert.Contains(t, content, "User: third")
	assert.Contains(t, content, "Assistant: "+strings.Repeat("x", 200)+"\n")
	assert.NotContains(t, content, strings.Repeat("x", 201))
}

func TestClassify_ModelErrorDefaultsToSearch(t *testing.T) {
	provider := &mockProvider{reply: func(llm.ChatCompletionRequest) (string, error) {
		return "", context.DeadlineExceeded
	}}
	c := New(provider, Config{}, zerolog.Nop())

	res := c.Classify(context.Background(), "tell me more", nil)

	assert.Equal(t, Result{Decision: Search, Query: "tell me more", Stage: StageFallback}, res)
}

func TestClassify_SystemPromptCarriesYear(t *testing.T) {
	provider := &mockProvider{reply: func(llm.ChatCompletionRequest) (string, error) { return "NO_SEARCH", nil }}
	c := New(provider, Config{}, zerolog.Nop())
	c.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	c.Classify(context.Background(), "tell me more", nil)

	assert.Contains(t, provider.requests[0].Messages[0].Content, "2026")
}

func TestParseModelOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   Result
	}{
		{"search line", "SEARCH: eiffel tower height", Result{Search, "eiffel tower height", StageModel}},
		{"lowercase", "search: paris weather", Result{Search, "paris weather", StageModel}},
		{"empty rewrite", "SEARCH:", Result{Search, "orig", StageModel}},
		{"no search", "NO_SEARCH", Result{NoSearch, "orig", StageModel}},
		{"no search in prose", "I think this is NO_SEARCH territory.", Result{NoSearch, "orig", StageModel}},
		{"after reasoning", "<think>pronoun refers to Curie</think>\nSEARCH: Marie Curie death", Result{Search, "Marie Curie death", StageModel}},
		{"inside reasoning only", "<think>SEARCH: Marie Curie death</think>", Result{Search, "Marie Curie death", StageModel}},
		{"unterminated reasoning", "<think>maybe NO_SEARCH", Result{NoSearch, "orig", StageModel}},
		{"quoted", `SEARCH: "go generics tutorial"`, Result{Search, "go generics tutorial", StageModel}},
		{"garbage", "I am not sure", Result{Search, "orig", StageFallback}},
		{"empty", "", Result{Search, "orig", StageFallback}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseModelOutput(tt.output, "orig"))
		})
	}
}
