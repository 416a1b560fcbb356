package prompt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/llm"
	"github.com/janhq/answer-api/internal/domain/search"
)

func TestBuild_WithSources(t *testing.T) {
	sources := search.Number([]search.Result{
		{Title: "France", URL: "https://en.wikipedia.org/wiki/France", Content: "Paris is the capital..."},
		{Title: "Paris", URL: "https://example.com/paris"},
	})

	messages := Build(Params{Question: "What is the capital of France?", Sources: sources})

	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "[1]")
	assert.Equal(t, llm.RoleUser, messages[1].Role)
	assert.Equal(t,
		"Sources:\n[1] France\nURL: https://en.wikipedia.org/wiki/France\nParis is the capital...\n\n[2] Paris\nURL: https://example.com/paris\n\nQuestion: What is the capital of France?",
		messages[1].Content)
}

func TestBuild_WithoutSources(t *testing.T) {
	history := []conversation.Turn{
		{Role: conversation.RoleUser, Text: "hi"},
		{Role: conversation.RoleAssistant, Text: "Hello!"},
	}

	messages := Build(Params{History: history, Question: "how are you"})

	require.Len(t, messages, 4)
	assert.Equal(t, directSystemPrompt, messages[0].Content)
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleUser, Content: "hi"}, messages[1])
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleAssistant, Content: "Hello!"}, messages[2])
	assert.Equal(t, "how are you", messages[3].Content)
}

func TestWindow(t *testing.T) {
	var history []conversation.Turn
	for i := 0; i < 10; i++ {
		history = append(history, conversation.Turn{Role: conversation.RoleUser, Text: fmt.Sprint(i)})
	}

	got := Window(history, 0)
	require.Len(t, got, DefaultWindow)
	assert.Equal(t, "4", got[0].Text)
	assert.Equal(t, "9", got[5].Text)

	assert.Len(t, Window(history[:3], 6), 3)
	assert.Len(t, Window(history, 2), 2)
}

func TestFormatSources_PreservesIndices(t *testing.T) {
	sources := []search.Source{
		{Index: 3, Result: search.Result{Title: "C", URL: "u3"}},
		{Index: 1, Result: search.Result{Title: "A", URL: "u1", Content: " body "}},
	}

	assert.Equal(t, "[3] C\nURL: u3\n\n[1] A\nURL: u1\nbody", FormatSources(sources))
	assert.Equal(t, "q", AugmentQuestion("q", nil))
}
