package llmprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/answer-api/internal/domain/llm"
)

func TestClient_CreateChatCompletion_ToolCalls(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","model":"jan-v1-4b",
			"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"",
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"web_search","arguments":"{\"query\":\"paris\"}"}}]}}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v1/", "")
	temperature := float32(0)
	resp, err := client.CreateChatCompletion(context.Background(), llm.ChatCompletionRequest{
		Model:       "jan-v1-4b",
		Messages:    []llm.ChatMessage{{Role: llm.RoleUser, Content: "capital of france"}},
		Temperature: &temperature,
		ToolChoice:  "auto",
		Tools: []llm.ToolDefinition{{
			Type:     "function",
			Function: llm.ToolFunctionSchema{Name: "web_search", Parameters: map[string]any{"type": "object"}},
		}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	calls := resp.Choices[0].Message.ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "web_search", calls[0].Function.Name)
	assert.JSONEq(t, `{"query":"paris"}`, string(calls[0].Function.Arguments))
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	assert.Equal(t, "auto", body["tool_choice"])
	assert.Contains(t, body, "temperature")
	assert.Len(t, body["tools"], 1)
}

func TestClient_CreateChatCompletionStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, token := range []string{"Paris", " is", " the capital [1]."} {
			fmt.Fprintf(w, "data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", token)
		}
		fmt.Fprint(w, "data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v1", "key")
	stream, err := client.CreateChatCompletionStream(context.Background(), llm.ChatCompletionRequest{
		Model:    "jan-v1-4b",
		Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	defer stream.Close()

	var text string
	var finish string
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		text += delta.Content
		if delta.FinishReason != "" {
			finish = delta.FinishReason
		}
	}
	assert.Equal(t, "Paris is the capital [1].", text)
	assert.Equal(t, "stop", finish)
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"model loading","type":"server_error"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v1", "")
	_, err := client.CreateChatCompletion(context.Background(), llm.ChatCompletionRequest{Model: "m"})
	assert.Error(t, err)

	_, err = client.CreateChatCompletionStream(context.Background(), llm.ChatCompletionRequest{Model: "m"})
	assert.Error(t, err)
}
