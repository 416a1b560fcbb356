package llmprovider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/janhq/answer-api/internal/domain/llm"
)

// Client implements llm.Provider against an OpenAI compatible endpoint.
type Client struct {
	client *openai.Client
}

// NewClient creates a go-openai backed client. Local backends accept any key.
func NewClient(baseURL, apiKey string) *Client {
	if apiKey == "" {
		apiKey = "not-needed"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &Client{client: openai.NewClientWithConfig(cfg)}
}

// CreateChatCompletion performs a non-streaming completion, tool calls included.
func (c *Client) CreateChatCompletion(ctx context.Context, req llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, toOpenAIRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	out := &llm.ChatCompletionResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: make([]llm.ChatCompletionChoice, 0, len(resp.Choices)),
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, choice := range resp.Choices {
		out.Choices = append(out.Choices, llm.ChatCompletionChoice{
			Index:        choice.Index,
			Message:      fromOpenAIMessage(choice.Message),
			FinishReason: string(choice.FinishReason),
		})
	}
	return out, nil
}

// CreateChatCompletionStream opens a streaming completion.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req llm.ChatCompletionRequest) (llm.Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, toOpenAIRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	return &chatStream{stream: stream}, nil
}

type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (*llm.ChatCompletionDelta, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("stream error: %w", err)
	}
	delta := &llm.ChatCompletionDelta{}
	if len(resp.Choices) > 0 {
		delta.Content = resp.Choices[0].Delta.Content
		delta.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return delta, nil
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}

func toOpenAIRequest(req llm.ChatCompletionRequest, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
		// go-openai drops a zero temperature from the payload
		if out.Temperature == 0 {
			out.Temperature = math.SmallestNonzeroFloat32
		}
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, toOpenAIMessage(msg))
	}
	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}
	if req.ToolChoice != "" && len(out.Tools) > 0 {
		out.ToolChoice = req.ToolChoice
	}
	return out
}

func toOpenAIMessage(msg llm.ChatMessage) openai.ChatCompletionMessage {
	out := openai.ChatCompletionMessage{
		Role:       msg.Role,
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Function.Name,
				Arguments: string(call.Function.Arguments),
			},
		})
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) llm.ChatMessage {
	out := llm.ChatMessage{
		Role:       msg.Role,
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:   call.ID,
			Type: string(call.Type),
			Function: llm.ToolFunction{
				Name:      call.Function.Name,
				Arguments: []byte(call.Function.Arguments),
			},
		})
	}
	return out
}
