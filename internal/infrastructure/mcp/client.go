package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/janhq/answer-api/internal/infrastructure/metrics"
	"github.com/janhq/answer-api/internal/infrastructure/observability"
)

const rpcPath = "/v1/mcp"

// Content is one item of a tools/call result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallResult is the decoded tools/call result.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

// Text joins the text items of the result.
func (r *CallResult) Text() string {
	var sb strings.Builder
	for _, c := range r.Content {
		if c.Type != "text" || c.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// Client talks JSON-RPC 2.0 to an MCP tools server over HTTP.
type Client struct {
	httpClient *resty.Client
	nextID     atomic.Int64
}

// NewClient constructs the MCP client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json, text/event-stream").
		SetRetryCount(0)
	if timeout > 0 {
		httpClient.SetTimeout(timeout)
	}
	return &Client{httpClient: httpClient}
}

// CallTool triggers a tool execution via JSON-RPC tools/call.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
		"id": c.nextID.Add(1),
	}

	var rpcResp rpcResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&rpcResp).
		Post(rpcPath)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mcp call error (status %d): %s", resp.StatusCode(), resp.String())
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	var result CallResult
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode mcp result: %w", err)
	}
	return &result, nil
}

// SearchTool exposes an MCP search tool as the gateway's primary search path.
type SearchTool struct {
	client   *Client
	toolName string
}

// NewSearchTool binds toolName (e.g. google_search) on client.
func NewSearchTool(client *Client, toolName string) *SearchTool {
	return &SearchTool{client: client, toolName: toolName}
}

// SearchRaw returns the tool's text payload for normalization.
func (s *SearchTool) SearchRaw(ctx context.Context, query string, limit int) (any, error) {
	ctx, span := observability.StartSearchSpan(ctx, "primary", query, limit)
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer func() {
		metrics.RecordSearch("primary", status, time.Since(startTime).Seconds())
	}()

	args := map[string]any{"q": query}
	if limit > 0 {
		args["num"] = limit
	}
	result, err := s.client.CallTool(ctx, s.toolName, args)
	if err != nil {
		status = "error"
		observability.RecordError(span, err, status)
		return nil, err
	}
	text := result.Text()
	if result.IsError {
		status = "error"
		err := fmt.Errorf("mcp tool %s failed: %s", s.toolName, text)
		observability.RecordError(span, err, status)
		return nil, err
	}
	if text == "" {
		status = "empty"
	}
	return text, nil
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      any             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r *rpcError) Error() string {
	return fmt.Sprintf("mcp error (%d): %s", r.Code, r.Message)
}
