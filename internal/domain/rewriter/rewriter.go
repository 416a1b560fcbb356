package rewriter

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/llm"
)

const (
	rewriterMaxTokens = 64
	defaultTimeout    = 8 * time.Second
	rewrittenLabel    = "rewritten query:"
)

const systemPrompt = `Rewrite the user's latest question into a standalone web search query.
Replace pronouns and vague references with the people, places or things they refer to in the conversation.
Keep only the keywords a search engine needs.
Return only the rewritten query with no explanation, quotes or labels.`

// Config selects the rewriter model profile.
type Config struct {
	Model   string
	Timeout time.Duration
}

// Rewriter turns a follow-up question into a standalone search query.
type Rewriter struct {
	provider llm.Provider
	profile  llm.Profile
	timeout  time.Duration
	log      zerolog.Logger
}

// New constructs a rewriter.
func New(provider llm.Provider, cfg Config, log zerolog.Logger) *Rewriter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Rewriter{
		provider: provider,
		profile:  llm.Profile{Model: cfg.Model, Temperature: 0, MaxTokens: rewriterMaxTokens},
		timeout:  cfg.Timeout,
		log:      log.With().Str("component", "rewriter").Logger(),
	}
}

// Rewrite returns the original query when there is no history or the model call fails.
func (r *Rewriter) Rewrite(ctx context.Context, query string, history []conversation.Turn) string {
	if len(history) == 0 {
		return query
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := llm.NewRequest(r.profile, []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: formatHistory(query, history)},
	})
	resp, err := r.provider.CreateChatCompletion(callCtx, req)
	if err != nil {
		r.log.Warn().Err(err).Msg("rewrite failed, keeping original query")
		return query
	}

	rewritten := Clean(resp.FirstContent())
	if rewritten == "" {
		return query
	}
	r.log.Debug().Str("original", query).Str("rewritten", rewritten).Msg("query rewritten")
	return rewritten
}

func formatHistory(query string, history []conversation.Turn) string {
	var sb strings.Builder
	sb.WriteString("Conversation:\n")
	for _, turn := range history {
		if turn.Role == conversation.RoleAssistant {
			sb.WriteString("Assistant: ")
		} else {
			sb.WriteString("User: ")
		}
		sb.WriteString(strings.TrimSpace(turn.Text))
		sb.WriteString("\n")
	}
	sb.WriteString("\nLatest question: ")
	sb.WriteString(query)
	return sb.String()
}

// Clean extracts the query from raw model output: reasoning blocks, a leading
// "Rewritten query:" label and surrounding quotes are removed, and only the first
// non-empty line is kept.
func Clean(output string) string {
	text := llm.StripReasoning(output)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= len(rewrittenLabel) && strings.EqualFold(line[:len(rewrittenLabel)], rewrittenLabel) {
			line = strings.TrimSpace(line[len(rewrittenLabel):])
		}
		line = strings.TrimSpace(strings.Trim(line, "\"'`“”"))
		if line != "" {
			return line
		}
	}
	return ""
}
