package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/llm"
)

const (
	historyMessages      = 4
	historyMessageLength = 200
	classifierMaxTokens  = 100
	defaultTimeout       = 8 * time.Second
)

// Stage names which part of the classifier produced a result.
const (
	StageHeuristic = "heuristic"
	StageModel     = "model"
	StageFallback  = "fallback"
)

// Result is the classification outcome. Query is the original text or a
// context-resolved rewrite.
type Result struct {
	Decision Decision `json:"decision"`
	Query    string   `json:"query"`
	Stage    string   `json:"stage"`
}

// NeedsSearch reports whether retrieval should run.
func (r Result) NeedsSearch() bool {
	return r.Decision != NoSearch
}

// Config selects the classifier model profile.
type Config struct {
	Model   string
	Timeout time.Duration
}

// Classifier decides whether a query needs web search: a pattern stage first, and a
// short model call only for ambiguous queries or follow-ups that need rewriting.
type Classifier struct {
	provider llm.Provider
	profile  llm.Profile
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// New constructs a classifier.
func New(provider llm.Provider, cfg Config, log zerolog.Logger) *Classifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Classifier{
		provider: provider,
		profile: llm.Profile{
			Model:       cfg.Model,
			Temperature: 0,
			MaxTokens:   classifierMaxTokens,
		},
		timeout: cfg.Timeout,
		now:     time.Now,
		log:     log.With().Str("component", "classifier").Logger(),
	}
}

// Classify never fails: model errors and unparseable output resolve to a search
// with the original query.
func (c *Classifier) Classify(ctx context.Context, query string, history []conversation.Turn) Result {
	decision, pattern := Heuristic(query)
	switch {
	case decision == NoSearch:
		c.log.Debug().Str("pattern", pattern).Msg("heuristic: no search")
		return Result{Decision: NoSearch, Query: query, Stage: StageHeuristic}
	case decision == Search && len(history) == 0:
		c.log.Debug().Str("pattern", pattern).Msg("heuristic: search")
		return Result{Decision: Search, Query: query, Stage: StageHeuristic}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := llm.NewRequest(c.profile, []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: c.systemPrompt()},
		{Role: llm.RoleUser, Content: buildContext(query, history)},
	})
	resp, err := c.provider.CreateChatCompletion(callCtx, req)
	if err != nil {
		c.log.Warn().Err(err).Msg("classifier model failed, defaulting to search")
		return Result{Decision: Search, Query: query, Stage: StageFallback}
	}

	result := ParseModelOutput(resp.FirstContent(), query)
	c.log.Debug().Str("decision", string(result.Decision)).Str("query", result.Query).Msg("model classification")
	return result
}

func (c *Classifier) systemPrompt() string {
	return fmt.Sprintf(`You decide whether a chat message needs a live web search. The current year is %d.

Reply with exactly one line:
SEARCH: <standalone search query>
or
NO_SEARCH

Use NO_SEARCH for greetings, small talk, thanks, arithmetic, rewriting or explaining text already in the conversation, and questions about yourself.
Use SEARCH for facts about people, places, organisations, events, prices, news, or anything that may have changed recently.

When writing the search query:
- Replace pronouns and vague references with the names they refer to in the conversation.
- If the user asks for the latest, current, or recent news, append %d.
- Drop filler words and keep only keywords.`, c.now().Year(), c.now().Year())
}

func buildContext(query string, history []conversation.Turn) string {
	if len(history) > historyMessages {
		history = history[len(history)-historyMessages:]
	}
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Conversation:\n")
		for _, turn := range history {
			sb.WriteString(roleLabel(turn.Role))
			sb.WriteString(": ")
			sb.WriteString(truncate(turn.Text, historyMessageLength))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Current question: ")
	sb.WriteString(query)
	return sb.String()
}

// ParseModelOutput reads a SEARCH:/NO_SEARCH answer, looking inside reasoning blocks
// when nothing remains outside them.
func ParseModelOutput(output, original string) Result {
	text := llm.StripReasoning(output)
	if text == "" {
		text = llm.ReasoningContent(output)
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*`"))
		if len(line) < len("SEARCH:") || !strings.EqualFold(line[:len("SEARCH:")], "SEARCH:") {
			continue
		}
		rewritten := strings.Trim(strings.TrimSpace(line[len("SEARCH:"):]), `"'`)
		if rewritten == "" {
			rewritten = original
		}
		return Result{Decision: Search, Query: rewritten, Stage: StageModel}
	}

	if strings.Contains(strings.ToUpper(text), "NO_SEARCH") {
		return Result{Decision: NoSearch, Query: original, Stage: StageModel}
	}
	return Result{Decision: Search, Query: original, Stage: StageFallback}
}

func roleLabel(role conversation.Role) string {
	if role == conversation.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

func truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
