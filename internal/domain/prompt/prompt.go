package prompt

import (
	"fmt"
	"strings"

	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/llm"
	"github.com/janhq/answer-api/internal/domain/search"
)

// DefaultWindow is the number of prior turns kept in the answer prompt.
const DefaultWindow = 6

const sourcesSystemPrompt = `You are Jan, a helpful research assistant. Answer the user's question using the numbered web sources provided with it.

Rules:
- Cite every fact taken from a source with its number in square brackets, for example [1] or [2][3].
- Synthesize the sources into one clear answer instead of listing them one by one.
- Only cite numbers that appear in the provided sources.
- If the sources do not contain the answer, say so plainly and then answer from general knowledge if you can.
- Do not mention that you searched the web.`

const directSystemPrompt = `You are Jan, a helpful assistant. Answer the user's question directly and concisely from your own knowledge.
If you are unsure or the answer may have changed recently, say so.`

const toolSystemPrompt = `You are Jan, a helpful research assistant with access to a web_search tool.

Rules:
- You must call web_search for factual questions, current events, prices, people, places and anything that may have changed recently.
- You may answer without searching for greetings, small talk, arithmetic and questions about yourself.
- When you use search results, cite them with their number in square brackets, for example [1].
- Never mention whether or not you used the search tool.`

// SystemPrompt returns the answer instruction for a turn with or without sources.
func SystemPrompt(hasSources bool) string {
	if hasSources {
		return sourcesSystemPrompt
	}
	return directSystemPrompt
}

// ToolSystemPrompt returns the instruction used while the model may call tools.
func ToolSystemPrompt() string {
	return toolSystemPrompt
}

// Window returns the last size turns of history.
func Window(history []conversation.Turn, size int) []conversation.Turn {
	if size <= 0 {
		size = DefaultWindow
	}
	if len(history) <= size {
		return history
	}
	return history[len(history)-size:]
}

// FormatSources renders numbered source blocks as "[n] title\nURL: url\ncontent".
func FormatSources(sources []search.Source) string {
	blocks := make([]string, 0, len(sources))
	for _, s := range sources {
		block := fmt.Sprintf("[%d] %s\nURL: %s", s.Index, s.Title, s.URL)
		if content := strings.TrimSpace(s.Content); content != "" {
			block += "\n" + content
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

// AugmentQuestion prepends the source list to the user's question.
func AugmentQuestion(question string, sources []search.Source) string {
	if len(sources) == 0 {
		return question
	}
	return "Sources:\n" + FormatSources(sources) + "\n\nQuestion: " + question
}

// Params describes one answer prompt.
type Params struct {
	History  []conversation.Turn
	Question string
	Sources  []search.Source
	Window   int
}

// Build assembles the system instruction, windowed history and final user turn.
func Build(p Params) []llm.ChatMessage {
	history := Window(p.History, p.Window)
	messages := make([]llm.ChatMessage, 0, len(history)+2)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: SystemPrompt(len(p.Sources) > 0)})
	messages = append(messages, Messages(history)...)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: AugmentQuestion(p.Question, p.Sources)})
	return messages
}

// Messages converts turns into chat messages.
func Messages(turns []conversation.Turn) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(turns))
	for _, turn := range turns {
		role := llm.RoleUser
		if turn.Role == conversation.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.ChatMessage{Role: role, Content: turn.Text})
	}
	return out
}
