package llm

import (
	"regexp"
	"strings"
)

var (
	closedReasoningBlock = regexp.MustCompile(`(?is)<(?:think|thinking)>.*?</(?:think|thinking)>`)
	openReasoningBlock   = regexp.MustCompile(`(?is)<(?:think|thinking)>.*$`)
	reasoningBody        = regexp.MustCompile(`(?is)<(?:think|thinking)>(.*?)(?:</(?:think|thinking)>|$)`)
)

// StripReasoning removes <think>/<thinking> blocks, including an unterminated trailing one.
func StripReasoning(text string) string {
	text = closedReasoningBlock.ReplaceAllString(text, "")
	text = openReasoningBlock.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ReasoningContent returns the text inside reasoning blocks, joined by newlines.
func ReasoningContent(text string) string {
	matches := reasoningBody.FindAllStringSubmatch(text, -1)
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if body := strings.TrimSpace(m[1]); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, "\n")
}
