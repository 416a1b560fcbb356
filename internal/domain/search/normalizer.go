package search

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
)

var noResultSentinels = map[string]struct{}{
	"no results":                  {},
	"no results found":            {},
	"no good search result found": {},
}

// Normalize converts a loosely structured search payload into canonical results.
//
// The payload may be a JSON string or bytes, or an already decoded value. Accepted
// shapes, in order: an array of result objects, an object carrying a "results" (or
// "organic") array, or a single result object. Comma-joined objects without an
// enclosing array are tolerated. The second return value is false when nothing
// usable was extracted; Normalize never panics on malformed input.
func Normalize(payload any, limit int, defaultEngine string) ([]Result, bool) {
	var decoded any
	switch v := payload.(type) {
	case nil:
		return nil, false
	case string:
		d, ok := decodeText(v)
		if !ok {
			return nil, false
		}
		decoded = d
	case []byte:
		d, ok := decodeText(string(v))
		if !ok {
			return nil, false
		}
		decoded = d
	case json.RawMessage:
		d, ok := decodeText(string(v))
		if !ok {
			return nil, false
		}
		decoded = d
	case map[string]any, []any:
		decoded = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		d, ok := decodeText(string(raw))
		if !ok {
			return nil, false
		}
		decoded = d
	}

	objects := extractObjects(decoded)
	results := make([]Result, 0, len(objects))
	for _, obj := range objects {
		results = append(results, toResult(obj, defaultEngine))
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	if len(results) == 0 {
		return nil, false
	}
	return results, true
}

func decodeText(text string) (any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || isNoResultSentinel(trimmed) {
		return nil, false
	}

	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		return decoded, true
	}
	if strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	if err := json.Unmarshal([]byte("["+trimmed+"]"), &decoded); err != nil {
		return nil, false
	}
	return decoded, true
}

func isNoResultSentinel(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimRight(normalized, ".!:; ")
	_, ok := noResultSentinels[normalized]
	return ok
}

func extractObjects(decoded any) []map[string]any {
	switch v := decoded.(type) {
	case []any:
		return resultObjects(v)
	case map[string]any:
		for _, key := range []string{"results", "organic"} {
			if items, ok := v[key].([]any); ok {
				return resultObjects(items)
			}
		}
		if hasAnyString(v, "title", "url", "link", "source_url") {
			return []map[string]any{v}
		}
	}
	return nil
}

func resultObjects(items []any) []map[string]any {
	objects := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if !hasAnyString(obj, "title", "url", "link", "source_url", "snippet", "content", "description") {
			continue
		}
		objects = append(objects, obj)
	}
	return objects
}

func toResult(obj map[string]any, defaultEngine string) Result {
	title := flattenMarkup(firstString(obj, "title"))
	if title == "" {
		title = UntitledPlaceholder
	}
	engine := firstString(obj, "engine")
	if engine == "" {
		engine = defaultEngine
	}
	return Result{
		Title:   title,
		URL:     firstString(obj, "link", "url", "source_url"),
		Content: flattenMarkup(firstString(obj, "snippet", "content", "description")),
		Engine:  engine,
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func hasAnyString(obj map[string]any, keys ...string) bool {
	return firstString(obj, keys...) != ""
}

// flattenMarkup reduces an HTML fragment to its visible text.
func flattenMarkup(text string) string {
	if !strings.ContainsRune(text, '<') {
		return text
	}

	tokenizer := html.NewTokenizer(strings.NewReader(text))
	var sb strings.Builder
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			sb.Write(tokenizer.Text())
			sb.WriteByte(' ')
		}
	}
}
