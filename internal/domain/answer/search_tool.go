package answer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/janhq/answer-api/internal/domain/llm"
	"github.com/janhq/answer-api/internal/domain/prompt"
	"github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/domain/tool"
)

// WebSearchToolName is the tool name exposed to the model.
const WebSearchToolName = "web_search"

const noResultsMessage = "No new results found for this query. Answer with the sources already listed."

var errNoSearchResults = errors.New("web search returned no results")

type webSearchArgs struct {
	Query string `json:"query" jsonschema:"description=Keywords describing the information to look up on the web"`
}

var webSearchParameters = reflectParameters(&webSearchArgs{})

func reflectParameters(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	schema := reflector.Reflect(v)
	schema.Version = ""

	data, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	params := map[string]any{}
	if err := json.Unmarshal(data, &params); err != nil {
		panic(err)
	}
	return params
}

// webSearchTool searches with a fixed, pre-rewritten query whatever arguments the model
// sends, and accumulates sources across calls with stable numbering.
type webSearchTool struct {
	searcher Searcher
	query    string
	limit    int
	sources  []search.Source
	byURL    map[string]int
}

func newWebSearchTool(searcher Searcher, query string, limit int) *webSearchTool {
	return &webSearchTool{
		searcher: searcher,
		query:    query,
		limit:    limit,
		byURL:    make(map[string]int),
	}
}

func (t *webSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.ToolFunctionSchema{
			Name:        WebSearchToolName,
			Description: "Search the web for current or factual information. Returns numbered sources to cite as [n].",
			Parameters:  webSearchParameters,
		},
	}
}

func (t *webSearchTool) Execute(ctx context.Context, _ tool.Call) (string, error) {
	results := t.searcher.Search(ctx, t.query, t.limit)
	if len(results) == 0 {
		// Without any source the turn falls back to a plain answer; once sources
		// exist a dry search must not discard them.
		if len(t.sources) == 0 {
			return "", errNoSearchResults
		}
		return noResultsMessage, nil
	}

	batch := make([]search.Source, 0, len(results))
	for _, r := range results {
		key := strings.ToLower(strings.TrimSpace(r.URL))
		if key == "" {
			key = "title:" + strings.ToLower(strings.TrimSpace(r.Title))
		}
		if idx, ok := t.byURL[key]; ok {
			batch = append(batch, t.sources[idx])
			continue
		}
		source := search.Source{Index: len(t.sources) + 1, Result: r}
		t.byURL[key] = len(t.sources)
		t.sources = append(t.sources, source)
		batch = append(batch, source)
	}
	return prompt.FormatSources(batch), nil
}

// Sources returns every distinct source gathered so far, in citation order.
func (t *webSearchTool) Sources() []search.Source {
	return append([]search.Source(nil), t.sources...)
}
