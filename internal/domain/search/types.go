package search

import (
	"context"
	"time"
)

const (
	// DefaultLimit is used when callers pass a non-positive limit.
	DefaultLimit = 5
	// DefaultCacheTTL bounds how long a query's results are reused.
	DefaultCacheTTL = 5 * time.Minute
	// UntitledPlaceholder replaces missing titles.
	UntitledPlaceholder = "Untitled"
)

// Result is one canonical web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Engine  string `json:"engine"`
}

// Source is a Result with its 1-based citation index inside one answer.
type Source struct {
	Index int `json:"index"`
	Result
}

// PrimaryClient is the preferred acquisition path. It returns the backend's raw payload,
// which is normalized by the gateway.
type PrimaryClient interface {
	SearchRaw(ctx context.Context, query string, limit int) (any, error)
}

// DirectClient queries the search backend's native JSON API.
type DirectClient interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Cache stores search results per key with an expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]Result, bool, error)
	Set(ctx context.Context, key string, results []Result, ttl time.Duration) error
}

// Number assigns stable 1-based citation indices in slice order.
func Number(results []Result) []Source {
	sources := make([]Source, 0, len(results))
	for i, r := range results {
		sources = append(sources, Source{Index: i + 1, Result: r})
	}
	return sources
}

// Results strips citation indices.
func Results(sources []Source) []Result {
	results := make([]Result, 0, len(sources))
	for _, s := range sources {
		results = append(results, s.Result)
	}
	return results
}
