package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	domainsearch "github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/infrastructure/metrics"
	"github.com/janhq/answer-api/internal/infrastructure/observability"
)

const (
	searxngSearchPath = "/search"
	searxngEngine     = "searxng"
)

// SearxngConfig configures the direct SearXNG client.
type SearxngConfig struct {
	BaseURL string
	Timeout time.Duration
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// SearxngClient queries the SearXNG JSON API directly.
type SearxngClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

type searxngResponse struct {
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Engine  string `json:"engine"`
}

// NewSearxngClient builds the client and its circuit breaker.
func NewSearxngClient(cfg SearxngConfig) *SearxngClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("User-Agent", "Jan-Answer-API/1.0").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    searxngEngine,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("service", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &SearxngClient{http: httpClient, breaker: breaker}
}

// Search runs one query against /search and maps the backend-native result list.
func (c *SearxngClient) Search(ctx context.Context, query string, limit int) ([]domainsearch.Result, error) {
	ctx, span := observability.StartSearchSpan(ctx, "direct", query, limit)
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer func() {
		metrics.RecordSearch("direct", status, time.Since(startTime).Seconds())
	}()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var result searxngResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("q", query).
			SetQueryParam("format", "json").
			SetQueryParam("categories", "general").
			SetResult(&result).
			Get(searxngSearchPath)
		if err != nil {
			return nil, fmt.Errorf("query searxng: %w", err)
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("searxng error (status %d)", resp.StatusCode())
		}
		return &result, nil
	})
	if err != nil {
		status = "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = "circuit_open"
		}
		observability.RecordError(span, err, status)
		log.Warn().Err(err).Str("service", searxngEngine).Msg("searxng search failed")
		return nil, err
	}

	raw := out.(*searxngResponse)
	results := make([]domainsearch.Result, 0, len(raw.Results))
	for _, item := range raw.Results {
		if limit > 0 && len(results) >= limit {
			break
		}
		results = append(results, mapSearxngResult(item))
	}
	if len(results) == 0 {
		status = "empty"
	}
	return results, nil
}

func mapSearxngResult(item searxngResult) domainsearch.Result {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = domainsearch.UntitledPlaceholder
	}
	engine := strings.TrimSpace(item.Engine)
	if engine == "" {
		engine = searxngEngine
	}
	return domainsearch.Result{
		Title:   title,
		URL:     strings.TrimSpace(item.URL),
		Content: strings.TrimSpace(item.Content),
		Engine:  engine,
	}
}
