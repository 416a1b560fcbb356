package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// GatewayConfig tunes the gateway.
type GatewayConfig struct {
	CacheTTL time.Duration
	// PrimaryEngine tags primary results that carry no engine of their own.
	PrimaryEngine string
}

// Gateway acquires search results through a primary client, falls back to a direct
// client, and caches non-empty answers. It never returns an error: a failed lookup
// is an empty list.
type Gateway struct {
	primary PrimaryClient
	direct  DirectClient
	cache   Cache
	cfg     GatewayConfig
	log     zerolog.Logger
}

// NewGateway wires a gateway. Either client and the cache may be nil.
func NewGateway(primary PrimaryClient, direct DirectClient, cache Cache, cfg GatewayConfig, log zerolog.Logger) *Gateway {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.PrimaryEngine == "" {
		cfg.PrimaryEngine = "web"
	}
	return &Gateway{
		primary: primary,
		direct:  direct,
		cache:   cache,
		cfg:     cfg,
		log:     log.With().Str("component", "search-gateway").Logger(),
	}
}

// Search returns up to limit results for query, possibly empty.
func (g *Gateway) Search(ctx context.Context, query string, limit int) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	key := cacheKey(query, limit)
	if g.cache != nil {
		cached, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.log.Warn().Err(err).Msg("search cache read failed")
		} else if ok && len(cached) > 0 {
			return cloneResults(cached)
		}
	}

	results := g.fromPrimary(ctx, query, limit)
	if len(results) == 0 {
		results = g.fromDirect(ctx, query, limit)
	}
	if len(results) == 0 {
		g.log.Info().Str("query", query).Msg("search returned no results from any path")
		return []Result{}
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, results, g.cfg.CacheTTL); err != nil {
			g.log.Warn().Err(err).Msg("search cache write failed")
		}
	}
	return cloneResults(results)
}

func (g *Gateway) fromPrimary(ctx context.Context, query string, limit int) []Result {
	if g.primary == nil {
		return nil
	}
	raw, err := g.primary.SearchRaw(ctx, query, limit)
	if err != nil {
		g.log.Warn().Err(err).Msg("primary search failed, trying direct backend")
		return nil
	}
	results, ok := Normalize(raw, limit, g.cfg.PrimaryEngine)
	if !ok {
		g.log.Debug().Msg("primary search payload normalized to nothing, trying direct backend")
		return nil
	}
	return results
}

func (g *Gateway) fromDirect(ctx context.Context, query string, limit int) []Result {
	if g.direct == nil {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	results, err := g.direct.Search(ctx, query, limit)
	if err != nil {
		g.log.Warn().Err(err).Msg("direct search failed")
		return nil
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func cacheKey(query string, limit int) string {
	return fmt.Sprintf("%d:%s", limit, query)
}

func cloneResults(results []Result) []Result {
	out := make([]Result, len(results))
	copy(out, results)
	return out
}
