package cache

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/search"
)

// Cache type identifiers accepted by SEARCH_CACHE_TYPE.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeNoop   = "noop"
)

// Config selects and sizes the search cache backend.
type Config struct {
	Type     string
	Size     int
	RedisURL string
}

// New builds the search cache backend named by cfg.Type.
func New(cfg Config, log zerolog.Logger) (search.Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", TypeMemory:
		log.Info().Int("size", cfg.Size).Msg("using in-memory search cache")
		return NewMemoryCache(cfg.Size)
	case TypeRedis:
		log.Info().Msg("using redis search cache")
		return NewRedisCache(cfg.RedisURL)
	case TypeNoop:
		log.Info().Msg("search cache disabled")
		return NoopCache{}, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
