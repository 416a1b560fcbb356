package cache

import (
	"context"
	"time"

	"github.com/janhq/answer-api/internal/domain/search"
)

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]search.Result, bool, error) {
	return nil, false, nil
}

func (NoopCache) Set(context.Context, string, []search.Result, time.Duration) error {
	return nil
}
