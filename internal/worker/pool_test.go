package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/answer-api/internal/domain/retry"
	"github.com/janhq/answer-api/internal/utils/platformerrors"
)

func waitResult(ctx context.Context, result <-chan error) error {
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestPool(t *testing.T, workers int) *Pool {
	t.Helper()
	pool := NewPool(Config{WorkerCount: workers, TaskTimeout: time.Second}, zerolog.Nop())
	pool.Start()
	t.Cleanup(pool.Stop)
	return pool
}

func TestSubmit_ReportsResult(t *testing.T) {
	pool := newTestPool(t, 2)
	boom := errors.New("boom")

	ok := pool.Submit(context.Background(), "ok", func(context.Context) error { return nil })
	failed := pool.Submit(context.Background(), "failed", func(context.Context) error { return boom })

	assert.NoError(t, waitResult(context.Background(), ok))
	assert.ErrorIs(t, waitResult(context.Background(), failed), boom)
}

func TestSubmit_SurvivesCallerCancellation(t *testing.T) {
	pool := newTestPool(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})

	result := pool.Submit(ctx, "persist", func(taskCtx context.Context) error {
		<-release
		return taskCtx.Err()
	})
	cancel()
	close(release)

	assert.NoError(t, waitResult(context.Background(), result))
}

func TestSubmit_AppliesTimeout(t *testing.T) {
	pool := NewPool(Config{WorkerCount: 1, TaskTimeout: 20 * time.Millisecond}, zerolog.Nop())
	pool.Start()
	defer pool.Stop()

	result := pool.Submit(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, waitResult(context.Background(), result), context.DeadlineExceeded)
}

func TestSubmit_RecoversPanic(t *testing.T) {
	pool := newTestPool(t, 1)

	result := pool.Submit(context.Background(), "panics", func(context.Context) error { panic("bad") })

	err := waitResult(context.Background(), result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestStop_DrainsQueuedTasksAndRejectsNew(t *testing.T) {
	pool := NewPool(Config{WorkerCount: 1, TaskTimeout: time.Second}, zerolog.Nop())
	pool.Start()

	var ran atomic.Int32
	results := make([]<-chan error, 0, 5)
	for i := 0; i < 5; i++ {
		results = append(results, pool.Submit(context.Background(), "count", func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	pool.Stop()

	for _, r := range results {
		assert.NoError(t, waitResult(context.Background(), r))
	}
	assert.Equal(t, int32(5), ran.Load())

	late := pool.Submit(context.Background(), "late", func(context.Context) error { return nil })
	assert.ErrorIs(t, waitResult(context.Background(), late), ErrPoolStopped)
}

func TestSubmit_RetriesDatabaseErrors(t *testing.T) {
	pool := NewPool(Config{
		WorkerCount: 1,
		TaskTimeout: time.Second,
		Retry:       retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond},
	}, zerolog.Nop())
	pool.Start()
	t.Cleanup(pool.Stop)

	var dbCalls atomic.Int32
	flaky := pool.Submit(context.Background(), "persist", func(ctx context.Context) error {
		if dbCalls.Add(1) < 3 {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "insert failed", nil, "db")
		}
		return nil
	})
	require.NoError(t, waitResult(context.Background(), flaky))
	assert.Equal(t, int32(3), dbCalls.Load())

	var otherCalls atomic.Int32
	permanent := pool.Submit(context.Background(), "other", func(context.Context) error {
		otherCalls.Add(1)
		return errors.New("not retryable")
	})
	assert.Error(t, waitResult(context.Background(), permanent))
	assert.Equal(t, int32(1), otherCalls.Load())
}
