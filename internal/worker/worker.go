package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/retry"
	"github.com/janhq/answer-api/internal/infrastructure/metrics"
	"github.com/janhq/answer-api/internal/utils/platformerrors"
)

// Worker executes tasks from the pool's queue.
type Worker struct {
	id          int
	tasks       <-chan task
	taskTimeout time.Duration
	policy      retry.Policy
	stopChan    <-chan struct{}
	log         zerolog.Logger
}

// newWorker creates a new background worker.
func newWorker(id int, tasks <-chan task, taskTimeout time.Duration, policy retry.Policy, stopChan <-chan struct{}, log zerolog.Logger) *Worker {
	return &Worker{
		id:          id,
		tasks:       tasks,
		taskTimeout: taskTimeout,
		policy:      policy,
		stopChan:    stopChan,
		log:         log.With().Int("worker_id", id).Str("component", "worker").Logger(),
	}
}

// Start processes tasks until the pool stops, then drains what is still queued.
func (w *Worker) Start() {
	for {
		select {
		case t := <-w.tasks:
			run(t, w.taskTimeout, w.policy, w.log)
		case <-w.stopChan:
			w.drain()
			return
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case t := <-w.tasks:
			run(t, w.taskTimeout, w.policy, w.log)
		default:
			return
		}
	}
}

// run executes t under the task timeout, retrying transient database errors.
func run(t task, timeout time.Duration, policy retry.Policy, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()

	startTime := time.Now()
	attempts := 0
	err := retry.Do(ctx, policy, isTransient, func(ctx context.Context, attempt int) error {
		attempts = attempt + 1
		if attempt > 0 {
			log.Warn().Str("task", t.name).Int("attempt", attempt+1).Msg("retrying background task")
		}
		return execute(ctx, t.fn)
	})
	if err != nil {
		log.Error().Err(err).Str("task", t.name).Int("attempts", attempts).Dur("duration", time.Since(startTime)).Msg("background task failed")
		metrics.RecordBackgroundTask(t.name, "failed")
	} else {
		log.Debug().Str("task", t.name).Dur("duration", time.Since(startTime)).Msg("background task completed")
		metrics.RecordBackgroundTask(t.name, "completed")
	}
	t.result <- err
}

func isTransient(err error) bool {
	return platformerrors.IsErrorType(err, platformerrors.ErrorTypeDatabaseError)
}

func execute(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}
