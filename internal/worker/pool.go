package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/answer-api/internal/domain/retry"
)

const (
	defaultWorkerCount = 8
	defaultTaskTimeout = 15 * time.Second
	queueFactor        = 16
	shutdownTimeout    = 30 * time.Second
)

// ErrPoolStopped is delivered for tasks submitted after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

// TaskFunc is a best-effort side effect. Its error is logged and counted, never
// returned to the request that submitted it.
type TaskFunc func(ctx context.Context) error

type task struct {
	name   string
	ctx    context.Context
	fn     TaskFunc
	result chan error
}

// Pool runs best-effort background tasks on a fixed set of workers.
type Pool struct {
	workers     []*Worker
	tasks       chan task
	workerCount int
	taskTimeout time.Duration
	policy      retry.Policy
	log         zerolog.Logger
	wg          sync.WaitGroup
	mu          sync.RWMutex
	stopped     bool
	stopChan    chan struct{}
}

// Config contains worker pool configuration.
type Config struct {
	WorkerCount int
	TaskTimeout time.Duration
	// Retry applies to tasks failing with a database error. The zero value disables retries.
	Retry retry.Policy
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, log zerolog.Logger) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaultTaskTimeout
	}
	return &Pool{
		tasks:       make(chan task, cfg.WorkerCount*queueFactor),
		workerCount: cfg.WorkerCount,
		taskTimeout: cfg.TaskTimeout,
		policy:      cfg.Retry,
		log:         log.With().Str("component", "worker-pool").Logger(),
		stopChan:    make(chan struct{}),
	}
}

// Start initializes and starts all workers.
func (p *Pool) Start() {
	p.log.Info().Int("worker_count", p.workerCount).Msg("starting worker pool")

	p.workers = make([]*Worker, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		worker := newWorker(i+1, p.tasks, p.taskTimeout, p.policy, p.stopChan, p.log)
		p.workers[i] = worker

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start()
		}(worker)
	}
}

// Submit schedules fn on a context detached from ctx's cancellation, so a client
// disconnect does not abort it. The returned channel receives the task's error (nil on
// success) exactly once. Submit never blocks: when the queue is full the task runs on
// its own goroutine.
func (p *Pool) Submit(ctx context.Context, name string, fn func(ctx context.Context) error) <-chan error {
	t := task{
		name:   name,
		ctx:    context.WithoutCancel(ctx),
		fn:     fn,
		result: make(chan error, 1),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		t.result <- ErrPoolStopped
		return t.result
	}

	select {
	case p.tasks <- t:
	default:
		p.log.Warn().Str("task", name).Msg("task queue full, running task inline")
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			run(t, p.taskTimeout, p.policy, p.log)
		}()
	}
	return t.result
}

// Stop rejects new tasks and waits for queued ones to drain.
func (p *Pool) Stop() {
	p.log.Info().Msg("stopping worker pool")

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopChan)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("all workers stopped gracefully")
	case <-time.After(shutdownTimeout):
		p.log.Warn().Msg("worker pool shutdown timed out")
	}
}

// QueueDepth returns the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}
