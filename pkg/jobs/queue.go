package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the buffer cannot take another job.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueStopped is returned when a job is enqueued outside Start/Stop.
	ErrQueueStopped = errors.New("queue not running")
)

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Stats counts jobs handled since Start.
type Stats struct {
	Processed uint64
	Failed    uint64
	Dropped   uint64
}

// Queue is an in-memory job dispatcher backed by goroutines. Enqueue never blocks, so a
// caller can fall back to doing the work inline when the queue is saturated.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.RWMutex
	started bool

	processed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels pending retries, runs whatever is still buffered once, and waits for workers.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.retries.Wait()
	q.drain()
	q.logger.Info("queue stopped",
		zap.Uint64("processed", q.processed.Load()),
		zap.Uint64("failed", q.failed.Load()),
		zap.Uint64("dropped", q.dropped.Load()))
}

// Enqueue pushes a job onto the queue without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started {
		return fmt.Errorf("%s: %w", q.name, ErrQueueStopped)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		q.dropped.Add(1)
		return fmt.Errorf("%s: %w", q.name, ErrQueueFull)
	}
}

// Stats reports counters since the queue was built.
func (q *Queue) Stats() Stats {
	return Stats{Processed: q.processed.Load(), Failed: q.failed.Load(), Dropped: q.dropped.Load()}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(q.ctx, job)
		}
	}
}

func (q *Queue) run(ctx context.Context, job Job) {
	if err := q.handler(ctx, job); err != nil {
		q.handleFailure(job, err)
		return
	}
	q.processed.Add(1)
}

func (q *Queue) drain() {
	ctx := context.Background()
	for {
		select {
		case job := <-q.jobs:
			if err := q.handler(ctx, job); err != nil {
				q.failed.Add(1)
				q.logger.Warn("job failed during drain", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
				continue
			}
			q.processed.Add(1)
		default:
			return
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.failed.Add(1)
		q.logger.Error("job exceeded retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		return
	}
	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))

	q.retries.Add(1)
	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.failed.Add(1)
			return
		case <-timer.C:
			select {
			case q.jobs <- j:
			default:
				q.dropped.Add(1)
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(ErrQueueFull))
			}
		}
	}(job)
}
