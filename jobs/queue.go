// Package jobs runs generations asynchronously: a bounded queue drained by a
// fixed worker group, with results kept for a TTL.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"roomify/logging"
)

var (
	// ErrQueueFull is returned by Submit when every slot is taken.
	ErrQueueFull = errors.New("jobs: queue is full")
	// ErrClosed is returned after Stop.
	ErrClosed = errors.New("jobs: queue is closed")
	// ErrJobNotFound is returned for unknown or expired IDs.
	ErrJobNotFound = errors.New("jobs: job not found")
)

// State is the lifecycle position of a job.
type State string

const (
	StateInQueue    State = "IN_QUEUE"
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// Done reports whether s is terminal.
func (s State) Done() bool {
	return s == StateCompleted || s == StateFailed
}

// Job is the status document returned to clients.
type Job struct {
	ID     string `json:"id"`
	Status State  `json:"status"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	// DelayTime and ExecutionTime are in milliseconds.
	DelayTime     int64 `json:"delayTime,omitempty"`
	ExecutionTime int64 `json:"executionTime,omitempty"`

	submittedAt time.Time
	startedAt   time.Time
}

// Handler produces a job's output.
type Handler func(ctx context.Context, id string, input any) (any, error)

// Config sizes the queue.
type Config struct {
	Workers   int
	QueueSize int
	ResultTTL time.Duration
}

// DefaultConfig matches the environment defaults.
func DefaultConfig() Config {
	return Config{Workers: 2, QueueSize: 32, ResultTTL: 30 * time.Minute}
}

type task struct {
	id    string
	input any
}

// Queue accepts jobs and runs them on Workers goroutines.
type Queue struct {
	cfg     Config
	handler Handler
	logger  *logging.Logger

	tasks   chan task
	results *cache.Cache

	mu      sync.Mutex
	closed  bool
	started bool
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// New creates a stopped queue; call Start before submitting.
func New(cfg Config, handler Handler, logger *logging.Logger) *Queue {
	def := DefaultConfig()
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = def.ResultTTL
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Queue{
		cfg:     cfg,
		handler: handler,
		logger:  logger.Named("jobs"),
		tasks:   make(chan task, cfg.QueueSize),
		results: cache.New(cfg.ResultTTL, 2*cfg.ResultTTL),
	}
}

// Start launches the workers. Cancelling ctx cancels running handlers;
// use Stop to drain.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		g.Go(func() error {
			for t := range q.tasks {
				q.process(gctx, t)
			}
			return nil
		})
	}
	q.group = g
	q.logger.Infow("job workers started", "workers", q.cfg.Workers, "queue_size", q.cfg.QueueSize)
}

// Submit enqueues input and returns its IN_QUEUE job.
func (q *Queue) Submit(input any) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}

	job := &Job{ID: uuid.NewString(), Status: StateInQueue, submittedAt: time.Now()}
	q.store(job)

	select {
	case q.tasks <- task{id: job.ID, input: input}:
	default:
		q.results.Delete(job.ID)
		return nil, ErrQueueFull
	}
	q.logger.Debugw("job queued", "job_id", job.ID, "pending", len(q.tasks))
	return job.clone(), nil
}

// RunSync runs input on the calling goroutine, bypassing the queue, and
// keeps the result available to Status like any other job.
func (q *Queue) RunSync(ctx context.Context, input any) (*Job, error) {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	job := &Job{ID: uuid.NewString(), Status: StateInQueue, submittedAt: time.Now()}
	q.store(job)
	return q.process(ctx, task{id: job.ID, input: input}), nil
}

// Status returns a snapshot of the job.
func (q *Queue) Status(id string) (*Job, error) {
	v, ok := q.results.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return v.(*Job).clone(), nil
}

// Pending is the number of jobs waiting for a worker.
func (q *Queue) Pending() int {
	return len(q.tasks)
}

// Stop refuses new jobs and waits for queued ones to finish. If ctx ends
// first, running handlers are cancelled.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	g, cancel := q.group, q.cancel
	q.mu.Unlock()

	if g == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		cancel()
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) process(ctx context.Context, t task) (job *Job) {
	job = q.update(t.id, func(j *Job) {
		j.Status = StateInProgress
		j.startedAt = time.Now()
		j.DelayTime = j.startedAt.Sub(j.submittedAt).Milliseconds()
	})

	var (
		output any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		output, err = q.handler(ctx, t.id, t.input)
	}()

	job = q.update(t.id, func(j *Job) {
		j.ExecutionTime = time.Since(j.startedAt).Milliseconds()
		j.Output = output
		if err != nil {
			j.Status = StateFailed
			j.Error = err.Error()
			return
		}
		j.Status = StateCompleted
	})

	if err != nil {
		q.logger.Warnw("job failed", "job_id", t.id, "error", err, "execution_ms", job.ExecutionTime)
	} else {
		q.logger.Infow("job completed", "job_id", t.id, "execution_ms", job.ExecutionTime)
	}
	return job
}

// update applies fn to the stored job and returns a snapshot. Terminal jobs
// get the result TTL; live ones never expire.
func (q *Queue) update(id string, fn func(*Job)) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	var job *Job
	if v, ok := q.results.Get(id); ok {
		job = v.(*Job).clone()
	} else {
		job = &Job{ID: id, submittedAt: time.Now()}
	}
	fn(job)
	q.storeLocked(job)
	return job.clone()
}

func (q *Queue) store(job *Job) {
	q.storeLocked(job.clone())
}

func (q *Queue) storeLocked(job *Job) {
	ttl := cache.NoExpiration
	if job.Status.Done() {
		ttl = cache.DefaultExpiration
	}
	q.results.Set(job.ID, job, ttl)
}

func (j *Job) clone() *Job {
	c := *j
	return &c
}
