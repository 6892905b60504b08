// Package memqueue is the in-process job queue used when no Kafka brokers
// are configured. It keeps the delivery contract of the Kafka consumer:
// at-least-once, bounded redelivery with backoff, an attempt counter and a
// final flag on every delivery.
package memqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/messaging"
)

const (
	defaultBufferSize  = 128
	defaultMaxAttempts = 3
	defaultRetryDelay  = 50 * time.Millisecond
)

// Options carries the memory queue tunables.
type Options struct {
	Logger *log.Entry
	// BufferSize caps the number of enqueued jobs waiting for the consumer.
	BufferSize int
	// MaxAttempts caps the total deliveries of one job before it is dropped.
	MaxAttempts int
	// RetryDelay is the base pause before a failed delivery is retried. The
	// pause doubles on every further attempt.
	RetryDelay time.Duration
}

// Option configures the memory queue.
type Option func(*Options)

// WithLogger sets the queue logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithBufferSize sets the enqueue buffer capacity.
func WithBufferSize(size int) Option {
	return func(opts *Options) {
		opts.BufferSize = size
	}
}

// WithMaxAttempts sets the delivery cap per job.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *Options) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryDelay sets the base pause between delivery attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(opts *Options) {
		opts.RetryDelay = delay
	}
}

// Queue hands enqueued job IDs to a single consumer goroutine. Deliveries run
// one at a time, the same way a single-worker Kafka claim does.
type Queue struct {
	deliveries  chan string
	handler     messaging.JobHandler
	logger      *log.Entry
	maxAttempts int
	retryDelay  time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ domain.JobQueue = (*Queue)(nil)

// New builds the queue around the delivery handler.
func New(handler messaging.JobHandler, options ...Option) (*Queue, error) {
	if handler == nil {
		return nil, fmt.Errorf("memory job queue requires a delivery handler")
	}

	opts := Options{
		BufferSize:  defaultBufferSize,
		MaxAttempts: defaultMaxAttempts,
		RetryDelay:  defaultRetryDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "memory-job-queue")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}

	return &Queue{
		deliveries:  make(chan string, opts.BufferSize),
		handler:     handler,
		logger:      logger,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
	}, nil
}

// Enqueue hands the job to the consumer. The call never blocks: a full
// buffer is reported as an error so the caller can surface it.
func (q *Queue) Enqueue(job domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("memory job queue is closed")
	}

	select {
	case q.deliveries <- job.ID:
		q.logger.WithField("job_id", job.ID).Debug("job enqueued")
		return nil
	default:
		return fmt.Errorf("memory job queue is full")
	}
}

// Start launches the consumer goroutine.
func (q *Queue) Start(ctx context.Context) error {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case jobID, ok := <-q.deliveries:
				if !ok {
					return
				}
				q.deliver(ctx, jobID)
			case <-ctx.Done():
				return
			}
		}
	}()

	q.logger.Info("memory job queue started")
	return nil
}

// Stop refuses further enqueues, lets the consumer drain the buffer and
// waits for it to exit.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.deliveries)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("memory job queue stopped")
	return nil
}

// deliver retries the job in place until it succeeds or the attempts run
// out. In-place retry is the memory rendition of the Kafka republish loop:
// there is one consumer, so requeueing through the buffer would only reorder.
func (q *Queue) deliver(ctx context.Context, jobID string) {
	for attempt := 1; ; attempt++ {
		final := attempt >= q.maxAttempts

		err := q.handler(ctx, jobID, attempt, final)
		if err == nil {
			return
		}

		logger := q.logger.WithError(err).WithFields(log.Fields{
			"job_id":  jobID,
			"attempt": attempt,
		})

		if final {
			logger.Error("job attempts exhausted, dropping delivery")
			return
		}

		logger.Warn("job attempt failed, retrying after backoff")
		delay := q.retryDelay * time.Duration(1<<uint(attempt-1))
		if !q.pause(ctx, delay) {
			return
		}
	}
}

func (q *Queue) pause(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
