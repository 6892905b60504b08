package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

const (
	defaultCleanupInterval  = 10 * time.Minute
	defaultCleanupBatchSize = 500
)

var (
	jobsCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_jobs_cleanup_runs_total",
		Help: "Total number of job cleanup runs grouped by result.",
	}, []string{"result"})
	jobsCleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_jobs_cleanup_deleted_total",
		Help: "Total number of deleted expired job records.",
	})
	jobsCleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backoffice_jobs_cleanup_last_deleted",
		Help: "Number of deleted records during the last cleanup run.",
	})
)

// CleanupOptions carries the job cleanup worker tunables.
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

// CleanupOption configures the CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger sets the worker logger.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval sets the time between cleanup cycles.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize sets how many rows one delete round may remove.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// CleanupWorker periodically prunes finished job records past their TTL.
// Queued and active jobs are never touched; the repository enforces that.
type CleanupWorker struct {
	repo      domain.JobRepository
	logger    *log.Entry
	interval  time.Duration
	batchSize int
}

// NewCleanupWorker builds the job cleanup worker.
func NewCleanupWorker(repo domain.JobRepository, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		BatchSize: defaultCleanupBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "jobs-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}

	return &CleanupWorker{
		repo:      repo,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
	}
}

// Run cleans on a ticker until the context is cancelled.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("jobs cleanup worker is disabled: repo is nil")
		return
	}

	w.cleanup(ctx, time.Now().UTC())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx, time.Now().UTC())
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context, before time.Time) {
	deleted, err := w.DeleteExpired(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		jobsCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("jobs cleanup run failed")
		return
	}

	jobsCleanupRunsTotal.WithLabelValues("ok").Inc()
	jobsCleanupLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("jobs cleanup completed")
	}
}

// DeleteExpired removes every finished record expired before the given time,
// in batches of batchSize.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.repo.DeleteExpired(before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			jobsCleanupDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
