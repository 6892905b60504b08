package messaging

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/service/pipeline"
)

// JobHandler runs one delivered attempt of a queued job. attempt is 1-based;
// final means the queue will not redeliver after a failure. Both queue modes
// speak this contract.
type JobHandler func(ctx context.Context, jobID string, attempt int, final bool) error

// Runner is the handler implementation shared by the Kafka consumer and the
// in-process queue: it loads the job record, marks it active, feeds pipeline
// progress into the record, and settles the record afterwards.
type Runner struct {
	jobs      domain.JobRepository
	processor pipeline.Processor
	logger    *log.Entry
}

// NewRunner builds the shared job runner.
func NewRunner(jobs domain.JobRepository, processor pipeline.Processor, logger *log.Entry) *Runner {
	if logger == nil {
		logger = log.WithField("component", "job-runner")
	}
	return &Runner{jobs: jobs, processor: processor, logger: logger}
}

// Handle implements JobHandler.
func (r *Runner) Handle(ctx context.Context, jobID string, attempt int, final bool) error {
	logger := r.logger.WithFields(log.Fields{"job_id": jobID, "attempt": attempt})

	job, err := r.jobs.Get(jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			// A message without a record is poison; redelivering cannot fix it.
			logger.Warn("job record not found, dropping the message")
			return nil
		}
		return err
	}
	if job.Status.Terminal() {
		logger.WithField("status", string(job.Status)).Debug("job already settled, skipping redelivery")
		return nil
	}

	if err := r.jobs.MarkActive(jobID, attempt); err != nil {
		logger.WithError(err).Warn("failed to mark job active")
	}
	job.Attempts = attempt

	processErr := r.processor.Process(ctx, job, func(progress int) {
		if err := r.jobs.SetProgress(jobID, progress); err != nil {
			logger.WithError(err).Warn("failed to store job progress")
		}
	})
	if processErr == nil {
		if err := r.jobs.MarkCompleted(jobID); err != nil {
			logger.WithError(err).Warn("failed to mark job completed")
		}
		return nil
	}

	if final {
		if err := r.jobs.MarkFailed(jobID, processErr.Error()); err != nil {
			logger.WithError(err).Warn("failed to mark job failed")
		}

		// The create step may have linked the order during this very attempt.
		orderID := job.OrderID
		if fresh, err := r.jobs.Get(jobID); err == nil && fresh.OrderID != "" {
			orderID = fresh.OrderID
		}
		if orderID != "" {
			r.processor.FailOrder(orderID, processErr.Error())
		}
		logger.WithError(processErr).Error("job failed permanently")
	}

	return processErr
}
