package kafka

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

// JobQueue publishes job envelopes to the jobs topic. The consumer group on
// the other side drives the pipeline.
type JobQueue struct {
	producer *Producer
	topic    string
	logger   *log.Entry
}

// NewJobQueue builds the Kafka implementation of the enqueue port. An empty
// topic means TopicJobs.
func NewJobQueue(producer *Producer, topic string) domain.JobQueue {
	if topic == "" {
		topic = TopicJobs
	}
	return &JobQueue{
		producer: producer,
		topic:    topic,
		logger:   log.WithField("component", "kafka-job-queue"),
	}
}

func (q *JobQueue) Enqueue(job domain.Job) error {
	if q == nil || q.producer == nil {
		return fmt.Errorf("kafka job queue is not initialized")
	}

	if err := q.producer.PublishEvent(q.topic, job.ID, NewJobEnvelope(job)); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	q.logger.WithFields(log.Fields{
		"job_id":   job.ID,
		"job_type": string(job.Type),
	}).Debug("job enqueued")
	return nil
}

var _ domain.JobQueue = (*JobQueue)(nil)
