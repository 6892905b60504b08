package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/pedidohub/backoffice/internal/domain"
)

// Kafka topics.
const (
	// TopicJobs carries job envelopes for the order pipeline.
	TopicJobs = "backoffice.jobs"
	// TopicJobsDLQ receives job envelopes the consumer gave up on.
	TopicJobsDLQ = "backoffice.jobs.dlq"
	// TopicOrderEvents receives order lifecycle events from the outbox.
	TopicOrderEvents = "backoffice.order.events"
	// TopicOrderEventsDLQ receives order events the outbox worker could not publish.
	TopicOrderEventsDLQ = "backoffice.order.events.dlq"
)

// Message headers used for redelivery bookkeeping.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// JobEnvelope is what travels through the jobs topic: a pointer to the
// persisted job record plus routing metadata. The payload itself stays in
// storage.
type JobEnvelope struct {
	JobID      string    `json:"job_id"`
	Type       string    `json:"type"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJobEnvelope builds the envelope for a persisted job.
func NewJobEnvelope(job domain.Job) JobEnvelope {
	return JobEnvelope{
		JobID:      job.ID,
		Type:       string(job.Type),
		EnqueuedAt: time.Now().UTC(),
	}
}

// ParseJobEnvelope decodes a jobs topic message.
func ParseJobEnvelope(message *sarama.ConsumerMessage) (JobEnvelope, error) {
	var envelope JobEnvelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return JobEnvelope{}, fmt.Errorf("unmarshal job envelope: %w", err)
	}
	if envelope.JobID == "" {
		return JobEnvelope{}, fmt.Errorf("job envelope without job_id")
	}
	return envelope, nil
}
