package app

import (
	"context"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/health"
	"github.com/pedidohub/backoffice/internal/messaging"
	"github.com/pedidohub/backoffice/internal/messaging/kafka"
	"github.com/pedidohub/backoffice/internal/messaging/memqueue"
)

// queueRuntime bundles the queue-side wiring for one run: the enqueue side
// handed to the REST server, the outbox publishers and the consumer
// lifecycle. Kafka and the in-process queue expose the same shape so Run
// does not branch on the mode.
type queueRuntime struct {
	queue        domain.JobQueue
	publisher    domain.OutboxPublisher
	dlqPublisher domain.OutboxPublisher

	startFn func(ctx context.Context) error
	stopFn  func() error
	stopped atomic.Bool
}

func (rt *queueRuntime) start(ctx context.Context) error {
	return rt.startFn(ctx)
}

// stop is idempotent so Run can call it both on the shutdown path and in a
// deferred cleanup.
func (rt *queueRuntime) stop() error {
	if rt.stopped.Swap(true) {
		return nil
	}
	return rt.stopFn()
}

func (rt *queueRuntime) healthChecker() *health.SimpleChecker {
	return health.NewSimpleChecker("queue", func() error {
		if rt.stopped.Load() {
			return fmt.Errorf("job queue is stopped")
		}
		return nil
	})
}

// newQueueRuntime wires the job queue for the configured mode. With brokers
// it builds the sarama producer, the jobs consumer group and the Kafka outbox
// publishers; without brokers jobs run on the in-process queue and outbox
// events are logged instead of published.
func newQueueRuntime(cfg Config, handler messaging.JobHandler, logger *log.Entry) (*queueRuntime, error) {
	if cfg.InProcessQueue() {
		queue, err := memqueue.New(handler,
			memqueue.WithMaxAttempts(cfg.JobMaxAttempts),
		)
		if err != nil {
			return nil, fmt.Errorf("create memory queue: %w", err)
		}

		logger.Info("queue: in-process delivery")
		return &queueRuntime{
			queue:     queue,
			publisher: &logPublisher{logger: logger},
			startFn:   queue.Start,
			stopFn:    queue.Stop,
		}, nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	consumer, err := kafka.NewJobConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, producer, handler,
		kafka.WithMaxAttempts(cfg.JobMaxAttempts),
	)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	logger.WithField("brokers", cfg.KafkaBrokers).Info("queue: kafka delivery")
	return &queueRuntime{
		queue:        kafka.NewJobQueue(producer, ""),
		publisher:    kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
		dlqPublisher: kafka.NewOutboxPublisher(producer, kafka.TopicOrderEventsDLQ),
		startFn:      consumer.Start,
		stopFn: func() error {
			stopErr := consumer.Stop()
			if err := producer.Close(); err != nil && stopErr == nil {
				stopErr = err
			}
			return stopErr
		},
	}, nil
}

// logPublisher stands in for Kafka when no brokers are configured. Events
// still leave the outbox, they just end up in the log.
type logPublisher struct {
	logger *log.Entry
}

func (p *logPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID,
	}).Info("outbox event (no brokers configured)")
	return nil
}

var _ domain.OutboxPublisher = (*logPublisher)(nil)
