package kafka

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/messaging"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
)

// ConsumerOptions carries the job consumer tunables.
type ConsumerOptions struct {
	Logger *log.Entry
	// MaxAttempts caps the total deliveries of one job before dead lettering.
	MaxAttempts int
	// RetryDelay is the pause before a failed delivery is republished.
	RetryDelay time.Duration
}

// ConsumerOption configures the JobConsumer.
type ConsumerOption func(*ConsumerOptions)

// WithLogger sets the consumer logger.
func WithLogger(logger *log.Entry) ConsumerOption {
	return func(opts *ConsumerOptions) {
		opts.Logger = logger
	}
}

// WithMaxAttempts sets the delivery cap per job.
func WithMaxAttempts(maxAttempts int) ConsumerOption {
	return func(opts *ConsumerOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryDelay sets the pause before republishing a failed delivery.
func WithRetryDelay(delay time.Duration) ConsumerOption {
	return func(opts *ConsumerOptions) {
		opts.RetryDelay = delay
	}
}

// JobConsumer consumes job envelopes one claim at a time, republishing failed
// deliveries with a bumped retry header until the attempts run out, then dead
// lettering them.
type JobConsumer struct {
	group       sarama.ConsumerGroup
	producer    *Producer
	topic       string
	handler     messaging.JobHandler
	logger      *log.Entry
	maxAttempts int
	retryDelay  time.Duration
	wg          sync.WaitGroup
}

// NewJobConsumer joins the consumer group on the jobs topic. The producer is
// required: redelivery and dead lettering go back through it.
func NewJobConsumer(brokers []string, groupID string, producer *Producer, handler messaging.JobHandler, options ...ConsumerOption) (*JobConsumer, error) {
	if producer == nil {
		return nil, fmt.Errorf("job consumer requires a producer for redelivery")
	}

	opts := ConsumerOptions{
		MaxAttempts: defaultMaxAttempts,
		RetryDelay:  defaultRetryDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "kafka-job-consumer")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}

	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &JobConsumer{
		group:       group,
		producer:    producer,
		topic:       TopicJobs,
		handler:     handler,
		logger:      logger,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
	}, nil
}

// Start launches the consume loop and the error drain.
func (c *JobConsumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume returns on every rebalance and must be called again.
			if err := c.group.Consume(ctx, []string{c.topic}, c); err != nil {
				c.logger.WithError(err).Error("error from consumer")
			}

			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topic", c.topic).Info("kafka job consumer started")
	return nil
}

// Stop closes the group and waits for the loops to drain.
func (c *JobConsumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka job consumer stopped")
	return nil
}

// Setup is called when a consumer session starts.
func (c *JobConsumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is called when a consumer session ends.
func (c *JobConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes one partition sequentially, a single job at a time.
func (c *JobConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			c.logger.WithFields(log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Debug("received message")

			if err := c.handleDelivery(session.Context(), message); err != nil {
				c.logger.WithError(err).WithFields(log.Fields{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("delivery handling failed, leaving the offset unmarked")
				continue
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// handleDelivery runs one delivery through the handler. A nil return means
// the offset may be marked: the job either succeeded, was republished for
// another attempt, or was dead lettered.
func (c *JobConsumer) handleDelivery(ctx context.Context, message *sarama.ConsumerMessage) error {
	envelope, err := ParseJobEnvelope(message)
	if err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"topic":  message.Topic,
			"offset": message.Offset,
		}).Error("malformed job envelope, dead lettering")
		return c.deadLetter(message, err)
	}

	retryCount := c.getRetryCount(message)
	attempt := retryCount + 1
	final := attempt >= c.maxAttempts

	logger := c.logger.WithFields(log.Fields{
		"job_id":  envelope.JobID,
		"attempt": attempt,
	})

	handleErr := c.handler(ctx, envelope.JobID, attempt, final)
	if handleErr == nil {
		return nil
	}

	if final {
		logger.WithError(handleErr).Error("job attempts exhausted, dead lettering")
		return c.deadLetter(message, handleErr)
	}

	logger.WithError(handleErr).Warn("job attempt failed, scheduling redelivery")
	if err := c.pause(ctx); err != nil {
		return err
	}
	return c.republish(message, attempt, handleErr)
}

func (c *JobConsumer) pause(ctx context.Context) error {
	if c.retryDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// republish puts the envelope back on the jobs topic with the bumped retry
// header.
func (c *JobConsumer) republish(message *sarama.ConsumerMessage, retryCount int, cause error) error {
	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(retryCount))},
		{Key: []byte(HeaderErrorMessage), Value: []byte(cause.Error())},
	}
	if err := c.producer.Publish(c.topic, string(message.Key), message.Value, headers...); err != nil {
		return fmt.Errorf("republish job: %w", err)
	}
	return nil
}

// deadLetter moves the envelope to the DLQ topic with the failure metadata in
// headers, keeping the original value replayable as is.
func (c *JobConsumer) deadLetter(message *sarama.ConsumerMessage, cause error) error {
	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderOriginalTopic), Value: []byte(message.Topic)},
		{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(c.getRetryCount(message)))},
		{Key: []byte(HeaderErrorMessage), Value: []byte(cause.Error())},
		{Key: []byte(HeaderFailedAt), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	}
	if err := c.producer.Publish(TopicJobsDLQ, string(message.Key), message.Value, headers...); err != nil {
		return fmt.Errorf("dead letter publish: %w", err)
	}
	return nil
}

// getRetryCount reads the redelivery counter from the message headers.
func (c *JobConsumer) getRetryCount(message *sarama.ConsumerMessage) int {
	for _, header := range message.Headers {
		if string(header.Key) == HeaderRetryCount {
			count, err := strconv.Atoi(string(header.Value))
			if err == nil {
				return count
			}
		}
	}
	return 0
}
