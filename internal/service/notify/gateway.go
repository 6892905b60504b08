package notify

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

// GatewayOptions configures the simulated notification gateway.
type GatewayOptions struct {
	Logger *log.Entry
	// Latency is how long every delivery blocks before responding.
	Latency time.Duration
	// FailureRate is the probability in [0, 1] that a delivery fails.
	FailureRate float64
	// Seed fixes the random source, zero means time-based.
	Seed int64
}

// Option configures the Gateway.
type Option func(*GatewayOptions)

// WithLogger sets the gateway logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *GatewayOptions) {
		opts.Logger = logger
	}
}

// WithLatency sets the simulated delivery latency.
func WithLatency(latency time.Duration) Option {
	return func(opts *GatewayOptions) {
		opts.Latency = latency
	}
}

// WithFailureRate sets the probability that a delivery fails.
func WithFailureRate(rate float64) Option {
	return func(opts *GatewayOptions) {
		opts.FailureRate = rate
	}
}

// WithSeed fixes the random source for deterministic tests.
func WithSeed(seed int64) Option {
	return func(opts *GatewayOptions) {
		opts.Seed = seed
	}
}

// Gateway simulates an email and SMS provider. The zero-option gateway
// delivers instantly and never fails.
type Gateway struct {
	logger      *log.Entry
	latency     time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGateway builds the simulated notification gateway.
func NewGateway(options ...Option) *Gateway {
	var opts GatewayOptions
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "notify-gateway")
	}

	if opts.Latency < 0 {
		opts.Latency = 0
	}
	if opts.FailureRate < 0 {
		opts.FailureRate = 0
	}
	if opts.FailureRate > 1 {
		opts.FailureRate = 1
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Gateway{
		logger:      logger,
		latency:     opts.Latency,
		failureRate: opts.FailureRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Send delivers one rendered notification to the customer.
func (g *Gateway) Send(ctx context.Context, notification domain.Notification) error {
	if notification.Recipient == "" {
		return fmt.Errorf("%w: empty recipient", domain.ErrNotificationFailure)
	}

	if err := g.wait(ctx); err != nil {
		return err
	}

	if g.roll() {
		err := fmt.Errorf("%w: %s delivery to %s", domain.ErrNotificationFailure, notification.Channel, notification.Recipient)
		g.logger.WithError(err).WithFields(log.Fields{
			"channel":   notification.Channel,
			"recipient": notification.Recipient,
		}).Warn("notification delivery failed")
		return err
	}

	g.logger.WithFields(log.Fields{
		"channel":   notification.Channel,
		"recipient": notification.Recipient,
		"language":  notification.Language,
		"subject":   notification.Subject,
	}).Info("notification delivered")

	return nil
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(g.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *Gateway) roll() bool {
	if g.failureRate <= 0 {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < g.failureRate
}

var _ domain.NotificationGateway = (*Gateway)(nil)
