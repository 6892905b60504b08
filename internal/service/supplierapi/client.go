package supplierapi

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

// ClientOptions configures the simulated supplier API client.
type ClientOptions struct {
	Logger *log.Entry
	// Latency is how long every call blocks before responding.
	Latency time.Duration
	// FailureRate is the probability in [0, 1] that a call fails.
	FailureRate float64
	// Seed fixes the random source, zero means time-based.
	Seed int64
}

// Option configures the Client.
type Option func(*ClientOptions)

// WithLogger sets the client logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *ClientOptions) {
		opts.Logger = logger
	}
}

// WithLatency sets the simulated call latency.
func WithLatency(latency time.Duration) Option {
	return func(opts *ClientOptions) {
		opts.Latency = latency
	}
}

// WithFailureRate sets the probability that a call fails.
func WithFailureRate(rate float64) Option {
	return func(opts *ClientOptions) {
		opts.FailureRate = rate
	}
}

// WithSeed fixes the random source for deterministic tests.
func WithSeed(seed int64) Option {
	return func(opts *ClientOptions) {
		opts.Seed = seed
	}
}

// Client simulates registering orders with an external supplier system. The
// zero-option client responds instantly and never fails.
type Client struct {
	logger      *log.Entry
	latency     time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewClient builds the simulated supplier API client.
func NewClient(options ...Option) *Client {
	var opts ClientOptions
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "supplier-api")
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

	return &Client{
		logger:      logger,
		latency:     opts.Latency,
		failureRate: opts.FailureRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// PlaceOrder registers the order with the supplier and returns the supplier's
// own reference for it.
func (c *Client) PlaceOrder(ctx context.Context, supplier domain.Supplier, order domain.Order) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	if c.roll() {
		err := fmt.Errorf("%w: %s rejected order %s", domain.ErrSupplierAPIFailure, supplier.CompanyName, order.ID)
		c.logger.WithError(err).WithFields(log.Fields{
			"supplier_id": supplier.ID,
			"order_id":    order.ID,
			"endpoint":    supplier.APIEndpoint,
		}).Warn("supplier rejected order")
		return "", err
	}

	ref := c.externalRef()
	c.logger.WithFields(log.Fields{
		"supplier_id":  supplier.ID,
		"order_id":     order.ID,
		"endpoint":     supplier.APIEndpoint,
		"external_ref": ref,
	}).Info("order registered with supplier")

	return ref, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(c.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) roll() bool {
	if c.failureRate <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64() < c.failureRate
}

func (c *Client) externalRef() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("ext-%08x%08x", c.rng.Uint32(), c.rng.Uint32())
}

var _ domain.SupplierAPI = (*Client)(nil)
