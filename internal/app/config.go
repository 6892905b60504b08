package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

// Config carries every runtime setting of the back office. Values come from
// BACKOFFICE_* environment variables; commands may override the addresses
// with flags for local runs.
type Config struct {
	// HTTPAddr is where the REST API listens.
	HTTPAddr string `env:"BACKOFFICE_HTTP_ADDR" envDefault:":8080"`
	// OpsAddr serves /metrics and the health endpoints.
	OpsAddr string `env:"BACKOFFICE_OPS_ADDR" envDefault:":9090"`

	// PostgresDSN selects the storage mode: empty runs the in-memory
	// repositories, anything else must be a pgx connection string.
	PostgresDSN string `env:"BACKOFFICE_POSTGRES_DSN"`
	// MigrateOnStart applies pending schema migrations before serving.
	MigrateOnStart bool `env:"BACKOFFICE_MIGRATE_ON_START" envDefault:"true"`

	// KafkaBrokers selects the queue mode: empty runs the in-process queue,
	// otherwise the consumer group runs against these brokers.
	KafkaBrokers []string `env:"BACKOFFICE_KAFKA_BROKERS" envSeparator:","`
	// KafkaGroupID is the consumer group joined on the jobs topic.
	KafkaGroupID string `env:"BACKOFFICE_KAFKA_GROUP_ID" envDefault:"backoffice-workers"`

	// RequestTimeout bounds the handling of one API request.
	RequestTimeout time.Duration `env:"BACKOFFICE_REQUEST_TIMEOUT" envDefault:"15s"`
	// StepDelay is the simulated integration delay before each pipeline step.
	StepDelay time.Duration `env:"BACKOFFICE_STEP_DELAY" envDefault:"150ms"`

	// JobTTL is how long finished job records stay queryable.
	JobTTL time.Duration `env:"BACKOFFICE_JOB_TTL" envDefault:"24h"`
	// JobMaxAttempts caps the deliveries of one job before it is failed.
	JobMaxAttempts int `env:"BACKOFFICE_JOB_MAX_ATTEMPTS" envDefault:"3"`
	// JobCleanupInterval is the pause between expired-record sweeps.
	JobCleanupInterval time.Duration `env:"BACKOFFICE_JOB_CLEANUP_INTERVAL" envDefault:"10m"`

	// OutboxPollInterval is how often the outbox worker polls for pending rows.
	OutboxPollInterval time.Duration `env:"BACKOFFICE_OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	// OutboxBatchSize is how many rows one poll pulls.
	OutboxBatchSize int `env:"BACKOFFICE_OUTBOX_BATCH_SIZE" envDefault:"100"`

	// LogLevel is a logrus level name.
	LogLevel string `env:"BACKOFFICE_LOG_LEVEL" envDefault:"info"`
	// TracingEnabled turns on the stdout span exporter.
	TracingEnabled bool `env:"BACKOFFICE_TRACING" envDefault:"false"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// DefaultConfig returns the configuration with every default applied and the
// environment ignored.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		OpsAddr:            ":9090",
		MigrateOnStart:     true,
		KafkaGroupID:       "backoffice-workers",
		RequestTimeout:     15 * time.Second,
		StepDelay:          150 * time.Millisecond,
		JobTTL:             24 * time.Hour,
		JobMaxAttempts:     3,
		JobCleanupInterval: 10 * time.Minute,
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		LogLevel:           "info",
	}
}

func (c *Config) normalize() {
	brokers := make([]string, 0, len(c.KafkaBrokers))
	for _, broker := range c.KafkaBrokers {
		if b := strings.TrimSpace(broker); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.KafkaBrokers = brokers

	if c.JobMaxAttempts <= 0 {
		c.JobMaxAttempts = 3
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 24 * time.Hour
	}
	if c.RequestTimeout < 0 {
		c.RequestTimeout = 0
	}
	if c.StepDelay < 0 {
		c.StepDelay = 0
	}
}

// MemoryMode reports whether the app runs on in-memory storage.
func (c Config) MemoryMode() bool {
	return c.PostgresDSN == ""
}

// InProcessQueue reports whether jobs run on the in-process queue instead of
// Kafka.
func (c Config) InProcessQueue() bool {
	return len(c.KafkaBrokers) == 0
}

// Level translates the configured log level name, falling back to info.
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
