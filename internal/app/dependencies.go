package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/health"
	"github.com/pedidohub/backoffice/internal/storage/memory"
	"github.com/pedidohub/backoffice/internal/storage/postgres"
)

// Dependencies holds the repository set behind the API and the workers, plus
// the store handle when Postgres backs them.
type Dependencies struct {
	Orders       domain.OrderRepository
	Customers    domain.CustomerRepository
	Suppliers    domain.SupplierRepository
	Countries    domain.CountryRepository
	Translations domain.TranslationRepository
	Jobs         domain.JobRepository
	Outbox       domain.OutboxRepository
	Timeline     domain.TimelineRepository

	Store  *postgres.Store
	Logger *log.Entry
}

// NewDependencies wires the repositories for the configured storage mode. An
// empty DSN selects the in-memory set, which is complete enough for local
// runs and tests.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.MemoryMode() {
		logger.Info("storage: in-memory repositories")
		return &Dependencies{
			Orders:       memory.NewOrderRepository(),
			Customers:    memory.NewCustomerRepository(),
			Suppliers:    memory.NewSupplierRepository(),
			Countries:    memory.NewCountryRepository(),
			Translations: memory.NewTranslationRepository(),
			Jobs:         memory.NewJobRepository(cfg.JobTTL),
			Outbox:       memory.NewOutboxRepository(),
			Timeline:     memory.NewTimelineRepository(),
			Logger:       logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	logger.Info("storage: postgres repositories")

	return &Dependencies{
		Orders:       postgres.NewOrderRepository(store),
		Customers:    postgres.NewCustomerRepository(store),
		Suppliers:    postgres.NewSupplierRepository(store),
		Countries:    postgres.NewCountryRepository(store),
		Translations: postgres.NewTranslationRepository(store),
		Jobs:         postgres.NewJobRepository(store, cfg.JobTTL),
		Outbox:       postgres.NewOutboxRepository(store),
		Timeline:     postgres.NewTimelineRepository(store),
		Store:        store,
		Logger:       logger,
	}, nil
}

// Close releases the storage handle. Safe on the in-memory set.
func (d *Dependencies) Close() {
	if d.Store != nil {
		d.Store.Close()
	}
}

// HealthChecker reports storage readiness. The in-memory set is always ready.
func (d *Dependencies) HealthChecker() *health.SimpleChecker {
	return health.NewSimpleChecker("storage", func() error {
		if d.Store == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return d.Store.Ping(ctx)
	})
}
