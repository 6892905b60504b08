// Package rest is the operator-facing HTTP API: order import and CRUD for
// the back office resources, wrapped in JSON envelopes.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/metrics"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultJobMaxAttempts = 3
)

// Dependencies carries the repositories and collaborators the handlers use.
type Dependencies struct {
	Orders       domain.OrderRepository
	Customers    domain.CustomerRepository
	Suppliers    domain.SupplierRepository
	Countries    domain.CountryRepository
	Translations domain.TranslationRepository
	Jobs         domain.JobRepository
	Queue        domain.JobQueue
	Outbox       domain.OutboxRepository
	Timeline     domain.TimelineRepository
}

// ServerOptions carries the server tunables.
type ServerOptions struct {
	Logger *log.Entry
	// RequestTimeout bounds the handling of a single request.
	RequestTimeout time.Duration
	// JobMaxAttempts is recorded on import jobs, mirroring the queue
	// redelivery limit.
	JobMaxAttempts int
}

// ServerOption configures the server.
type ServerOption func(*ServerOptions)

// WithServerLogger sets the server logger.
func WithServerLogger(logger *log.Entry) ServerOption {
	return func(opts *ServerOptions) {
		opts.Logger = logger
	}
}

// WithRequestTimeout bounds request handling.
func WithRequestTimeout(timeout time.Duration) ServerOption {
	return func(opts *ServerOptions) {
		opts.RequestTimeout = timeout
	}
}

// WithJobMaxAttempts sets the redelivery limit recorded on import jobs.
func WithJobMaxAttempts(maxAttempts int) ServerOption {
	return func(opts *ServerOptions) {
		opts.JobMaxAttempts = maxAttempts
	}
}

// Server is the REST API server.
type Server struct {
	server *http.Server
	router *mux.Router
	logger *log.Entry
}

// NewServer builds the API server with Prometheus request metrics on the
// default registerer.
func NewServer(addr string, deps Dependencies, options ...ServerOption) *Server {
	return newServer(addr, deps, metrics.NewHTTPMetrics(), options...)
}

// NewServerWithoutMetrics builds the API server without registering metrics.
// Tests use it to avoid duplicate collector registration.
func NewServerWithoutMetrics(addr string, deps Dependencies, options ...ServerOption) *Server {
	return newServer(addr, deps, nil, options...)
}

func newServer(addr string, deps Dependencies, httpMetrics *metrics.HTTPMetrics, options ...ServerOption) *Server {
	opts := ServerOptions{
		RequestTimeout: defaultRequestTimeout,
		JobMaxAttempts: defaultJobMaxAttempts,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "rest-server")
	}
	if opts.JobMaxAttempts <= 0 {
		opts.JobMaxAttempts = defaultJobMaxAttempts
	}
	if opts.RequestTimeout < 0 {
		opts.RequestTimeout = 0
	}

	router := mux.NewRouter()
	router.NotFoundHandler = envelopeHandler(http.StatusNotFound, "route_not_found", "resource not found")
	router.MethodNotAllowedHandler = envelopeHandler(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed for this resource")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(
		requestIDMiddleware,
		loggingMiddleware(logger),
		metricsMiddleware(httpMetrics),
		tracingMiddleware(),
		recoveryMiddleware(logger),
		timeoutMiddleware(opts.RequestTimeout),
	)

	(&orderHandlers{
		orders:      deps.Orders,
		customers:   deps.Customers,
		suppliers:   deps.Suppliers,
		jobs:        deps.Jobs,
		queue:       deps.Queue,
		outbox:      deps.Outbox,
		timeline:    deps.Timeline,
		logger:      logger,
		maxAttempts: opts.JobMaxAttempts,
	}).register(api)
	(&customerHandlers{customers: deps.Customers, logger: logger}).register(api)
	(&supplierHandlers{suppliers: deps.Suppliers, logger: logger}).register(api)
	(&countryHandlers{countries: deps.Countries, logger: logger}).register(api)
	(&translationHandlers{translations: deps.Translations, logger: logger}).register(api)
	(&jobHandlers{
		jobs:      deps.Jobs,
		orders:    deps.Orders,
		suppliers: deps.Suppliers,
		logger:    logger,
	}).register(api)

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		router: router,
		logger: logger,
	}
}

// envelopeHandler writes a fixed error envelope. Used for router-level
// failures that never reach the middleware chain.
func envelopeHandler(status int, code, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, errorEnvelope{
			Success:   false,
			Message:   message,
			Code:      code,
			Timestamp: time.Now().UTC(),
		})
	})
}

// Router exposes the handler tree for tests and for mounting under other
// servers.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.server.Shutdown(ctx)
}
