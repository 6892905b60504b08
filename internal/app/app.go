package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/health"
	"github.com/pedidohub/backoffice/internal/i18n"
	"github.com/pedidohub/backoffice/internal/messaging"
	"github.com/pedidohub/backoffice/internal/observability"
	"github.com/pedidohub/backoffice/internal/service/jobs"
	"github.com/pedidohub/backoffice/internal/service/notify"
	"github.com/pedidohub/backoffice/internal/service/outbox"
	"github.com/pedidohub/backoffice/internal/service/pipeline"
	"github.com/pedidohub/backoffice/internal/service/rest"
	"github.com/pedidohub/backoffice/internal/service/supplierapi"
	"github.com/pedidohub/backoffice/internal/version"
)

// Run wires the back office and serves until ctx is cancelled or the HTTP
// server fails. On a signal it drains the HTTP server, the ops server and the
// job queue, then returns ctx.Err().
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	shutdownTracing, err := observability.SetupTracing("backoffice", cfg.TracingEnabled)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("tracing shutdown with error")
		}
	}()

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	catalog := i18n.NewCatalog(deps.Translations)
	processor := pipeline.NewProcessor(pipeline.Deps{
		Orders:      deps.Orders,
		Customers:   deps.Customers,
		Suppliers:   deps.Suppliers,
		Countries:   deps.Countries,
		Jobs:        deps.Jobs,
		Outbox:      deps.Outbox,
		Timeline:    deps.Timeline,
		SupplierAPI: supplierapi.NewClient(),
		Notifier:    notify.NewGateway(),
		Catalog:     catalog,
	}, pipeline.WithStepDelay(cfg.StepDelay))
	runner := messaging.NewRunner(deps.Jobs, processor, logger.WithField("component", "job-runner"))

	rt, err := newQueueRuntime(cfg, runner.Handle, logger)
	if err != nil {
		return err
	}
	if err := rt.start(ctx); err != nil {
		return fmt.Errorf("start queue: %w", err)
	}
	defer func() {
		if err := rt.stop(); err != nil {
			logger.WithError(err).Warn("queue stopped with error")
		}
	}()

	outboxWorker := outbox.NewWorker(deps.Outbox, rt.publisher,
		outbox.WithDLQPublisher(rt.dlqPublisher),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
	)
	go outboxWorker.Run(ctx)

	cleanupWorker := jobs.NewCleanupWorker(deps.Jobs, jobs.WithInterval(cfg.JobCleanupInterval))
	go cleanupWorker.Run(ctx)

	healthHandler := health.NewHandler(version.String())
	healthHandler.RegisterChecker("storage", deps.HealthChecker())
	healthHandler.RegisterChecker("queue", rt.healthChecker())

	opsSrv := startOpsServer(ctx, cfg.OpsAddr, logger, healthHandler)

	restServer := rest.NewServer(cfg.HTTPAddr, rest.Dependencies{
		Orders:       deps.Orders,
		Customers:    deps.Customers,
		Suppliers:    deps.Suppliers,
		Countries:    deps.Countries,
		Translations: deps.Translations,
		Jobs:         deps.Jobs,
		Queue:        rt.queue,
		Outbox:       deps.Outbox,
		Timeline:     deps.Timeline,
	},
		rest.WithRequestTimeout(cfg.RequestTimeout),
		rest.WithJobMaxAttempts(cfg.JobMaxAttempts),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- restServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping http server")
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := restServer.Shutdown(stopCtx); err != nil {
			logger.WithError(err).Warn("http shutdown with error")
		}
		shutdownHTTP(opsSrv, logger)
		if err := rt.stop(); err != nil {
			logger.WithError(err).Warn("queue stopped with error")
		}
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(opsSrv, logger)
		if stopErr := rt.stop(); stopErr != nil {
			logger.WithError(stopErr).Warn("queue stopped with error")
		}
		return err
	}
}

// startOpsServer serves Prometheus metrics and the health endpoints on the
// operational address.
func startOpsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", health.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("ops server listening on %s (/metrics, /healthz, /readyz, /livez)", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("ops server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP stops an HTTP server with a bounded grace period.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("ops server shutdown with error")
	}
}
