package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/i18n"
	"github.com/pedidohub/backoffice/internal/metrics"
)

const defaultStepDelay = 150 * time.Millisecond

// ImportPayload is the raw order submission an order.process job carries.
type ImportPayload struct {
	ShopifyOrderID string       `json:"shopify_order_id"`
	CustomerID     string       `json:"customer_id"`
	Currency       string       `json:"currency"`
	TotalMinor     int64        `json:"total_minor"`
	ShippingMinor  int64        `json:"shipping_minor"`
	Notes          string       `json:"notes,omitempty"`
	Items          []ImportItem `json:"items"`
}

// ImportItem is one order line inside an import payload.
type ImportItem struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

// toOrder builds the unsaved order the payload describes.
func (p ImportPayload) toOrder() domain.Order {
	items := make([]domain.OrderItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, domain.OrderItem{
			SKU:        item.SKU,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}

	return domain.Order{
		ShopifyOrderID: p.ShopifyOrderID,
		CustomerID:     p.CustomerID,
		Status:         domain.OrderStatusValidated,
		Currency:       p.Currency,
		TotalMinor:     p.TotalMinor,
		ShippingMinor:  p.ShippingMinor,
		Notes:          p.Notes,
		Items:          items,
	}
}

// ProgressFunc receives the pipeline progress for the queue's per-job
// progress reporting.
type ProgressFunc func(progress int)

// Processor runs the four step order pipeline for one job at a time.
type Processor interface {
	// Process executes validate, create, assign supplier and notify in order.
	// On failure it logs with full context and returns the error; redelivery
	// is the queue's business.
	Process(ctx context.Context, job domain.Job, report ProgressFunc) error
	// FailOrder flags an already created order as failed once the queue gave
	// up redelivering its job.
	FailOrder(orderID, reason string)
}

// Deps bundles the pipeline collaborators.
type Deps struct {
	Orders      domain.OrderRepository
	Customers   domain.CustomerRepository
	Suppliers   domain.SupplierRepository
	Countries   domain.CountryRepository
	Jobs        domain.JobRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	SupplierAPI domain.SupplierAPI
	Notifier    domain.NotificationGateway
	Catalog     *i18n.Catalog
}

// ProcessorOptions carries the tunables of the processor.
type ProcessorOptions struct {
	Logger *log.Entry
	// StepDelay is the fixed simulated-integration delay before each step.
	StepDelay time.Duration
}

// Option configures the processor.
type Option func(*ProcessorOptions)

// WithLogger sets the processor logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *ProcessorOptions) {
		opts.Logger = logger
	}
}

// WithStepDelay sets the simulated delay run before every step.
func WithStepDelay(delay time.Duration) Option {
	return func(opts *ProcessorOptions) {
		opts.StepDelay = delay
	}
}

type processor struct {
	deps      Deps
	logger    *log.Entry
	metrics   *metrics.PipelineMetrics
	tracer    trace.Tracer
	stepDelay time.Duration
}

// NewProcessor builds the working pipeline processor.
func NewProcessor(deps Deps, options ...Option) Processor {
	p := newProcessor(deps, options...)
	p.metrics = metrics.NewPipelineMetrics()
	return p
}

// NewProcessorWithoutMetrics builds a processor that skips metrics recording,
// for tests.
func NewProcessorWithoutMetrics(deps Deps, options ...Option) Processor {
	return newProcessor(deps, options...)
}

func newProcessor(deps Deps, options ...Option) *processor {
	opts := ProcessorOptions{StepDelay: defaultStepDelay}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "pipeline")
	}
	if opts.StepDelay < 0 {
		opts.StepDelay = 0
	}

	return &processor{
		deps:      deps,
		logger:    logger,
		tracer:    otel.Tracer("backoffice/pipeline"),
		stepDelay: opts.StepDelay,
	}
}

// run carries the state the steps pass to each other.
type run struct {
	job      domain.Job
	logger   *log.Entry
	payload  ImportPayload
	customer domain.Customer
	country  domain.Country
	order    domain.Order
	supplier domain.Supplier
}

type pipelineStep struct {
	name     domain.PipelineStep
	progress int
	exec     func(ctx context.Context, st *run) error
}

func (p *processor) Process(ctx context.Context, job domain.Job, report ProgressFunc) error {
	start := time.Now()
	if report == nil {
		report = func(int) {}
	}

	if p.metrics != nil {
		p.metrics.RecordJobStarted()
		defer func() {
			p.metrics.RecordJobDuration(time.Since(start))
			p.metrics.RecordJobFinished()
		}()
	}

	st := &run{
		job: job,
		logger: p.logger.WithFields(log.Fields{
			"job_id":   job.ID,
			"job_type": string(job.Type),
			"attempt":  job.Attempts,
		}),
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("job.id", job.ID)))
	defer span.End()

	if job.Type != domain.JobTypeOrderProcess {
		err := domain.NewError(domain.ErrorKindValidation, "unsupported_job_type",
			fmt.Sprintf("job type %q is not supported", job.Type))
		st.logger.WithError(err).Error("job rejected")
		if p.metrics != nil {
			p.metrics.RecordJobFailed()
		}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	steps := []pipelineStep{
		{name: domain.PipelineStepValidate, progress: 25, exec: p.validate},
		{name: domain.PipelineStepCreate, progress: 50, exec: p.create},
		{name: domain.PipelineStepAssignSupplier, progress: 75, exec: p.assignSupplier},
		{name: domain.PipelineStepNotify, progress: 100, exec: p.notify},
	}

	for _, step := range steps {
		if err := p.runStep(ctx, st, step); err != nil {
			st.logger.WithError(err).WithFields(log.Fields{
				"step":     string(step.name),
				"order_id": st.order.ID,
			}).Error("pipeline step failed")
			if p.metrics != nil {
				p.metrics.RecordJobFailed()
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, string(step.name))
			return err
		}

		report(step.progress)
		if p.metrics != nil {
			p.metrics.RecordProgress(step.progress)
		}
	}

	st.logger.WithField("order_id", st.order.ID).Info("pipeline completed")
	if p.metrics != nil {
		p.metrics.RecordJobCompleted()
	}
	return nil
}

// runStep pauses for the simulated integration delay, then executes the step
// under its own span.
func (p *processor) runStep(ctx context.Context, st *run, step pipelineStep) error {
	if err := p.pause(ctx); err != nil {
		return err
	}

	ctx, span := p.tracer.Start(ctx, "pipeline."+string(step.name))
	defer span.End()

	start := time.Now()
	err := step.exec(ctx, st)
	if p.metrics != nil {
		p.metrics.RecordStepDuration(string(step.name), time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", step.name, err)
	}
	return nil
}

func (p *processor) pause(ctx context.Context) error {
	if p.stepDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.stepDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// validate decodes the payload, checks the order fields, and verifies the
// customer exists with a document valid for their country.
func (p *processor) validate(ctx context.Context, st *run) error {
	var payload ImportPayload
	if err := json.Unmarshal(st.job.Payload, &payload); err != nil {
		return domain.WrapError(domain.ErrorKindValidation, "invalid_payload",
			"order payload is not valid JSON", err)
	}
	st.payload = payload
	st.order = payload.toOrder()

	if violations := st.order.ValidateInvariants(); len(violations) > 0 {
		return domain.NewValidationError("order payload failed validation", violations)
	}

	customer, err := p.deps.Customers.Get(payload.CustomerID)
	if err != nil {
		return err
	}
	st.customer = customer

	if err := i18n.ValidateDocument(customer.CountryCode, customer.Document); err != nil {
		return domain.NewValidationError("customer document rejected", []error{err})
	}

	// A missing country row only costs the notify step its default language.
	country, err := p.deps.Countries.Get(customer.CountryCode)
	if err != nil && !errors.Is(err, domain.ErrCountryNotFound) {
		return err
	}
	st.country = country

	st.logger.WithFields(log.Fields{
		"shopify_order_id": payload.ShopifyOrderID,
		"customer_id":      customer.ID,
	}).Debug("order payload validated")
	return nil
}

// create persists the order and links it to the job record.
func (p *processor) create(ctx context.Context, st *run) error {
	now := time.Now().UTC()

	order := st.order
	order.ID = uuid.NewString()
	order.Status = domain.OrderStatusRegistered
	order.Version = 0
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = uuid.NewString()
		order.Items[i].CreatedAt = now
	}

	if err := p.deps.Orders.Create(order); err != nil {
		return err
	}
	st.order = order
	st.logger = st.logger.WithField("order_id", order.ID)

	// Losing the job link is an inconvenience, not a reason to fail the order.
	if err := p.deps.Jobs.SetOrderID(st.job.ID, order.ID); err != nil {
		st.logger.WithError(err).Warn("failed to link job to order")
	}

	p.emitEvent(st.logger, &st.order, domain.EventOrderRegistered, map[string]any{
		"shopify_order_id": order.ShopifyOrderID,
		"customer_id":      order.CustomerID,
		"total_minor":      order.TotalMinor,
		"currency":         order.Currency,
	})
	return nil
}

// assignSupplier picks the best rated active supplier for the customer's
// country, registers the order with it, and moves the order forward.
func (p *processor) assignSupplier(ctx context.Context, st *run) error {
	suppliers, err := p.deps.Suppliers.ListActiveByCountry(st.customer.CountryCode)
	if err != nil {
		return err
	}
	if len(suppliers) == 0 {
		// No local supplier; any active supplier can take the order.
		suppliers, err = p.deps.Suppliers.ListActiveByCountry("")
		if err != nil {
			return err
		}
	}
	if len(suppliers) == 0 {
		return domain.ErrNoSupplierAvailable
	}
	supplier := suppliers[0]

	externalRef, err := p.deps.SupplierAPI.PlaceOrder(ctx, supplier, st.order)
	if err != nil {
		return err
	}
	st.supplier = supplier

	if err := p.updateOrder(st.logger, &st.order, func(order *domain.Order) {
		order.SupplierID = supplier.ID
		order.Status = domain.OrderStatusSupplierAssigned
	}); err != nil {
		return err
	}

	p.emitEvent(st.logger, &st.order, domain.EventOrderSupplierAssigned, map[string]any{
		"supplier_id":  supplier.ID,
		"external_ref": externalRef,
	})
	return nil
}

// notify renders the confirmation in the customer's language and delivers it.
func (p *processor) notify(ctx context.Context, st *run) error {
	tag := i18n.Resolve(st.customer.PreferredLanguage, st.customer.Phone, st.country.LanguageCode)

	vars := map[string]string{
		"customer_name": st.customer.Name,
		"order_id":      st.order.ShopifyOrderID,
		"supplier_name": st.supplier.CompanyName,
		"total":         formatMinor(st.order.TotalMinor),
		"currency":      st.order.Currency,
	}

	notification := domain.Notification{
		Recipient: st.customer.Email,
		Channel:   domain.NotificationChannelEmail,
		Language:  tag.String(),
		Subject:   p.deps.Catalog.Render(i18n.KeyOrderConfirmationSubject, tag, vars),
		Body:      p.deps.Catalog.Render(i18n.KeyOrderConfirmationBody, tag, vars),
	}
	if notification.Recipient == "" {
		notification.Recipient = st.customer.Phone
		notification.Channel = domain.NotificationChannelSMS
	}

	if err := p.deps.Notifier.Send(ctx, notification); err != nil {
		return err
	}

	if err := p.updateOrder(st.logger, &st.order, func(order *domain.Order) {
		order.Status = domain.OrderStatusNotified
	}); err != nil {
		return err
	}

	p.emitEvent(st.logger, &st.order, domain.EventOrderNotified, map[string]any{
		"language": notification.Language,
		"channel":  string(notification.Channel),
	})
	return nil
}

// FailOrder moves an order to failed after the queue stopped redelivering the
// job that was processing it.
func (p *processor) FailOrder(orderID, reason string) {
	logger := p.logger.WithField("order_id", orderID)

	order, err := p.deps.Orders.Get(orderID)
	if err != nil {
		logger.WithError(err).Warn("order not found for failure flag")
		return
	}
	if order.Status == domain.OrderStatusFailed || order.Status == domain.OrderStatusCancelled {
		return
	}

	if err := p.updateOrder(logger, &order, func(order *domain.Order) {
		order.Status = domain.OrderStatusFailed
	}); err != nil {
		logger.WithError(err).Error("failed to flag order as failed")
		return
	}

	p.emitEvent(logger, &order, domain.EventOrderFailed, map[string]any{
		"reason": reason,
	})
}

// updateOrder saves the order under optimistic locking, reloading a fresh
// copy and reapplying the change on version conflicts.
func (p *processor) updateOrder(logger *log.Entry, order *domain.Order, apply func(*domain.Order)) error {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		apply(order)
		order.UpdatedAt = time.Now().UTC()
		prevVersion := order.Version

		if err := p.deps.Orders.Save(*order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				logger.WithFields(log.Fields{
					"attempt": attempt + 1,
					"version": order.Version,
				}).Warn("version conflict, retrying with a fresh copy")

				fresh, loadErr := p.deps.Orders.Get(order.ID)
				if loadErr != nil {
					logger.WithError(loadErr).Error("failed to reload order after conflict")
					return loadErr
				}
				*order = fresh

				time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			return err
		}

		order.Version = prevVersion + 1
		return nil
	}

	return domain.ErrOrderVersionConflict
}

// emitEvent hands the event to the outbox and the timeline. Bookkeeping
// trouble is logged, never returned: events must not fail the pipeline.
func (p *processor) emitEvent(logger *log.Entry, order *domain.Order, eventType string, payload map[string]any) {
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["order_id"] = order.ID
	payload["status"] = string(order.Status)
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).WithField("event", eventType).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := p.deps.Outbox.Enqueue(msg); err != nil {
		logger.WithError(err).WithField("event", eventType).Error("enqueue event failed")
	} else if p.metrics != nil {
		p.metrics.RecordOutboxEvent()
	}

	reason, _ := payload["reason"].(string)
	event := domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     eventType,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := p.deps.Timeline.Append(event); err != nil {
		logger.WithError(err).WithField("event", eventType).Warn("append timeline event failed")
	} else if p.metrics != nil {
		p.metrics.RecordTimelineEvent()
	}
}

// formatMinor renders a minor-unit amount as a decimal string. Every
// supported currency uses two decimal places.
func formatMinor(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

var _ Processor = (*processor)(nil)
