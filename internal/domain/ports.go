package domain

import (
	"context"
	"time"
)

// SupplierAPI registers orders with an external supplier system. Real
// integrations call the supplier's endpoint; the bundled client simulates the
// call with a fixed latency.
type SupplierAPI interface {
	// PlaceOrder forwards the order and returns the supplier's own reference.
	PlaceOrder(ctx context.Context, supplier Supplier, order Order) (string, error)
}

// NotificationChannel is how a message reaches the customer.
type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelSMS   NotificationChannel = "sms"
)

// Notification is one rendered customer-facing message.
type Notification struct {
	Recipient string
	Channel   NotificationChannel
	// Language the message was rendered in, for auditing.
	Language string
	Subject  string
	Body     string
}

// NotificationGateway delivers customer notifications.
type NotificationGateway interface {
	Send(ctx context.Context, notification Notification) error
}

// JobQueue hands jobs to the external queue. The queue owns delivery,
// redelivery and backoff; this system only enqueues and consumes.
type JobQueue interface {
	Enqueue(job Job) error
}

// OutboxPublisher publishes events from the transactional outbox.
type OutboxPublisher interface {
	// Publish pushes the event out; implementations must tolerate replays.
	Publish(event OutboxMessage) error
}

// PipelineStep names the order pipeline phases for metrics and logs.
type PipelineStep string

const (
	PipelineStepValidate       PipelineStep = "validate"
	PipelineStepCreate         PipelineStep = "create"
	PipelineStepAssignSupplier PipelineStep = "assign_supplier"
	PipelineStepNotify         PipelineStep = "notify"
)

// Order event types recorded on the timeline and relayed through the outbox.
const (
	EventOrderRegistered       = "order.registered"
	EventOrderSupplierAssigned = "order.supplier_assigned"
	EventOrderNotified         = "order.customer_notified"
	EventOrderCancelled        = "order.cancelled"
	EventOrderFailed           = "order.failed"
)

// OutboxMessage holds the payload of one event to publish.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats describes the current backlog of the transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
