package domain

import "time"

// PageRequest carries the pagination parameters of a list call.
type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize clamps the request to sane bounds: page >= 1, 1 <= per_page <= 100,
// defaulting to 20 per page.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 20
	}
	if p.PerPage > 100 {
		p.PerPage = 100
	}
	return p
}

// Offset returns the row offset for the normalized request.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

// OrderFilter narrows order list queries.
type OrderFilter struct {
	Status     OrderStatus
	CustomerID string
}

// OrderStats aggregates what the dashboard shows about orders.
type OrderStats struct {
	CountByStatus     map[OrderStatus]int64
	RevenueByCurrency map[string]int64
}

// OrderRepository describes the order storage requirements.
type OrderRepository interface {
	// Create stores a new order. Returns ErrDuplicateOrder when the shopify
	// reference is taken and an error when the ID already exists.
	Create(order Order) error
	// Get returns the order by ID or ErrOrderNotFound.
	Get(id string) (Order, error)
	// List returns a page of orders matching the filter plus the total count.
	List(filter OrderFilter, page PageRequest) ([]Order, int64, error)
	// Save applies updates under optimistic locking; returns
	// ErrOrderVersionConflict when the stored version moved on.
	Save(order Order) error
	// Stats aggregates counts and revenue for the dashboard.
	Stats() (OrderStats, error)
}

// CustomerRepository stores customers.
type CustomerRepository interface {
	Create(customer Customer) error
	Get(id string) (Customer, error)
	List(page PageRequest) ([]Customer, int64, error)
	Update(customer Customer) error
}

// SupplierRepository stores suppliers.
type SupplierRepository interface {
	Create(supplier Supplier) error
	Get(id string) (Supplier, error)
	List(page PageRequest) ([]Supplier, int64, error)
	Update(supplier Supplier) error
	// ListActiveByCountry returns active suppliers for a country ordered by
	// rating, best first. An empty country code lists all active suppliers.
	ListActiveByCountry(countryCode string) ([]Supplier, error)
	// CountActive returns the number of active suppliers for the dashboard.
	CountActive() (int64, error)
}

// CountryRepository stores country locale metadata keyed by ISO code.
type CountryRepository interface {
	Create(country Country) error
	Get(code string) (Country, error)
	List(page PageRequest) ([]Country, int64, error)
	Update(country Country) error
}

// TranslationRepository stores localized strings.
type TranslationRepository interface {
	Create(translation Translation) error
	Get(id string) (Translation, error)
	// Lookup resolves a key for one language or returns ErrTranslationNotFound.
	Lookup(key, languageCode string) (Translation, error)
	List(page PageRequest) ([]Translation, int64, error)
	Update(translation Translation) error
}

// JobRepository stores queue job records; the external queue reports status
// and progress through it.
type JobRepository interface {
	// Enqueue inserts a queued record and returns it with timestamps set.
	Enqueue(job Job) (Job, error)
	// Get returns the job by ID or ErrJobNotFound.
	Get(id string) (Job, error)
	// MarkActive flags the job as picked up and bumps the attempt counter.
	MarkActive(id string, attempt int) error
	// SetProgress stores the percentage reported by the pipeline.
	SetProgress(id string, progress int) error
	// SetOrderID links the job to the order the pipeline created.
	SetOrderID(id, orderID string) error
	// MarkCompleted finishes the job at 100 percent.
	MarkCompleted(id string) error
	// MarkFailed records the terminal failure reason.
	MarkFailed(id string, lastError string) error
	// DeleteExpired prunes finished records past their TTL, at most limit rows.
	DeleteExpired(before time.Time, limit int) (int, error)
	// CountByStatus aggregates job counts for the dashboard.
	CountByStatus() (map[JobStatus]int64, error)
}

// OutboxRepository stores events for later publication.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository stores order lifecycle events.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}
