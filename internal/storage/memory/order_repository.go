package memory

import (
	"sort"
	"sync"

	"github.com/pedidohub/backoffice/internal/domain"
)

// orderRepositoryInMemory is a simple in-memory OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
	// shopifyRefs enforces the unique storefront reference.
	shopifyRefs map[string]string
}

// NewOrderRepository returns an in-memory repository for local development and tests.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:       make(map[string]domain.Order),
		shopifyRefs: make(map[string]string),
	}
}

// Create stores a new order if the ID and shopify reference are free.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	if _, exists := r.shopifyRefs[order.ShopifyOrderID]; exists {
		return domain.ErrDuplicateOrder
	}
	// Store a copy to avoid surprising mutations from outside.
	order.Items = cloneItems(order.Items)
	r.items[order.ID] = order
	r.shopifyRefs[order.ShopifyOrderID] = order.ID
	return nil
}

// Get returns the order or ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Items = cloneItems(order.Items)
	return order, nil
}

// List returns a page of orders matching the filter, newest first, plus the
// total number of matches.
func (r *orderRepositoryInMemory) List(filter domain.OrderFilter, page domain.PageRequest) ([]domain.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		matched = append(matched, order)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	norm := page.Normalize()
	start := page.Offset()
	if start >= len(matched) {
		return []domain.Order{}, total, nil
	}
	end := start + norm.PerPage
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]domain.Order, 0, end-start)
	for _, order := range matched[start:end] {
		order.Items = cloneItems(order.Items)
		out = append(out, order)
	}
	return out, total, nil
}

// Save overwrites the order, checking the version (optimistic locking).
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	if order.ShopifyOrderID != current.ShopifyOrderID {
		if owner, exists := r.shopifyRefs[order.ShopifyOrderID]; exists && owner != order.ID {
			return domain.ErrDuplicateOrder
		}
		delete(r.shopifyRefs, current.ShopifyOrderID)
		r.shopifyRefs[order.ShopifyOrderID] = order.ID
	}
	// Bump the version before storing.
	order.Version++
	order.Items = cloneItems(order.Items)
	r.items[order.ID] = order
	return nil
}

// Stats aggregates counts and revenue over all stored orders. Cancelled and
// failed orders do not count towards revenue.
func (r *orderRepositoryInMemory) Stats() (domain.OrderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.OrderStats{
		CountByStatus:     make(map[domain.OrderStatus]int64),
		RevenueByCurrency: make(map[string]int64),
	}
	for _, order := range r.items {
		stats.CountByStatus[order.Status]++
		if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusFailed {
			continue
		}
		stats.RevenueByCurrency[order.Currency] += order.TotalMinor
	}
	return stats, nil
}

func cloneItems(items []domain.OrderItem) []domain.OrderItem {
	if items == nil {
		return nil
	}
	out := make([]domain.OrderItem, len(items))
	copy(out, items)
	return out
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
