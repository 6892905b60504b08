package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pedidohub/backoffice/internal/domain"
)

type supplierRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Supplier
}

// NewSupplierRepository returns an in-memory SupplierRepository.
func NewSupplierRepository() domain.SupplierRepository {
	return &supplierRepositoryInMemory{items: make(map[string]domain.Supplier)}
}

func (r *supplierRepositoryInMemory) Create(supplier domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if supplier.ID == "" {
		supplier.ID = uuid.NewString()
	}
	if _, exists := r.items[supplier.ID]; exists {
		return domain.ErrDuplicateSupplier
	}

	now := time.Now().UTC()
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = now
	}
	supplier.UpdatedAt = now
	r.items[supplier.ID] = supplier
	return nil
}

func (r *supplierRepositoryInMemory) Get(id string) (domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	supplier, ok := r.items[id]
	if !ok {
		return domain.Supplier{}, domain.ErrSupplierNotFound
	}
	return supplier, nil
}

func (r *supplierRepositoryInMemory) List(page domain.PageRequest) ([]domain.Supplier, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Supplier, 0, len(r.items))
	for _, supplier := range r.items {
		all = append(all, supplier)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CompanyName < all[j].CompanyName })

	total := int64(len(all))
	start := page.Offset()
	if start >= len(all) {
		return []domain.Supplier{}, total, nil
	}
	end := start + page.Normalize().PerPage
	if end > len(all) {
		end = len(all)
	}
	out := make([]domain.Supplier, end-start)
	copy(out, all[start:end])
	return out, total, nil
}

func (r *supplierRepositoryInMemory) Update(supplier domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[supplier.ID]
	if !ok {
		return domain.ErrSupplierNotFound
	}

	supplier.CreatedAt = current.CreatedAt
	supplier.UpdatedAt = time.Now().UTC()
	r.items[supplier.ID] = supplier
	return nil
}

// ListActiveByCountry returns active suppliers for the country ordered by
// rating, best first. An empty code lists every active supplier.
func (r *supplierRepositoryInMemory) ListActiveByCountry(countryCode string) ([]domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Supplier, 0, len(r.items))
	for _, supplier := range r.items {
		if !supplier.Active {
			continue
		}
		if countryCode != "" && supplier.CountryCode != countryCode {
			continue
		}
		matched = append(matched, supplier)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Rating != matched[j].Rating {
			return matched[i].Rating > matched[j].Rating
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, nil
}

func (r *supplierRepositoryInMemory) CountActive() (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, supplier := range r.items {
		if supplier.Active {
			count++
		}
	}
	return count, nil
}

var _ domain.SupplierRepository = (*supplierRepositoryInMemory)(nil)
