package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pedidohub/backoffice/internal/domain"
)

type customerRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[string]domain.Customer
	emails map[string]string
}

// NewCustomerRepository returns an in-memory CustomerRepository.
func NewCustomerRepository() domain.CustomerRepository {
	return &customerRepositoryInMemory{
		items:  make(map[string]domain.Customer),
		emails: make(map[string]string),
	}
}

func (r *customerRepositoryInMemory) Create(customer domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	email := strings.ToLower(customer.Email)
	if _, exists := r.items[customer.ID]; exists {
		return domain.ErrDuplicateCustomer
	}
	if _, exists := r.emails[email]; exists {
		return domain.ErrDuplicateCustomer
	}

	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	r.items[customer.ID] = customer
	r.emails[email] = customer.ID
	return nil
}

func (r *customerRepositoryInMemory) Get(id string) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.items[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (r *customerRepositoryInMemory) List(page domain.PageRequest) ([]domain.Customer, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Customer, 0, len(r.items))
	for _, customer := range r.items {
		all = append(all, customer)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	return pageOfCustomers(all, page), int64(len(all)), nil
}

func (r *customerRepositoryInMemory) Update(customer domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[customer.ID]
	if !ok {
		return domain.ErrCustomerNotFound
	}

	oldEmail := strings.ToLower(current.Email)
	newEmail := strings.ToLower(customer.Email)
	if oldEmail != newEmail {
		if owner, exists := r.emails[newEmail]; exists && owner != customer.ID {
			return domain.ErrDuplicateCustomer
		}
		delete(r.emails, oldEmail)
		r.emails[newEmail] = customer.ID
	}

	customer.CreatedAt = current.CreatedAt
	customer.UpdatedAt = time.Now().UTC()
	r.items[customer.ID] = customer
	return nil
}

func pageOfCustomers(all []domain.Customer, page domain.PageRequest) []domain.Customer {
	start := page.Offset()
	if start >= len(all) {
		return []domain.Customer{}
	}
	end := start + page.Normalize().PerPage
	if end > len(all) {
		end = len(all)
	}
	out := make([]domain.Customer, end-start)
	copy(out, all[start:end])
	return out
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
