package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pedidohub/backoffice/internal/domain"
)

type countryRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Country
}

// NewCountryRepository returns an in-memory CountryRepository keyed by ISO code.
func NewCountryRepository() domain.CountryRepository {
	return &countryRepositoryInMemory{items: make(map[string]domain.Country)}
}

func (r *countryRepositoryInMemory) Create(country domain.Country) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := strings.ToUpper(country.Code)
	if _, exists := r.items[code]; exists {
		return domain.ErrDuplicateCountry
	}

	now := time.Now().UTC()
	country.Code = code
	if country.CreatedAt.IsZero() {
		country.CreatedAt = now
	}
	country.UpdatedAt = now
	r.items[code] = country
	return nil
}

func (r *countryRepositoryInMemory) Get(code string) (domain.Country, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	country, ok := r.items[strings.ToUpper(code)]
	if !ok {
		return domain.Country{}, domain.ErrCountryNotFound
	}
	return country, nil
}

func (r *countryRepositoryInMemory) List(page domain.PageRequest) ([]domain.Country, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Country, 0, len(r.items))
	for _, country := range r.items {
		all = append(all, country)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })

	total := int64(len(all))
	start := page.Offset()
	if start >= len(all) {
		return []domain.Country{}, total, nil
	}
	end := start + page.Normalize().PerPage
	if end > len(all) {
		end = len(all)
	}
	out := make([]domain.Country, end-start)
	copy(out, all[start:end])
	return out, total, nil
}

func (r *countryRepositoryInMemory) Update(country domain.Country) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := strings.ToUpper(country.Code)
	current, ok := r.items[code]
	if !ok {
		return domain.ErrCountryNotFound
	}

	country.Code = code
	country.CreatedAt = current.CreatedAt
	country.UpdatedAt = time.Now().UTC()
	r.items[code] = country
	return nil
}

var _ domain.CountryRepository = (*countryRepositoryInMemory)(nil)
