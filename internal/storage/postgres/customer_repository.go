package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pedidohub/backoffice/internal/domain"
)

type customerRepository struct {
	orm *gorm.DB
}

// NewCustomerRepository returns the PostgreSQL CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{orm: store.ORM()}
}

func (r *customerRepository) Create(customer domain.Customer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	row := customerToRow(customer)
	if err := r.orm.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCustomer
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *customerRepository) Get(id string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var row customerRow
	if err := r.orm.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return row.toDomain(), nil
}

func (r *customerRepository) List(page domain.PageRequest) ([]domain.Customer, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var total int64
	if err := r.orm.WithContext(ctx).Model(&customerRow{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	norm := page.Normalize()
	var rows []customerRow
	if err := r.orm.WithContext(ctx).
		Order("name ASC, id ASC").
		Limit(norm.PerPage).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}

	customers := make([]domain.Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, row.toDomain())
	}
	return customers, total, nil
}

func (r *customerRepository) Update(customer domain.Customer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := customerToRow(customer)
	res := r.orm.WithContext(ctx).Model(&customerRow{}).Where("id = ?", customer.ID).Updates(map[string]any{
		"name":               row.Name,
		"email":              row.Email,
		"phone":              row.Phone,
		"document":           row.Document,
		"preferred_language": row.PreferredLanguage,
		"country_code":       row.CountryCode,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.ErrDuplicateCustomer
		}
		return fmt.Errorf("update customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
