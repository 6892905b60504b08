package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pedidohub/backoffice/internal/domain"
)

type supplierRepository struct {
	orm *gorm.DB
}

// NewSupplierRepository returns the PostgreSQL SupplierRepository.
func NewSupplierRepository(store *Store) domain.SupplierRepository {
	return &supplierRepository{orm: store.ORM()}
}

func (r *supplierRepository) Create(supplier domain.Supplier) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if supplier.ID == "" {
		supplier.ID = uuid.NewString()
	}
	row := supplierToRow(supplier)
	if err := r.orm.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSupplier
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (r *supplierRepository) Get(id string) (domain.Supplier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var row supplierRow
	if err := r.orm.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Supplier{}, domain.ErrSupplierNotFound
		}
		return domain.Supplier{}, fmt.Errorf("select supplier: %w", err)
	}
	return row.toDomain(), nil
}

func (r *supplierRepository) List(page domain.PageRequest) ([]domain.Supplier, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var total int64
	if err := r.orm.WithContext(ctx).Model(&supplierRow{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count suppliers: %w", err)
	}

	norm := page.Normalize()
	var rows []supplierRow
	if err := r.orm.WithContext(ctx).
		Order("company_name ASC, id ASC").
		Limit(norm.PerPage).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list suppliers: %w", err)
	}

	suppliers := make([]domain.Supplier, 0, len(rows))
	for _, row := range rows {
		suppliers = append(suppliers, row.toDomain())
	}
	return suppliers, total, nil
}

func (r *supplierRepository) Update(supplier domain.Supplier) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := supplierToRow(supplier)
	res := r.orm.WithContext(ctx).Model(&supplierRow{}).Where("id = ?", supplier.ID).Updates(map[string]any{
		"company_name":  row.CompanyName,
		"contact_email": row.ContactEmail,
		"phone":         row.Phone,
		"country_code":  row.CountryCode,
		"rating":        row.Rating,
		"api_endpoint":  row.APIEndpoint,
		"active":        row.Active,
	})
	if res.Error != nil {
		return fmt.Errorf("update supplier: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrSupplierNotFound
	}
	return nil
}

func (r *supplierRepository) ListActiveByCountry(countryCode string) ([]domain.Supplier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := r.orm.WithContext(ctx).Where("active = ?", true)
	if countryCode != "" {
		query = query.Where("country_code = ?", countryCode)
	}

	var rows []supplierRow
	if err := query.Order("rating DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list active suppliers: %w", err)
	}

	suppliers := make([]domain.Supplier, 0, len(rows))
	for _, row := range rows {
		suppliers = append(suppliers, row.toDomain())
	}
	return suppliers, nil
}

func (r *supplierRepository) CountActive() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var count int64
	if err := r.orm.WithContext(ctx).Model(&supplierRow{}).Where("active = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count active suppliers: %w", err)
	}
	return count, nil
}

var _ domain.SupplierRepository = (*supplierRepository)(nil)
