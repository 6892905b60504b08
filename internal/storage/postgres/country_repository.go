package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pedidohub/backoffice/internal/domain"
)

type countryRepository struct {
	orm *gorm.DB
}

// NewCountryRepository returns the PostgreSQL CountryRepository.
func NewCountryRepository(store *Store) domain.CountryRepository {
	return &countryRepository{orm: store.ORM()}
}

func (r *countryRepository) Create(country domain.Country) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	country.Code = strings.ToUpper(country.Code)
	row := countryToRow(country)
	if err := r.orm.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCountry
		}
		return fmt.Errorf("insert country: %w", err)
	}
	return nil
}

func (r *countryRepository) Get(code string) (domain.Country, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var row countryRow
	if err := r.orm.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Country{}, domain.ErrCountryNotFound
		}
		return domain.Country{}, fmt.Errorf("select country: %w", err)
	}
	return row.toDomain(), nil
}

func (r *countryRepository) List(page domain.PageRequest) ([]domain.Country, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var total int64
	if err := r.orm.WithContext(ctx).Model(&countryRow{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count countries: %w", err)
	}

	norm := page.Normalize()
	var rows []countryRow
	if err := r.orm.WithContext(ctx).
		Order("code ASC").
		Limit(norm.PerPage).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list countries: %w", err)
	}

	countries := make([]domain.Country, 0, len(rows))
	for _, row := range rows {
		countries = append(countries, row.toDomain())
	}
	return countries, total, nil
}

func (r *countryRepository) Update(country domain.Country) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := countryToRow(country)
	res := r.orm.WithContext(ctx).Model(&countryRow{}).Where("code = ?", strings.ToUpper(country.Code)).Updates(map[string]any{
		"name":          row.Name,
		"language_code": row.LanguageCode,
		"currency_code": row.CurrencyCode,
		"phone_prefix":  row.PhonePrefix,
	})
	if res.Error != nil {
		return fmt.Errorf("update country: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCountryNotFound
	}
	return nil
}

var _ domain.CountryRepository = (*countryRepository)(nil)
