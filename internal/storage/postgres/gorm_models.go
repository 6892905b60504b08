package postgres

import (
	"time"

	"github.com/pedidohub/backoffice/internal/domain"
)

// The CRUD resources (customers, suppliers, countries, translations) are
// mapped through GORM; the tables themselves come from the SQL migrations,
// so the models carry only the column bindings.

type customerRow struct {
	ID                string    `gorm:"column:id;primaryKey;type:uuid"`
	Name              string    `gorm:"column:name"`
	Email             string    `gorm:"column:email;uniqueIndex"`
	Phone             string    `gorm:"column:phone"`
	Document          string    `gorm:"column:document"`
	PreferredLanguage string    `gorm:"column:preferred_language"`
	CountryCode       string    `gorm:"column:country_code;type:char(2)"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (customerRow) TableName() string { return "customers" }

func (r customerRow) toDomain() domain.Customer {
	return domain.Customer{
		ID:                r.ID,
		Name:              r.Name,
		Email:             r.Email,
		Phone:             r.Phone,
		Document:          r.Document,
		PreferredLanguage: r.PreferredLanguage,
		CountryCode:       r.CountryCode,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func customerToRow(c domain.Customer) customerRow {
	return customerRow{
		ID:                c.ID,
		Name:              c.Name,
		Email:             c.Email,
		Phone:             c.Phone,
		Document:          c.Document,
		PreferredLanguage: c.PreferredLanguage,
		CountryCode:       c.CountryCode,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

type supplierRow struct {
	ID           string    `gorm:"column:id;primaryKey;type:uuid"`
	CompanyName  string    `gorm:"column:company_name"`
	ContactEmail string    `gorm:"column:contact_email"`
	Phone        string    `gorm:"column:phone"`
	CountryCode  string    `gorm:"column:country_code;type:char(2);index"`
	Rating       float64   `gorm:"column:rating"`
	APIEndpoint  string    `gorm:"column:api_endpoint"`
	Active       bool      `gorm:"column:active"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (supplierRow) TableName() string { return "suppliers" }

func (r supplierRow) toDomain() domain.Supplier {
	return domain.Supplier{
		ID:           r.ID,
		CompanyName:  r.CompanyName,
		ContactEmail: r.ContactEmail,
		Phone:        r.Phone,
		CountryCode:  r.CountryCode,
		Rating:       r.Rating,
		APIEndpoint:  r.APIEndpoint,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func supplierToRow(s domain.Supplier) supplierRow {
	return supplierRow{
		ID:           s.ID,
		CompanyName:  s.CompanyName,
		ContactEmail: s.ContactEmail,
		Phone:        s.Phone,
		CountryCode:  s.CountryCode,
		Rating:       s.Rating,
		APIEndpoint:  s.APIEndpoint,
		Active:       s.Active,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type countryRow struct {
	Code         string    `gorm:"column:code;primaryKey;type:char(2)"`
	Name         string    `gorm:"column:name"`
	LanguageCode string    `gorm:"column:language_code"`
	CurrencyCode string    `gorm:"column:currency_code;type:char(3)"`
	PhonePrefix  string    `gorm:"column:phone_prefix"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (countryRow) TableName() string { return "countries" }

func (r countryRow) toDomain() domain.Country {
	return domain.Country{
		Code:         r.Code,
		Name:         r.Name,
		LanguageCode: r.LanguageCode,
		CurrencyCode: r.CurrencyCode,
		PhonePrefix:  r.PhonePrefix,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func countryToRow(c domain.Country) countryRow {
	return countryRow{
		Code:         c.Code,
		Name:         c.Name,
		LanguageCode: c.LanguageCode,
		CurrencyCode: c.CurrencyCode,
		PhonePrefix:  c.PhonePrefix,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

type translationRow struct {
	ID           string    `gorm:"column:id;primaryKey;type:uuid"`
	Key          string    `gorm:"column:key;index:idx_translations_key_language,unique"`
	LanguageCode string    `gorm:"column:language_code;index:idx_translations_key_language,unique"`
	Value        string    `gorm:"column:value"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (translationRow) TableName() string { return "translations" }

func (r translationRow) toDomain() domain.Translation {
	return domain.Translation{
		ID:           r.ID,
		Key:          r.Key,
		LanguageCode: r.LanguageCode,
		Value:        r.Value,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func translationToRow(t domain.Translation) translationRow {
	return translationRow{
		ID:           t.ID,
		Key:          t.Key,
		LanguageCode: t.LanguageCode,
		Value:        t.Value,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
