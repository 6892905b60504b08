package domain

import "time"

// Country carries the locale and currency metadata used when talking to
// customers and suppliers from that country.
type Country struct {
	// Code is the ISO 3166-1 alpha-2 code and the primary key.
	Code string
	Name string
	// LanguageCode is the default language for the country (BCP 47).
	LanguageCode string
	// CurrencyCode is the ISO 4217 currency orders are usually priced in.
	CurrencyCode string
	// PhonePrefix is the international dial prefix, with the leading plus.
	PhonePrefix string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants checks the country fields and returns every violation found.
func (c *Country) ValidateInvariants() []error {
	var errs []error

	if !countryRe.MatchString(c.Code) {
		errs = append(errs, ErrCountryCodeInvalid)
	}
	if c.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if !languageRe.MatchString(c.LanguageCode) {
		errs = append(errs, ErrLanguageInvalid)
	}
	if !currencyRe.MatchString(c.CurrencyCode) {
		errs = append(errs, ErrCurrencyInvalid)
	}
	if !phonePrefixRe.MatchString(c.PhonePrefix) {
		errs = append(errs, ErrPhonePrefixInvalid)
	}

	return errs
}
