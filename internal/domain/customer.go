package domain

import (
	"regexp"
	"time"
)

// Shared field format checks. Document formats are country specific and live
// in the i18n package; the domain layer only enforces shapes that hold for
// every country.
var (
	emailRe       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe       = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
	phonePrefixRe = regexp.MustCompile(`^\+[1-9][0-9]{0,3}$`)
	countryRe     = regexp.MustCompile(`^[A-Z]{2}$`)
	currencyRe    = regexp.MustCompile(`^[A-Z]{3}$`)
	languageRe    = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)
)

// Customer is the buyer an order is fulfilled for.
type Customer struct {
	ID    string
	Name  string
	Email string
	// Phone in E.164 form, including the country dial prefix.
	Phone string
	// Document is the national identification number (CPF, NIF, ...).
	Document string
	// PreferredLanguage is an optional BCP 47 tag; when empty the language is
	// resolved from the phone prefix and the country default.
	PreferredLanguage string
	CountryCode       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ValidateInvariants checks the customer fields and returns every violation found.
func (c *Customer) ValidateInvariants() []error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if !emailRe.MatchString(c.Email) {
		errs = append(errs, ErrEmailInvalid)
	}
	if !phoneRe.MatchString(c.Phone) {
		errs = append(errs, ErrPhoneInvalid)
	}
	if c.Document == "" {
		errs = append(errs, ErrDocumentRequired)
	}
	if c.PreferredLanguage != "" && !languageRe.MatchString(c.PreferredLanguage) {
		errs = append(errs, ErrLanguageInvalid)
	}
	if !countryRe.MatchString(c.CountryCode) {
		errs = append(errs, ErrCountryCodeInvalid)
	}

	return errs
}
