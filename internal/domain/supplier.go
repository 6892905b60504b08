package domain

import (
	"net/url"
	"time"
)

// Supplier is a fulfillment partner orders are forwarded to.
type Supplier struct {
	ID           string
	CompanyName  string
	ContactEmail string
	Phone        string
	CountryCode  string
	// Rating is the operator-maintained performance score, 0 to 5. The
	// pipeline prefers the highest rated active supplier for a country.
	Rating float64
	// APIEndpoint is where the supplier accepts order registrations.
	APIEndpoint string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants checks the supplier fields and returns every violation found.
func (s *Supplier) ValidateInvariants() []error {
	var errs []error

	if s.CompanyName == "" {
		errs = append(errs, ErrCompanyNameRequired)
	}
	if !emailRe.MatchString(s.ContactEmail) {
		errs = append(errs, ErrEmailInvalid)
	}
	if s.Phone != "" && !phoneRe.MatchString(s.Phone) {
		errs = append(errs, ErrPhoneInvalid)
	}
	if !countryRe.MatchString(s.CountryCode) {
		errs = append(errs, ErrCountryCodeInvalid)
	}
	if s.Rating < 0 || s.Rating > 5 {
		errs = append(errs, ErrRatingOutOfRange)
	}
	if s.APIEndpoint == "" {
		errs = append(errs, ErrEndpointRequired)
	} else if u, err := url.Parse(s.APIEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ErrEndpointInvalid)
	}

	return errs
}
