package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Field validation sentinels. Entity ValidateInvariants methods collect these
// so callers can report every violation at once.
var (
	ErrShopifyRefRequired       = errors.New("shopify_order_id is required")
	ErrCustomerRequired         = errors.New("customer_id is required")
	ErrCurrencyInvalid          = errors.New("currency must be a three letter ISO 4217 code")
	ErrOrderStatusInvalid       = errors.New("order status is not supported")
	ErrItemsRequired            = errors.New("order must contain at least one item")
	ErrAmountNegative           = errors.New("total_minor must be non-negative")
	ErrShippingNegative         = errors.New("shipping_minor must be non-negative")
	ErrItemSKURequired          = errors.New("item sku is required")
	ErrItemQtyInvalid           = errors.New("item qty must be greater than zero")
	ErrItemPriceInvalid         = errors.New("item price must be non-negative")
	ErrAmountMismatch           = errors.New("order total does not match items sum plus shipping")
	ErrNameRequired             = errors.New("name is required")
	ErrCompanyNameRequired      = errors.New("company_name is required")
	ErrEmailInvalid             = errors.New("email is not a valid address")
	ErrPhoneInvalid             = errors.New("phone must be in E.164 form")
	ErrPhonePrefixInvalid       = errors.New("phone_prefix must be a dial code with leading plus")
	ErrDocumentRequired         = errors.New("document is required")
	ErrDocumentInvalid          = errors.New("document does not match the country format")
	ErrLanguageInvalid          = errors.New("language must be a BCP 47 tag")
	ErrCountryCodeInvalid       = errors.New("country code must be ISO 3166-1 alpha-2")
	ErrRatingOutOfRange         = errors.New("rating must be between 0 and 5")
	ErrEndpointRequired         = errors.New("api_endpoint is required")
	ErrEndpointInvalid          = errors.New("api_endpoint must be an absolute URL")
	ErrTranslationKeyRequired   = errors.New("translation key is required")
	ErrTranslationValueRequired = errors.New("translation value is required")
	ErrJobTypeRequired          = errors.New("job type is required")
	ErrJobPayloadRequired       = errors.New("job payload is required")
	ErrJobStatusInvalid         = errors.New("job status is not supported")
	ErrJobProgressInvalid       = errors.New("job progress must be between 0 and 100")
)

// Repository and collaborator sentinels.
var (
	// ErrOrderNotFound is returned when an order does not exist in the repository.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCustomerNotFound is returned when a customer does not exist.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrSupplierNotFound is returned when a supplier does not exist.
	ErrSupplierNotFound = errors.New("supplier not found")
	// ErrCountryNotFound is returned when a country does not exist.
	ErrCountryNotFound = errors.New("country not found")
	// ErrTranslationNotFound is returned when a translation key has no row for a language.
	ErrTranslationNotFound = errors.New("translation not found")
	// ErrJobNotFound is returned when a job record does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrOrderVersionConflict signals an optimistic locking conflict on save.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrDuplicateOrder signals that the shopify reference is already registered.
	ErrDuplicateOrder = errors.New("order with this shopify reference already exists")
	// ErrDuplicateCustomer signals a unique constraint hit on customer creation.
	ErrDuplicateCustomer = errors.New("customer already exists")
	// ErrDuplicateSupplier signals a unique constraint hit on supplier creation.
	ErrDuplicateSupplier = errors.New("supplier already exists")
	// ErrDuplicateCountry signals that the country code is already registered.
	ErrDuplicateCountry = errors.New("country already exists")
	// ErrDuplicateTranslation signals that the (key, language) pair already exists.
	ErrDuplicateTranslation = errors.New("translation for this key and language already exists")
	// ErrNoSupplierAvailable means no active supplier could take the order.
	ErrNoSupplierAvailable = errors.New("no active supplier available")
	// ErrSupplierAPIFailure is a failure while registering the order with a supplier.
	ErrSupplierAPIFailure = errors.New("supplier api failure")
	// ErrNotificationFailure is a failure while delivering a customer notification.
	ErrNotificationFailure = errors.New("notification delivery failure")
	// ErrOutboxPublish is a failure while publishing a message from the outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict reports whether the error is an optimistic locking conflict.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// ErrorKind classifies an error for transport mapping. The HTTP layer turns
// kinds into status codes; nothing else should switch on them.
type ErrorKind string

const (
	ErrorKindValidation      ErrorKind = "validation"
	ErrorKindAuthentication  ErrorKind = "authentication"
	ErrorKindNotFound        ErrorKind = "not_found"
	ErrorKindConflict        ErrorKind = "conflict"
	ErrorKindExternalService ErrorKind = "external_service"
	ErrorKindRateLimit       ErrorKind = "rate_limit"
	ErrorKindInternal        ErrorKind = "internal"
)

// Error is the taxonomy error carried between service and transport layers.
// Code is a stable machine readable identifier, Message is operator facing.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	// Violations lists individual field problems for validation errors.
	Violations []string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Violations, "; "))
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a taxonomy error with an explicit kind.
func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// NewValidationError builds a validation error from the collected violations.
func NewValidationError(message string, violations []error) *Error {
	e := &Error{Kind: ErrorKindValidation, Code: "validation_failed", Message: message}
	for _, v := range violations {
		e.Violations = append(e.Violations, v.Error())
	}
	return e
}

// WrapError attaches a taxonomy classification to an underlying cause.
func WrapError(kind ErrorKind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// sentinelKinds maps repository and collaborator sentinels onto the taxonomy.
var sentinelKinds = []struct {
	target error
	kind   ErrorKind
	code   string
}{
	{ErrOrderNotFound, ErrorKindNotFound, "order_not_found"},
	{ErrCustomerNotFound, ErrorKindNotFound, "customer_not_found"},
	{ErrSupplierNotFound, ErrorKindNotFound, "supplier_not_found"},
	{ErrCountryNotFound, ErrorKindNotFound, "country_not_found"},
	{ErrTranslationNotFound, ErrorKindNotFound, "translation_not_found"},
	{ErrJobNotFound, ErrorKindNotFound, "job_not_found"},
	{ErrOrderVersionConflict, ErrorKindConflict, "version_conflict"},
	{ErrDuplicateOrder, ErrorKindConflict, "duplicate_order"},
	{ErrDuplicateCustomer, ErrorKindConflict, "duplicate_customer"},
	{ErrDuplicateSupplier, ErrorKindConflict, "duplicate_supplier"},
	{ErrDuplicateCountry, ErrorKindConflict, "duplicate_country"},
	{ErrDuplicateTranslation, ErrorKindConflict, "duplicate_translation"},
	{ErrNoSupplierAvailable, ErrorKindExternalService, "no_supplier_available"},
	{ErrSupplierAPIFailure, ErrorKindExternalService, "supplier_api_failure"},
	{ErrNotificationFailure, ErrorKindExternalService, "notification_failure"},
}

// Classify normalizes an arbitrary error into a taxonomy error. Storage
// implementations translate driver errors into the sentinels above before
// they reach this point.
func Classify(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}

	for _, m := range sentinelKinds {
		if errors.Is(err, m.target) {
			return &Error{Kind: m.kind, Code: m.code, Message: m.target.Error(), Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrorKindExternalService, Code: "deadline_exceeded", Message: "operation timed out", Err: err}
	}

	return &Error{Kind: ErrorKindInternal, Code: "internal_error", Message: "internal error", Err: err}
}
