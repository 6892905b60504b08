package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/i18n"
)

type customerPayload struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Document          string `json:"document"`
	PreferredLanguage string `json:"preferred_language"`
	CountryCode       string `json:"country_code"`
}

type customerPatchPayload struct {
	Name              *string `json:"name"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	Document          *string `json:"document"`
	PreferredLanguage *string `json:"preferred_language"`
	CountryCode       *string `json:"country_code"`
}

type customerResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Document          string    `json:"document"`
	PreferredLanguage string    `json:"preferred_language,omitempty"`
	CountryCode       string    `json:"country_code"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newCustomerResponse(customer domain.Customer) customerResponse {
	return customerResponse{
		ID:                customer.ID,
		Name:              customer.Name,
		Email:             customer.Email,
		Phone:             customer.Phone,
		Document:          customer.Document,
		PreferredLanguage: customer.PreferredLanguage,
		CountryCode:       customer.CountryCode,
		CreatedAt:         customer.CreatedAt,
		UpdatedAt:         customer.UpdatedAt,
	}
}

type customerHandlers struct {
	customers domain.CustomerRepository
	logger    *log.Entry
}

func (h *customerHandlers) register(router *mux.Router) {
	router.HandleFunc("/customers", h.list).Methods(http.MethodGet)
	router.HandleFunc("/customers", h.create).Methods(http.MethodPost)
	router.HandleFunc("/customers/{id}", h.get).Methods(http.MethodGet)
	router.HandleFunc("/customers/{id}", h.update).Methods(http.MethodPut)
	router.HandleFunc("/customers/{id}", h.patch).Methods(http.MethodPatch)
}

func (h *customerHandlers) list(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	customers, total, err := h.customers.List(page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]customerResponse, 0, len(customers))
	for _, customer := range customers {
		data = append(data, newCustomerResponse(customer))
	}
	writeList(w, data, page, total)
}

func (h *customerHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req customerPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	customer := domain.Customer{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Document:          req.Document,
		PreferredLanguage: req.PreferredLanguage,
		CountryCode:       req.CountryCode,
	}
	if violations := customerViolations(customer); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("customer validation failed", violations))
		return
	}

	if err := h.customers.Create(customer); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := h.customers.Get(customer.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, newCustomerResponse(stored))
}

func (h *customerHandlers) get(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newCustomerResponse(customer))
}

func (h *customerHandlers) update(w http.ResponseWriter, r *http.Request) {
	var req customerPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	customer, err := h.customers.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	customer.Name = req.Name
	customer.Email = req.Email
	customer.Phone = req.Phone
	customer.Document = req.Document
	customer.PreferredLanguage = req.PreferredLanguage
	customer.CountryCode = req.CountryCode

	h.saveAndRespond(w, customer)
}

func (h *customerHandlers) patch(w http.ResponseWriter, r *http.Request) {
	var req customerPatchPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	customer, err := h.customers.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Document != nil {
		customer.Document = *req.Document
	}
	if req.PreferredLanguage != nil {
		customer.PreferredLanguage = *req.PreferredLanguage
	}
	if req.CountryCode != nil {
		customer.CountryCode = *req.CountryCode
	}

	h.saveAndRespond(w, customer)
}

func (h *customerHandlers) saveAndRespond(w http.ResponseWriter, customer domain.Customer) {
	if violations := customerViolations(customer); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("customer validation failed", violations))
		return
	}

	if err := h.customers.Update(customer); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := h.customers.Get(customer.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newCustomerResponse(stored))
}

// customerViolations collects the field invariants plus the country-specific
// document format check. An empty document is already reported by the
// invariants.
func customerViolations(customer domain.Customer) []error {
	violations := customer.ValidateInvariants()
	if customer.Document != "" {
		if err := i18n.ValidateDocument(customer.CountryCode, customer.Document); err != nil {
			violations = append(violations, err)
		}
	}
	return violations
}
