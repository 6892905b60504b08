package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

type supplierPayload struct {
	CompanyName  string  `json:"company_name"`
	ContactEmail string  `json:"contact_email"`
	Phone        string  `json:"phone"`
	CountryCode  string  `json:"country_code"`
	Rating       float64 `json:"rating"`
	APIEndpoint  string  `json:"api_endpoint"`
	Active       *bool   `json:"active"`
}

type supplierPatchPayload struct {
	CompanyName  *string  `json:"company_name"`
	ContactEmail *string  `json:"contact_email"`
	Phone        *string  `json:"phone"`
	CountryCode  *string  `json:"country_code"`
	Rating       *float64 `json:"rating"`
	APIEndpoint  *string  `json:"api_endpoint"`
	Active       *bool    `json:"active"`
}

type supplierResponse struct {
	ID           string    `json:"id"`
	CompanyName  string    `json:"company_name"`
	ContactEmail string    `json:"contact_email"`
	Phone        string    `json:"phone,omitempty"`
	CountryCode  string    `json:"country_code"`
	Rating       float64   `json:"rating"`
	APIEndpoint  string    `json:"api_endpoint"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newSupplierResponse(supplier domain.Supplier) supplierResponse {
	return supplierResponse{
		ID:           supplier.ID,
		CompanyName:  supplier.CompanyName,
		ContactEmail: supplier.ContactEmail,
		Phone:        supplier.Phone,
		CountryCode:  supplier.CountryCode,
		Rating:       supplier.Rating,
		APIEndpoint:  supplier.APIEndpoint,
		Active:       supplier.Active,
		CreatedAt:    supplier.CreatedAt,
		UpdatedAt:    supplier.UpdatedAt,
	}
}

type supplierHandlers struct {
	suppliers domain.SupplierRepository
	logger    *log.Entry
}

func (h *supplierHandlers) register(router *mux.Router) {
	router.HandleFunc("/suppliers", h.list).Methods(http.MethodGet)
	router.HandleFunc("/suppliers", h.create).Methods(http.MethodPost)
	router.HandleFunc("/suppliers/{id}", h.get).Methods(http.MethodGet)
	router.HandleFunc("/suppliers/{id}", h.update).Methods(http.MethodPut)
	router.HandleFunc("/suppliers/{id}", h.patch).Methods(http.MethodPatch)
}

func (h *supplierHandlers) list(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	suppliers, total, err := h.suppliers.List(page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]supplierResponse, 0, len(suppliers))
	for _, supplier := range suppliers {
		data = append(data, newSupplierResponse(supplier))
	}
	writeList(w, data, page, total)
}

func (h *supplierHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req supplierPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// New suppliers default to active; they are created to be used.
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	supplier := domain.Supplier{
		ID:           uuid.NewString(),
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		CountryCode:  req.CountryCode,
		Rating:       req.Rating,
		APIEndpoint:  req.APIEndpoint,
		Active:       active,
	}
	if violations := supplier.ValidateInvariants(); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("supplier validation failed", violations))
		return
	}

	if err := h.suppliers.Create(supplier); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := h.suppliers.Get(supplier.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, newSupplierResponse(stored))
}

func (h *supplierHandlers) get(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.suppliers.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newSupplierResponse(supplier))
}

func (h *supplierHandlers) update(w http.ResponseWriter, r *http.Request) {
	var req supplierPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	supplier, err := h.suppliers.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	supplier.CompanyName = req.CompanyName
	supplier.ContactEmail = req.ContactEmail
	supplier.Phone = req.Phone
	supplier.CountryCode = req.CountryCode
	supplier.Rating = req.Rating
	supplier.APIEndpoint = req.APIEndpoint
	if req.Active != nil {
		supplier.Active = *req.Active
	}

	h.saveAndRespond(w, supplier)
}

func (h *supplierHandlers) patch(w http.ResponseWriter, r *http.Request) {
	var req supplierPatchPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	supplier, err := h.suppliers.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if req.CompanyName != nil {
		supplier.CompanyName = *req.CompanyName
	}
	if req.ContactEmail != nil {
		supplier.ContactEmail = *req.ContactEmail
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.CountryCode != nil {
		supplier.CountryCode = *req.CountryCode
	}
	if req.Rating != nil {
		supplier.Rating = *req.Rating
	}
	if req.APIEndpoint != nil {
		supplier.APIEndpoint = *req.APIEndpoint
	}
	if req.Active != nil {
		supplier.Active = *req.Active
	}

	h.saveAndRespond(w, supplier)
}

func (h *supplierHandlers) saveAndRespond(w http.ResponseWriter, supplier domain.Supplier) {
	if violations := supplier.ValidateInvariants(); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("supplier validation failed", violations))
		return
	}

	if err := h.suppliers.Update(supplier); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := h.suppliers.Get(supplier.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newSupplierResponse(stored))
}
