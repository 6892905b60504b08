package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

type countryPayload struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
	CurrencyCode string `json:"currency_code"`
	PhonePrefix  string `json:"phone_prefix"`
}

type countryPatchPayload struct {
	Name         *string `json:"name"`
	LanguageCode *string `json:"language_code"`
	CurrencyCode *string `json:"currency_code"`
	PhonePrefix  *string `json:"phone_prefix"`
}

type countryResponse struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	LanguageCode string    `json:"language_code"`
	CurrencyCode string    `json:"currency_code"`
	PhonePrefix  string    `json:"phone_prefix"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newCountryResponse(country domain.Country) countryResponse {
	return countryResponse{
		Code:         country.Code,
		Name:         country.Name,
		LanguageCode: country.LanguageCode,
		CurrencyCode: country.CurrencyCode,
		PhonePrefix:  country.PhonePrefix,
		CreatedAt:    country.CreatedAt,
		UpdatedAt:    country.UpdatedAt,
	}
}

type countryHandlers struct {
	countries domain.CountryRepository
	logger    *log.Entry
}

func (h *countryHandlers) register(router *mux.Router) {
	router.HandleFunc("/countries", h.list).Methods(http.MethodGet)
	router.HandleFunc("/countries", h.create).Methods(http.MethodPost)
	router.HandleFunc("/countries/{code}", h.get).Methods(http.MethodGet)
	router.HandleFunc("/countries/{code}", h.update).Methods(http.MethodPut)
	router.HandleFunc("/countries/{code}", h.patch).Methods(http.MethodPatch)
}

func (h *countryHandlers) list(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	countries, total, err := h.countries.List(page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]countryResponse, 0, len(countries))
	for _, country := range countries {
		data = append(data, newCountryResponse(country))
	}
	writeList(w, data, page, total)
}

func (h *countryHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req countryPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	country := domain.Country{
		Code:         strings.ToUpper(req.Code),
		Name:         req.Name,
		LanguageCode: req.LanguageCode,
		CurrencyCode: req.CurrencyCode,
		PhonePrefix:  req.PhonePrefix,
	}
	if violations := country.ValidateInvariants(); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("country validation failed", violations))
		return
	}

	if err := h.countries.Create(country); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := h.countries.Get(country.Code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, newCountryResponse(stored))
}

func (h *countryHandlers) get(w http.ResponseWriter, r *http.Request) {
	country, err := h.countries.Get(strings.ToUpper(mux.Vars(r)["code"]))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newCountryResponse(country))
}

// update replaces the country metadata. The code is the identity and comes
// from the path, never from the body.
func (h *countryHandlers) update(w http.ResponseWriter, r *http.Request) {
	var req countryPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	country, err := h.countries.Get(strings.ToUpper(mux.Vars(r)["code"]))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	country.Name = req.Name
	country.LanguageCode = req.LanguageCode
	country.CurrencyCode = req.CurrencyCode
	country.PhonePrefix = req.PhonePrefix

	h.saveAndRespond(w, country)
}

func (h *countryHandlers) patch(w http.ResponseWriter, r *http.Request) {
	var req countryPatchPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	country, err := h.countries.Get(strings.ToUpper(mux.Vars(r)["code"]))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if req.Name != nil {
		country.Name = *req.Name
	}
	if req.LanguageCode != nil {
		country.LanguageCode = *req.LanguageCode
	}
	if req.CurrencyCode != nil {
		country.CurrencyCode = *req.CurrencyCode
	}
	if req.PhonePrefix != nil {
		country.PhonePrefix = *req.PhonePrefix
	}

	h.saveAndRespond(w, country)
}

func (h *countryHandlers) saveAndRespond(w http.ResponseWriter, country domain.Country) {
	if violations := country.ValidateInvariants(); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("country validation failed", violations))
		return
	}

	if err := h.countries.Update(country); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := h.countries.Get(country.Code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newCountryResponse(stored))
}
