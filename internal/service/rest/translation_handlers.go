package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

type translationPayload struct {
	Key          string `json:"key"`
	LanguageCode string `json:"language_code"`
	Value        string `json:"value"`
}

type translationPatchPayload struct {
	Key          *string `json:"key"`
	LanguageCode *string `json:"language_code"`
	Value        *string `json:"value"`
}

type translationResponse struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	LanguageCode string    `json:"language_code"`
	Value        string    `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newTranslationResponse(translation domain.Translation) translationResponse {
	return translationResponse{
		ID:           translation.ID,
		Key:          translation.Key,
		LanguageCode: translation.LanguageCode,
		Value:        translation.Value,
		CreatedAt:    translation.CreatedAt,
		UpdatedAt:    translation.UpdatedAt,
	}
}

type translationHandlers struct {
	translations domain.TranslationRepository
	logger       *log.Entry
}

func (h *translationHandlers) register(router *mux.Router) {
	router.HandleFunc("/translations", h.list).Methods(http.MethodGet)
	router.HandleFunc("/translations", h.create).Methods(http.MethodPost)
	router.HandleFunc("/translations/{id}", h.get).Methods(http.MethodGet)
	router.HandleFunc("/translations/{id}", h.update).Methods(http.MethodPut)
	router.HandleFunc("/translations/{id}", h.patch).Methods(http.MethodPatch)
}

func (h *translationHandlers) list(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	translations, total, err := h.translations.List(page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]translationResponse, 0, len(translations))
	for _, translation := range translations {
		data = append(data, newTranslationResponse(translation))
	}
	writeList(w, data, page, total)
}

func (h *translationHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req translationPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	translation := domain.Translation{
		ID:           uuid.NewString(),
		Key:          req.Key,
		LanguageCode: req.LanguageCode,
		Value:        req.Value,
	}
	if violations := translation.ValidateInvariants(); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("translation validation failed", violations))
		return
	}

	if err := h.translations.Create(translation); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := h.translations.Get(translation.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, newTranslationResponse(stored))
}

func (h *translationHandlers) get(w http.ResponseWriter, r *http.Request) {
	translation, err := h.translations.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newTranslationResponse(translation))
}

func (h *translationHandlers) update(w http.ResponseWriter, r *http.Request) {
	var req translationPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	translation, err := h.translations.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	translation.Key = req.Key
	translation.LanguageCode = req.LanguageCode
	translation.Value = req.Value

	h.saveAndRespond(w, translation)
}

func (h *translationHandlers) patch(w http.ResponseWriter, r *http.Request) {
	var req translationPatchPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	translation, err := h.translations.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if req.Key != nil {
		translation.Key = *req.Key
	}
	if req.LanguageCode != nil {
		translation.LanguageCode = *req.LanguageCode
	}
	if req.Value != nil {
		translation.Value = *req.Value
	}

	h.saveAndRespond(w, translation)
}

func (h *translationHandlers) saveAndRespond(w http.ResponseWriter, translation domain.Translation) {
	if violations := translation.ValidateInvariants(); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("translation validation failed", violations))
		return
	}

	if err := h.translations.Update(translation); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := h.translations.Get(translation.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newTranslationResponse(stored))
}
