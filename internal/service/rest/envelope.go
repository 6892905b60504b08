package rest

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

// pagination is attached to every list response.
type pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type successEnvelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type errorEnvelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// statusForKind maps the error taxonomy onto HTTP status codes. Request
// timeouts are handled by the timeout middleware and never reach this map.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindValidation:
		return http.StatusBadRequest
	case domain.ErrorKindAuthentication:
		return http.StatusUnauthorized
	case domain.ErrorKindNotFound:
		return http.StatusNotFound
	case domain.ErrorKindConflict:
		return http.StatusConflict
	case domain.ErrorKindRateLimit:
		return http.StatusTooManyRequests
	case domain.ErrorKindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeData writes a success envelope without pagination.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

// writeList writes a success envelope with the pagination block.
func writeList(w http.ResponseWriter, data any, page domain.PageRequest, total int64) {
	norm := page.Normalize()
	totalPages := (total + int64(norm.PerPage) - 1) / int64(norm.PerPage)
	writeJSON(w, http.StatusOK, successEnvelope{
		Success: true,
		Data:    data,
		Pagination: &pagination{
			Page:       norm.Page,
			PerPage:    norm.PerPage,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// writeError classifies the error and writes the matching envelope. Internal
// errors are logged with their cause and reach the client sanitized.
func writeError(w http.ResponseWriter, logger *log.Entry, err error) {
	classified := domain.Classify(err)

	if classified.Kind == domain.ErrorKindInternal {
		logger.WithError(err).Error("request failed")
	} else {
		logger.WithError(err).WithField("code", classified.Code).Debug("request rejected")
	}

	writeJSON(w, statusForKind(classified.Kind), errorEnvelope{
		Success:   false,
		Message:   classified.Error(),
		Code:      classified.Code,
		Timestamp: time.Now().UTC(),
	})
}
