package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/pedidohub/backoffice/internal/domain"
)

// maxBodyBytes caps request bodies. Order payloads are small; anything
// approaching this limit is not a legitimate request.
const maxBodyBytes = 1 << 20

// decodeJSON decodes the request body into dst, translating decoder failures
// into validation errors.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewError(domain.ErrorKindValidation, "empty_body", "request body is required")
		}
		return domain.WrapError(domain.ErrorKindValidation, "invalid_json", "request body is not valid JSON", err)
	}
	return nil
}

// pageFromQuery reads the page and per_page query parameters. Missing or
// unparsable values fall back to the normalized defaults.
func pageFromQuery(r *http.Request) domain.PageRequest {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("per_page"))
	return domain.PageRequest{Page: page, PerPage: perPage}
}
