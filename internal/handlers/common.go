package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"travel-feed-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the detail inside an error response
type ErrorBody struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Errors ErrorBody `json:"errors"`
}

// respondJSON writes v with the given status
func respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError maps err onto a status code and a structured error body
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	body := ErrorBody{Kind: models.ErrorKind(err), Message: err.Error()}
	statusCode := http.StatusInternalServerError

	switch {
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		body.Message = "resource not found"
	case errors.Is(err, models.ErrUnauthenticated):
		statusCode = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
	case errors.Is(err, models.ErrValidationFailed):
		statusCode = http.StatusUnprocessableEntity
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			body.Fields = verr.Fields
		}
	case errors.Is(err, models.ErrConcurrencyConflict):
		statusCode = http.StatusConflict
		body.Message = "request conflicted with a concurrent update, retry"
		w.Header().Set("Retry-After", "1")
	case errors.Is(err, models.ErrStoreUnavailable):
		statusCode = http.StatusServiceUnavailable
		body.Message = "storage temporarily unavailable"
	default:
		body.Message = "internal error"
	}

	if statusCode >= http.StatusInternalServerError || statusCode == http.StatusConflict {
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", statusCode).
			Msg("Request failed")
	}

	respondJSON(w, statusCode, ErrorResponse{Errors: body})
}

// parsePage reads the page parameter; missing or non-numeric input means page 1
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// validateID rejects ids that are not UUIDs
func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.NewValidationError(field, "must be a UUID")
	}
	return nil
}
