package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/lovrop/najdeno/internal/match"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding response: %v", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// matchError maps engine errors to HTTP responses. Unexpected store failures
// stay opaque to the client.
func matchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, match.ErrNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, match.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, match.ErrUnavailable):
		jsonError(w, http.StatusUnprocessableEntity, "security check not configured for this item")
	case errors.Is(err, match.ErrConflict):
		jsonError(w, http.StatusConflict, "item status changed, retry")
	default:
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
