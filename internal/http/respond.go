package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pockets/internal/core"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, errorResponse{Status: "error", Message: message})
}

// writeDomainError translates the error taxonomy into an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotAuthenticated):
		writeError(w, "not authenticated", http.StatusUnauthorized)
	case errors.Is(err, core.ErrForbidden):
		writeError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, "not found", http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidInput):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, core.ErrConflict):
		writeError(w, "conflict", http.StatusConflict)
	case errors.Is(err, core.ErrStoreUnavailable):
		writeError(w, "temporarily unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("Unhandled error", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON parses a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}
