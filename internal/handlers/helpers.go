package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dkrasnov/reminders/internal/database"
	"github.com/dkrasnov/reminders/internal/usecase"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage removes internal details from error messages
func sanitizeErrorMessage(message string) string {
	sanitized := message
	if len(sanitized) > 200 {
		sanitized = sanitized[:200] + "..."
	}
	return sanitized
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	sanitizedMessage := sanitizeErrorMessage(message)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizedMessage,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondError maps a domain error to its HTTP status and error envelope.
// Validation failures and missing records are caller faults; storage
// contention surfaces as 503 so clients know a retry is reasonable.
func respondError(w http.ResponseWriter, err error) {
	var ve *usecase.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", ve.Message)
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Record not found")
	case errors.Is(err, database.ErrConflict):
		respondJSONError(w, http.StatusConflict, "Conflict", "The change conflicted with another update")
	case errors.Is(err, database.ErrUnavailable):
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Storage is unavailable, try again")
	default:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Operation failed")
	}
}
