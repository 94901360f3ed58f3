package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/foloup/backend/models"
)

var ErrNotFound = errors.New("not found")

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error", "details"} body used by the API routes
func writeError(w http.ResponseWriter, status int, message, details string) {
	body := map[string]string{"error": message}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

// writeAIError maps an LLM failure to its status and message
func writeAIError(w http.ResponseWriter, err error) {
	status, message, details := ClassifyAIError(err)
	writeError(w, status, message, details)
}

func userFromRequest(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value("user").(*models.User)
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return nil, false
	}
	return user, true
}
