package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// respondJSON writes payload as a JSON body with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

// respondError writes a {"error": "..."} JSON body.
func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

// respondMessage writes a {"message": "..."} JSON body, optionally with data.
func respondMessage(w http.ResponseWriter, status int, message string, data any) {
	resp := map[string]any{"message": message}
	if data != nil {
		resp["data"] = data
	}
	respondJSON(w, status, resp)
}
