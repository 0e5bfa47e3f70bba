// Package handlers implements the HTTP endpoints of the attendance service.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// Response statuses of the kiosk endpoints.
const (
	statusSuccess       = "success"
	statusFailed        = "failed"
	statusAlreadyMarked = "already_marked"
)

// statusResponse is the body of the kiosk endpoints.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondFailed sends a kiosk failure body.
func respondFailed(w http.ResponseWriter, status int, reason, message string) {
	respondJSON(w, status, statusResponse{Status: statusFailed, Message: message, Reason: reason})
}

// HealthCheck returns a handler that reports whether the store answers queries.
func HealthCheck(store database.IdentityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := store.CountIdentities(r.Context())
		if err != nil {
			logging.FromContext(r.Context()).WithError(err).Error("health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"identities": count,
		})
	}
}
