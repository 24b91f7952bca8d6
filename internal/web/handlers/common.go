// Package handlers implements the JSON API over the capture-session
// supervisor, the attendance store and the access policy.
package handlers

import (
	"encoding/json"
	"image"
	"net/http"
	"strings"

	"github.com/veriface/veriface/internal/session"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// Controller is what the handlers need from the session supervisor.
type Controller interface {
	Start(name string) (session.Status, error)
	Stop() session.Status
	Status() session.Status
	ClearOutcomeFlags()
	ResetLockout(name string) bool
	LatestFrame() image.Image
	StartEnrollment(name, role string) (session.Progress, error)
	StopEnrollment() session.Progress
	EnrollmentProgress() session.Progress
	EnrollmentFrame() image.Image
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

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
