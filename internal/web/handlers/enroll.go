package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/veriface/veriface/internal/session"
)

// EnrollHandler exposes the enrollment capture lifecycle.
type EnrollHandler struct {
	ctl Controller
}

func NewEnrollHandler(ctl Controller) *EnrollHandler {
	return &EnrollHandler{ctl: ctl}
}

type enrollRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type enrollResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Progress session.Progress `json:"progress"`
}

// Start begins collecting face samples for a new identity.
func (h *EnrollHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	progress, err := h.ctl.StartEnrollment(req.Name, req.Role)
	switch {
	case err == nil:
		log.Printf("web: enrollment started for %q", sanitizeForLog(req.Name))
		respondJSON(w, http.StatusOK, enrollResponse{
			Success:  true,
			Message:  "enrollment started",
			Progress: progress,
		})
	case errors.Is(err, session.ErrAlreadyRunning):
		respondError(w, http.StatusConflict, "a capture session is already running")
	case errors.Is(err, session.ErrMissingIdentity):
		respondError(w, http.StatusBadRequest, "name is required")
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Stop cancels an active enrollment, discarding the partial batch.
func (h *EnrollHandler) Stop(w http.ResponseWriter, r *http.Request) {
	progress := h.ctl.StopEnrollment()
	respondJSON(w, http.StatusOK, enrollResponse{
		Success:  true,
		Message:  "enrollment stopped",
		Progress: progress,
	})
}

// Progress reports the current enrollment progress.
func (h *EnrollHandler) Progress(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctl.EnrollmentProgress())
}
