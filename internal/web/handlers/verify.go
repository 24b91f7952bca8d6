package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/veriface/veriface/internal/session"
)

// VerifyHandler exposes the verification session lifecycle.
type VerifyHandler struct {
	ctl Controller
}

func NewVerifyHandler(ctl Controller) *VerifyHandler {
	return &VerifyHandler{ctl: ctl}
}

type startRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	Running bool           `json:"running"`
	Message string         `json:"message"`
	Status  session.Status `json:"status"`
}

// Start begins verification for the claimed identity.
func (h *VerifyHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	status, err := h.ctl.Start(req.Name)
	switch {
	case err == nil:
		log.Printf("web: verification started for %q", sanitizeForLog(req.Name))
		respondJSON(w, http.StatusOK, sessionResponse{
			Running: true,
			Message: "started",
			Status:  status,
		})
	case errors.Is(err, session.ErrAlreadyRunning):
		respondJSON(w, http.StatusOK, sessionResponse{
			Running: true,
			Message: "already running",
			Status:  status,
		})
	case errors.Is(err, session.ErrMissingIdentity):
		respondError(w, http.StatusBadRequest, "security error: no identity specified")
	case errors.Is(err, session.ErrLockedOut):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrModelUnavailable):
		respondError(w, http.StatusServiceUnavailable, "no trained model available; enroll identities first")
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Stop cancels the active session and waits for the camera release.
func (h *VerifyHandler) Stop(w http.ResponseWriter, r *http.Request) {
	status := h.ctl.Stop()
	respondJSON(w, http.StatusOK, sessionResponse{
		Running: status.Running,
		Message: "stopped",
		Status:  status,
	})
}

// Status returns the session snapshot.
func (h *VerifyHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctl.Status())
}

// Clear resets the sticky terminal flags.
func (h *VerifyHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.ctl.ClearOutcomeFlags()
	respondJSON(w, http.StatusOK, map[string]string{"message": "flags cleared"})
}

type resetLockoutRequest struct {
	Name string `json:"name"`
}

// ResetLockout clears a security lockout for an identity.
func (h *VerifyHandler) ResetLockout(w http.ResponseWriter, r *http.Request) {
	var req resetLockoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if !h.ctl.ResetLockout(req.Name) {
		respondError(w, http.StatusNotFound, "no lockout for identity")
		return
	}
	log.Printf("web: lockout reset for %q", sanitizeForLog(req.Name))
	respondJSON(w, http.StatusOK, map[string]any{"reset": true})
}
