package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veriface/veriface/internal/attendance"
)

// AllowHandler manages the attendance allow list.
type AllowHandler struct {
	policy *attendance.AccessPolicy
}

func NewAllowHandler(policy *attendance.AccessPolicy) *AllowHandler {
	return &AllowHandler{policy: policy}
}

func (h *AllowHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"allowed_identities": h.policy.List(),
	})
}

func (h *AllowHandler) Add(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		respondError(w, http.StatusBadRequest, "missing identity name")
		return
	}
	h.policy.Allow(body.Name)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"allowed_identities": h.policy.List(),
	})
}

func (h *AllowHandler) Remove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing identity name")
		return
	}
	h.policy.Disallow(name)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"allowed_identities": h.policy.List(),
	})
}
