package settings

import (
	"encoding/json"
	"net/http"

	"github.com/kodpazar/backend-api/internal/common"
)

// Handler exposes settings endpoints. Public reads only surface
// presentation-safe keys; financial rates stay admin-only.
type Handler struct {
	Svc *Service
}

var publicKeys = map[string]bool{
	KeySiteName:     true,
	KeySupportEmail: true,
}

// Public returns the subset of settings safe for unauthenticated clients.
func (h *Handler) Public(w http.ResponseWriter, r *http.Request) {
	all, err := h.Svc.All(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := map[string]string{}
	for _, s := range all {
		if publicKeys[s.Key] {
			out[s.Key] = s.Value
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// AdminList returns every setting for admin consumption.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	all, err := h.Svc.All(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": all})
}

// AdminSet upserts a setting value.
func (h *Handler) AdminSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	setting, err := h.Svc.Set(r.Context(), req.Key, req.Value)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": setting})
}
