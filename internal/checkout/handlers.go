package checkout

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kodpazar/backend-api/internal/common"
)

// Handler wires the checkout service to HTTP.
type Handler struct {
	Svc *Service
}

// Create turns the caller's cart into an order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	out, err := h.Svc.Create(r.Context(), userID, payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}
