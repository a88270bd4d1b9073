package payment

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kodpazar/backend-api/internal/common"
)

// Handler wires payment endpoints.
type Handler struct {
	Svc *Service
}

// Process charges the referenced order.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid order id", nil)
		return
	}
	var req struct {
		Provider string `json:"provider"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	order, charge, err := h.Svc.Process(r.Context(), userID, orderID, req.Provider)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"order_id":       order.ID,
			"order_number":   order.OrderNumber,
			"order_status":   order.OrderStatus,
			"payment_status": order.PaymentStatus,
			"provider":       charge.Provider,
			"txn_id":         charge.TxnID,
		},
	})
}

// Status reports payment state and transaction history for an order.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid order id", nil)
		return
	}
	order, txns, err := h.Svc.Status(r.Context(), userID, orderID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	history := make([]map[string]any, 0, len(txns))
	for _, t := range txns {
		entry := map[string]any{
			"type":     t.Type,
			"status":   t.Status,
			"amount":   t.Amount,
			"provider": t.Provider,
		}
		if t.ProviderTxnID.Valid {
			entry["txn_id"] = t.ProviderTxnID.String
		}
		history = append(history, entry)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"order_id":       order.ID,
			"payment_status": order.PaymentStatus,
			"order_status":   order.OrderStatus,
			"transactions":   history,
		},
	})
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return 0, false
	}
	return id, true
}
