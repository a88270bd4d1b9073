package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rs/zerolog"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/events"
	"github.com/kodpazar/backend-api/internal/repo"
	"github.com/kodpazar/backend-api/internal/settings"
)

// AdminHandler serves the back-office order endpoints.
type AdminHandler struct {
	Q        *repo.Queries
	Settings *settings.Service
	Events   *events.Bus
	Log      zerolog.Logger
}

// List returns orders across all users with optional status filters.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	params := repo.ListOrdersParams{
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	}
	if v := strings.TrimSpace(r.URL.Query().Get("order_status")); v != "" {
		if !validOrderStatus(v) {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "unknown order status", nil)
			return
		}
		params.OrderStatus = pgtype.Text{String: v, Valid: true}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("payment_status")); v != "" {
		if !validPaymentStatus(v) {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "unknown payment status", nil)
			return
		}
		params.PaymentStatus = pgtype.Text{String: v, Valid: true}
	}
	orders, err := h.Q.ListOrders(r.Context(), params)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		view := summaryView(o)
		view["user_id"] = o.UserID
		out = append(out, view)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}

// Get returns the full order detail with its settlement breakdown.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid order id", nil)
		return
	}
	order, err := h.Q.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	items, err := h.Q.ListOrderItems(r.Context(), order.ID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	fallbackRate, err := h.Settings.CommissionRate(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	taxRate, err := h.Settings.TaxRate(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	view := summaryView(order)
	view["user_id"] = order.UserID
	view["billing_name"] = order.BillingName
	view["billing_email"] = order.BillingEmail
	view["billing_address"] = order.BillingAddress
	view["items"] = itemViews(items)
	view["price_breakdown"] = BreakdownFor(order, fallbackRate, taxRate)
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// OverrideStatus applies an unguarded admin correction to the order and/or
// payment status. Every override is written to the audit log.
func (h *AdminHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid order id", nil)
		return
	}
	var req struct {
		OrderStatus   *string `json:"order_status"`
		PaymentStatus *string `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	if req.OrderStatus == nil && req.PaymentStatus == nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "at least one status is required", nil)
		return
	}
	params := repo.OverrideOrderStatusParams{ID: orderID}
	if req.OrderStatus != nil {
		if !validOrderStatus(*req.OrderStatus) {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "unknown order status", nil)
			return
		}
		params.OrderStatus = pgtype.Text{String: *req.OrderStatus, Valid: true}
	}
	if req.PaymentStatus != nil {
		if !validPaymentStatus(*req.PaymentStatus) {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "unknown payment status", nil)
			return
		}
		params.PaymentStatus = pgtype.Text{String: *req.PaymentStatus, Valid: true}
	}
	order, err := h.Q.OverrideOrderStatus(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	detail, _ := json.Marshal(map[string]any{
		"order_status":   order.OrderStatus,
		"payment_status": order.PaymentStatus,
	})
	if err := h.Q.InsertAuditLog(r.Context(), repo.InsertAuditLogParams{
		ActorID:  adminID,
		Action:   "order.override_status",
		Entity:   "order",
		EntityID: strconv.FormatInt(order.ID, 10),
		Detail:   detail,
	}); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summaryView(order)})
}

// Complete marks a processing order as delivered. The guard keeps retries
// and cancel races harmless.
func (h *AdminHandler) Complete(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid order id", nil)
		return
	}
	rows, err := h.Q.CompleteOrder(r.Context(), orderID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if rows == 0 {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "only processing orders can be completed", nil)
		return
	}
	order, err := h.Q.GetOrderByID(r.Context(), orderID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Q.InsertAuditLog(r.Context(), repo.InsertAuditLogParams{
		ActorID:  adminID,
		Action:   "order.complete",
		Entity:   "order",
		EntityID: strconv.FormatInt(order.ID, 10),
	}); err != nil {
		common.WriteError(w, err)
		return
	}
	if h.Events != nil {
		if err := h.Events.Emit(r.Context(), events.TopicOrderCompleted, map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		}); err != nil {
			h.Log.Warn().Err(err).Int64("order_id", order.ID).Msg("emit order completed")
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summaryView(order)})
}

func validOrderStatus(s string) bool {
	switch s {
	case repo.OrderStatusPending, repo.OrderStatusProcessing, repo.OrderStatusCompleted, repo.OrderStatusCanceled:
		return true
	}
	return false
}

func validPaymentStatus(s string) bool {
	switch s {
	case repo.PaymentStatusUnpaid, repo.PaymentStatusPaid, repo.PaymentStatusRefunded:
		return true
	}
	return false
}
