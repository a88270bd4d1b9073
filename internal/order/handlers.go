package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
	"github.com/kodpazar/backend-api/internal/settings"
)

// Handler serves the order endpoints for the order's owner.
type Handler struct {
	Q        *repo.Queries
	Svc      *Service
	Settings *settings.Service
}

// List returns the caller's orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	orders, err := h.Q.ListOrdersByUser(r.Context(), repo.ListOrdersByUserParams{
		UserID: userID,
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, summaryView(o))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}

// Get returns one order with its item snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
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
	if order.UserID != userID {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	items, err := h.Q.ListOrderItems(r.Context(), order.ID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	view := summaryView(order)
	view["billing_name"] = order.BillingName
	view["billing_email"] = order.BillingEmail
	view["billing_address"] = order.BillingAddress
	view["items"] = itemViews(items)
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Cancel stops a pending or processing order.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid order id", nil)
		return
	}
	order, err := h.Svc.Cancel(r.Context(), userID, orderID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summaryView(order)})
}

func summaryView(o repo.Order) map[string]any {
	view := map[string]any{
		"id":              o.ID,
		"order_number":    o.OrderNumber,
		"subtotal":        o.Subtotal,
		"discount_amount": o.DiscountAmount,
		"total_amount":    o.TotalAmount,
		"currency":        o.Currency,
		"order_status":    o.OrderStatus,
		"payment_status":  o.PaymentStatus,
		"created_at":      o.CreatedAt,
	}
	if o.CouponCode.Valid {
		view["coupon_code"] = o.CouponCode.String
	}
	if o.PaidAt.Valid {
		view["paid_at"] = o.PaidAt.Time
	}
	return view
}

func itemViews(items []repo.OrderItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"project_id": it.ProjectID,
			"title":      it.Title,
			"unit_price": it.UnitPrice,
			"quantity":   it.Quantity,
			"line_total": it.LineTotal,
		})
	}
	return out
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
