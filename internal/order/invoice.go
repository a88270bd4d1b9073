package order

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Invoice renders the invoice data for a paid order. The document itself is
// produced by the frontend; this endpoint only serves the figures.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
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
	if order.PaymentStatus != repo.PaymentStatusPaid {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "invoice is available after payment", nil)
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
	breakdown := BreakdownFor(order, fallbackRate, taxRate)
	invoice := map[string]any{
		"invoice_number": "INV-" + strings.TrimPrefix(order.OrderNumber, "ORD-"),
		"order_number":   order.OrderNumber,
		"currency":       order.Currency,
		"billing": map[string]any{
			"name":    order.BillingName,
			"email":   order.BillingEmail,
			"address": order.BillingAddress,
		},
		"items":              itemViews(items),
		"subtotal":           order.Subtotal,
		"discount_amount":    order.DiscountAmount,
		"total_amount":       order.TotalAmount,
		"amount_without_tax": breakdown.AmountWithoutTax,
		"tax_amount":         breakdown.TaxAmount,
	}
	if order.PaidAt.Valid {
		invoice["paid_at"] = order.PaidAt.Time
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": invoice})
}

// GetByNumber resolves an order by its public order number.
func (h *Handler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	number := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if number == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "order number is required", nil)
		return
	}
	order, err := h.Q.GetOrderByNumber(r.Context(), number)
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
	common.JSON(w, http.StatusOK, map[string]any{"data": summaryView(order)})
}
