package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/pricing"
	"github.com/kodpazar/backend-api/internal/repo"
)

// CartQuerier narrows the repo surface needed to price the caller's cart.
type CartQuerier interface {
	ListCartDetails(ctx context.Context, userID int64) ([]repo.CartItemDetail, error)
}

// Handler exposes coupon HTTP endpoints.
type Handler struct {
	Svc  *Service
	Cart CartQuerier
}

type previewRequest struct {
	Code string `json:"code"`
}

// Preview evaluates a coupon against the caller's current cart without
// consuming a use.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "code is required", nil)
		return
	}
	items, err := h.Cart.ListCartDetails(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	pricingItems := make([]pricing.Item, 0, len(items))
	projectIDs := make([]int64, 0, len(items))
	for _, it := range items {
		pricingItems = append(pricingItems, pricing.Item{ProjectID: it.ProjectID, Qty: int(it.Quantity), UnitPrice: it.UnitPrice})
		projectIDs = append(projectIDs, it.ProjectID)
	}
	subtotal := pricing.Subtotal(pricingItems)
	result, err := h.Svc.Preview(r.Context(), req.Code, Scope{UserID: userID, ProjectIDs: projectIDs}, subtotal)
	if err != nil {
		writeRuleError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// ListMine returns the caller's active coupons, incentive coupons included.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	coupons, err := h.Svc.ListMine(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(coupons))
	for _, c := range coupons {
		entry := map[string]any{
			"code":           c.Code,
			"discount_type":  c.DiscountType,
			"discount_value": c.DiscountValue,
			"usage_count":    c.UsageCount,
			"one_time_use":   c.OneTimeUse,
		}
		if c.UsageLimit.Valid {
			entry["usage_limit"] = c.UsageLimit.Int32
		}
		if c.ProjectID.Valid {
			entry["project_id"] = c.ProjectID.Int64
		}
		if c.ExpiresAt.Valid {
			entry["expires_at"] = c.ExpiresAt.Time
		}
		out = append(out, entry)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func authedUserID(r *http.Request) (int64, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// writeRuleError maps engine sentinels onto the API error taxonomy.
func writeRuleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotEligible):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
	case errors.Is(err, ErrCouponInactive), errors.Is(err, ErrCouponExpired):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrMinimumSpendUnmet):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrWrongProject), errors.Is(err, ErrWrongUser):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrUsageLimitReached):
		common.JSONError(w, http.StatusConflict, "USAGE_LIMIT", err.Error(), nil)
	case errors.Is(err, ErrAlreadyUsed):
		common.JSONError(w, http.StatusConflict, "ALREADY_USED", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
