package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
)

// AdminHandler serves back-office coupon management.
type AdminHandler struct {
	Q *repo.Queries
}

type createRequest struct {
	Code          string  `json:"code" validate:"required,min=2,max=64"`
	DiscountType  string  `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue string  `json:"discount_value" validate:"required"`
	MaxAmount     *string `json:"max_amount"`
	MinAmount     *string `json:"min_amount"`
	UsageLimit    *int32  `json:"usage_limit" validate:"omitempty,gt=0"`
	OneTimeUse    bool    `json:"one_time_use"`
	ProjectID     *int64  `json:"project_id"`
	UserID        *int64  `json:"user_id"`
	ExpiresAt     *string `json:"expires_at"`
}

var validateCreate = validator.New()

// Create registers a new coupon.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	if err := validateCreate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid coupon payload", nil)
		return
	}

	value, err := decimal.NewFromString(strings.TrimSpace(req.DiscountValue))
	if err != nil || !value.IsPositive() {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "discount_value must be a positive number", nil)
		return
	}
	maxAmount, err := optionalDecimal(req.MaxAmount)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "max_amount must be a number", nil)
		return
	}
	minAmount, err := optionalDecimal(req.MinAmount)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "min_amount must be a number", nil)
		return
	}
	expiresAt, err := optionalTime(req.ExpiresAt)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "expires_at must be RFC 3339", nil)
		return
	}

	created, err := h.Q.CreateCoupon(r.Context(), repo.CreateCouponParams{
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: value,
		MaxAmount:     maxAmount,
		MinAmount:     minAmount,
		UsageLimit:    optionalInt4(req.UsageLimit),
		OneTimeUse:    req.OneTimeUse,
		ProjectID:     optionalInt8(req.ProjectID),
		UserID:        optionalInt8(req.UserID),
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": adminView(created)})
}

// List returns all coupons, newest first.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	coupons, err := h.Q.ListCoupons(r.Context(), repo.ListCouponsParams{
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, adminView(c))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}

// Deactivate disables a coupon without deleting its redemption history.
func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "couponID")
	if !ok {
		return
	}
	if _, err := h.Q.GetCouponByID(r.Context(), id); err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
		return
	}
	if err := h.Q.DeactivateCoupon(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

func adminView(c repo.Coupon) map[string]any {
	entry := map[string]any{
		"id":             c.ID,
		"code":           c.Code,
		"discount_type":  c.DiscountType,
		"discount_value": c.DiscountValue,
		"usage_count":    c.UsageCount,
		"one_time_use":   c.OneTimeUse,
		"is_active":      c.IsActive,
		"created_at":     c.CreatedAt,
	}
	if c.UsageLimit.Valid {
		entry["usage_limit"] = c.UsageLimit.Int32
	}
	if c.MaxAmount.Valid {
		entry["max_amount"] = c.MaxAmount.Decimal
	}
	if c.MinAmount.Valid {
		entry["min_amount"] = c.MinAmount.Decimal
	}
	if c.ProjectID.Valid {
		entry["project_id"] = c.ProjectID.Int64
	}
	if c.UserID.Valid {
		entry["user_id"] = c.UserID.Int64
	}
	if c.ExpiresAt.Valid {
		entry["expires_at"] = c.ExpiresAt.Time
	}
	return entry
}

func optionalDecimal(raw *string) (decimal.NullDecimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func optionalInt4(raw *int32) pgtype.Int4 {
	if raw == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *raw, Valid: true}
}

func optionalInt8(raw *int64) pgtype.Int8 {
	if raw == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *raw, Valid: true}
}

func optionalTime(raw *string) (pgtype.Timestamptz, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return pgtype.Timestamptz{}, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return pgtype.Timestamptz{}, err
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}
