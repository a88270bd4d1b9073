package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const couponColumns = `id, code, discount_type, discount_value, max_amount, min_amount, usage_limit, usage_count, one_time_use, project_id, user_id, is_active, expires_at, created_at`

func scanCoupon(row interface{ Scan(...interface{}) error }) (Coupon, error) {
	var c Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.DiscountType,
		&c.DiscountValue,
		&c.MaxAmount,
		&c.MinAmount,
		&c.UsageLimit,
		&c.UsageCount,
		&c.OneTimeUse,
		&c.ProjectID,
		&c.UserID,
		&c.IsActive,
		&c.ExpiresAt,
		&c.CreatedAt,
	)
	return c, err
}

const getActiveCouponByCode = `-- name: GetActiveCouponByCode :one
SELECT ` + couponColumns + `
FROM coupons
WHERE code = upper($1)
  AND is_active
  AND (expires_at IS NULL OR expires_at > now())
  AND (usage_limit IS NULL OR usage_count < usage_limit)
`

// GetActiveCouponByCode resolves a redeemable coupon. Codes are stored
// uppercase; lookups normalise the input the same way.
func (q *Queries) GetActiveCouponByCode(ctx context.Context, code string) (Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, getActiveCouponByCode, code))
}

const getCouponByID = `-- name: GetCouponByID :one
SELECT ` + couponColumns + `
FROM coupons
WHERE id = $1
`

func (q *Queries) GetCouponByID(ctx context.Context, id int64) (Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, getCouponByID, id))
}

const redeemCoupon = `-- name: RedeemCoupon :execrows
UPDATE coupons
SET usage_count = usage_count + 1
WHERE id = $1 AND is_active AND (usage_limit IS NULL OR usage_count < usage_limit)
`

// RedeemCoupon increments usage under the limit guard. Zero rows affected
// means another transaction consumed the last use first.
func (q *Queries) RedeemCoupon(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, redeemCoupon, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type CreateCouponParams struct {
	Code          string
	DiscountType  string
	DiscountValue decimal.Decimal
	MaxAmount     decimal.NullDecimal
	MinAmount     decimal.NullDecimal
	UsageLimit    pgtype.Int4
	OneTimeUse    bool
	ProjectID     pgtype.Int8
	UserID        pgtype.Int8
	ExpiresAt     pgtype.Timestamptz
}

const createCoupon = `-- name: CreateCoupon :one
INSERT INTO coupons (code, discount_type, discount_value, max_amount, min_amount, usage_limit, one_time_use, project_id, user_id, expires_at)
VALUES (upper($1), $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + couponColumns + `
`

func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, createCoupon,
		arg.Code,
		arg.DiscountType,
		arg.DiscountValue,
		arg.MaxAmount,
		arg.MinAmount,
		arg.UsageLimit,
		arg.OneTimeUse,
		arg.ProjectID,
		arg.UserID,
		arg.ExpiresAt,
	))
}

type GetActiveIncentiveCouponParams struct {
	ProjectID int64
	UserID    int64
}

const getActiveIncentiveCoupon = `-- name: GetActiveIncentiveCoupon :one
SELECT ` + couponColumns + `
FROM coupons
WHERE project_id = $1 AND user_id = $2 AND is_active
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetActiveIncentiveCoupon(ctx context.Context, arg GetActiveIncentiveCouponParams) (Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, getActiveIncentiveCoupon, arg.ProjectID, arg.UserID))
}

const deactivateCoupon = `-- name: DeactivateCoupon :exec
UPDATE coupons
SET is_active = FALSE
WHERE id = $1
`

func (q *Queries) DeactivateCoupon(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, deactivateCoupon, id)
	return err
}

type ListCouponsParams struct {
	Limit  int32
	Offset int32
}

const listCoupons = `-- name: ListCoupons :many
SELECT ` + couponColumns + `
FROM coupons
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

func (q *Queries) ListCoupons(ctx context.Context, arg ListCouponsParams) ([]Coupon, error) {
	rows, err := q.db.Query(ctx, listCoupons, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const listCouponsByUser = `-- name: ListCouponsByUser :many
SELECT ` + couponColumns + `
FROM coupons
WHERE user_id = $1 AND is_active
ORDER BY created_at DESC
`

func (q *Queries) ListCouponsByUser(ctx context.Context, userID int64) ([]Coupon, error) {
	rows, err := q.db.Query(ctx, listCouponsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
